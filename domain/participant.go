// Package domain contains core concepts of the support chat system.
// This file defines Participant identities and their roles.
// No runtime, network, or UI logic should be added here.
package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Participant is an identified chat user, resolved by the external
// identity collaborator at connect time. Immutable for the lifetime
// of a connection.
type Participant struct {
	ID          string
	DisplayName string
	Role        Role
}

func (p Participant) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Participant) IsCustomer() bool {
	return p.Role == RoleCustomer
}
