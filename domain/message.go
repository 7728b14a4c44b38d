// Package domain contains core concepts of the support chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the relay before persistence.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat message between exactly one
// sender and one recipient. A conversation is scoped to a single
// customer: all admins share visibility into that customer's thread.
type Message struct {
	ID          uuid.UUID // persisted identifier
	SenderID    string
	SenderRole  Role
	RecipientID string
	Body        string
	CreatedAt   time.Time
}

// CustomerID returns the conversation key of the message: the customer
// side of the pair, whichever direction the message travels.
func (m Message) CustomerID() string {
	if m.SenderRole == RoleCustomer {
		return m.SenderID
	}
	return m.RecipientID
}
