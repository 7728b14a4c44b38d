// Package event defines the closed set of server-to-client events the
// hub can emit. The transport layer encodes them onto the wire; Name
// is the wire type tag.
package event

import (
	"support-chat/domain"
)

type Event interface {
	Name() string
}

// PresenceSnapshot is sent to an admin connection right after it
// registers, listing every customer currently online.
type PresenceSnapshot struct {
	Customers []domain.PresenceEntry
}

func (PresenceSnapshot) Name() string { return "presence_snapshot" }

// CustomerOnline is broadcast to admins when a customer's first
// connection registers.
type CustomerOnline struct {
	CustomerID  string
	DisplayName string
}

func (CustomerOnline) Name() string { return "customer_online" }

// CustomerOffline is broadcast to admins when a customer's last
// connection deregisters.
type CustomerOffline struct {
	CustomerID string
}

func (CustomerOffline) Name() string { return "customer_offline" }

// NewMessage delivers a persisted message to the recipient's
// connections.
type NewMessage struct {
	Message domain.Message
}

func (NewMessage) Name() string { return "new_message" }

// MessageSent is the echo sent back to all of the sender's own
// connections once persistence succeeded, so multi-tab senders stay
// in sync. Delivered reports whether any recipient connection was
// live at send time.
type MessageSent struct {
	Message   domain.Message
	Delivered bool
}

func (MessageSent) Name() string { return "message_sent" }

// UserTyping forwards a transient typing flag to the counterpart of a
// conversation. Best effort, never persisted.
type UserTyping struct {
	ParticipantID string
	IsTyping      bool
}

func (UserTyping) Name() string { return "user_typing" }

// SessionEnded notifies both sides of a conversation that its history
// was purged by an admin.
type SessionEnded struct {
	CustomerID   string
	DeletedCount int
}

func (SessionEnded) Name() string { return "session_ended" }

// MessageError is returned only to the connection whose send was
// rejected.
type MessageError struct {
	Reason string
}

func (MessageError) Name() string { return "message_error" }

// SessionError is returned only to the admin connection whose
// end-session request failed.
type SessionError struct {
	Reason string
}

func (SessionError) Name() string { return "session_error" }
