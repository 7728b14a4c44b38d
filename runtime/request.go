package runtime

import (
	"github.com/google/uuid"

	"support-chat/contract"
)

// Request is the closed set of operations a connection can ask of the
// hub. The hub routes them with an exhaustive type switch; adding a
// variant means teaching route about it.
type Request interface {
	isRequest()
}

// Register attaches a freshly upgraded connection to the hub.
type Register struct {
	Conn contract.Conn
}

// Deregister detaches a connection. Enqueued by the connection's own
// read pump on teardown, never by hub-side polling.
type Deregister struct {
	ConnectionID uuid.UUID
}

// SendMessage relays a chat message from the connection's participant
// to a recipient.
type SendMessage struct {
	Conn        contract.Conn
	RecipientID string
	Body        string
}

// SetTyping forwards a transient typing flag to the counterpart of
// the conversation.
type SetTyping struct {
	Conn          contract.Conn
	CounterpartID string
	IsTyping      bool
}

// EndSession purges a customer's conversation history. Admin only.
type EndSession struct {
	Conn       contract.Conn
	CustomerID string
}

func (Register) isRequest()    {}
func (Deregister) isRequest()  {}
func (SendMessage) isRequest() {}
func (SetTyping) isRequest()   {}
func (EndSession) isRequest()  {}
