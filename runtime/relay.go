package runtime

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/repositories"
)

// handleSend validates, persists and fans out one chat message.
// Persistence comes first: delivery only happens for messages the
// store accepted, and a store error reaches the sender as an explicit
// message_error instead of a silent drop.
func (h *Hub) handleSend(req SendMessage) {
	p := req.Conn.Participant()

	body := strings.TrimSpace(req.Body)
	if !h.validBody(body) || req.RecipientID == "" || req.RecipientID == p.ID {
		h.metrics.InvalidMessages.Inc()
		req.Conn.Deliver(event.MessageError{Reason: reasonInvalidMessage})
		return
	}

	if h.moderator != nil {
		body = h.moderator.Mask(body)
	}

	message := domain.Message{
		ID:          uuid.New(),
		SenderID:    p.ID,
		SenderRole:  p.Role,
		RecipientID: req.RecipientID,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.store.StoreMessage(repositories.FromDomain(message)); err != nil {
		h.log.Error("Message persistence failed",
			"customer_id", message.CustomerID(), "error", err)
		h.metrics.PersistFailures.Inc()
		req.Conn.Deliver(event.MessageError{Reason: reasonPersistenceFailure})
		return
	}
	h.metrics.MessagesRelayed.Inc()

	// An offline recipient is not an error: the message is already
	// durable and shows up on their next history fetch.
	recipients := h.registry.ConnsFor(req.RecipientID)
	for _, conn := range recipients {
		conn.Deliver(event.NewMessage{Message: message})
	}
	delivered := len(recipients) > 0
	if delivered {
		h.metrics.MessagesDelivered.Inc()
	}

	// Echo to every connection of the sender so other tabs see the
	// message too, not just the one that sent it.
	for _, conn := range h.registry.ConnsFor(p.ID) {
		conn.Deliver(event.MessageSent{Message: message, Delivered: delivered})
	}
}

func (h *Hub) validBody(body string) bool {
	if body == "" {
		return false
	}
	return utf8.RuneCountInString(body) <= h.maxBodyLength
}
