package runtime

import (
	"support-chat/domain"
	"support-chat/domain/event"
)

// handleTyping forwards a typing flag to the counterpart's
// connections. Fire and forget: nothing is persisted, nothing is
// acknowledged, and there is no failure path back to the sender.
func (h *Hub) handleTyping(req SetTyping) {
	p := req.Conn.Participant()
	if req.CounterpartID == "" || req.CounterpartID == p.ID {
		return
	}

	// The conversation key is always the customer side of the pair.
	customerID := p.ID
	if p.IsAdmin() {
		customerID = req.CounterpartID
	}

	if req.IsTyping {
		h.typing[customerID] = domain.TypingState{
			CustomerID:    customerID,
			ParticipantID: p.ID,
			IsTyping:      true,
		}
	} else {
		current, ok := h.typing[customerID]
		if ok && current.ParticipantID == p.ID {
			delete(h.typing, customerID)
		}
	}

	h.metrics.TypingEvents.Inc()
	for _, conn := range h.registry.ConnsFor(req.CounterpartID) {
		conn.Deliver(event.UserTyping{ParticipantID: p.ID, IsTyping: req.IsTyping})
	}
}
