package runtime

import (
	"support-chat/domain/event"
)

// handleEndSession is the administrative purge of a conversation.
// Deletion, typing cleanup and the broadcast happen inside one hub
// request, so no connection can observe a half-ended session. A
// failed delete leaves everything untouched and only the requesting
// admin hears about it.
func (h *Hub) handleEndSession(req EndSession) {
	p := req.Conn.Participant()
	if !p.IsAdmin() {
		req.Conn.Deliver(event.SessionError{Reason: reasonForbidden})
		return
	}

	deleted, err := h.store.DeleteMessages(req.CustomerID)
	if err != nil {
		h.log.Error("Session purge failed", "customer_id", req.CustomerID, "error", err)
		req.Conn.Deliver(event.SessionError{Reason: reasonPersistenceFailure})
		return
	}

	delete(h.typing, req.CustomerID)
	h.metrics.SessionsEnded.Inc()
	h.metrics.MessagesPurged.Add(float64(deleted))
	h.log.Info("Session ended", "customer_id", req.CustomerID, "deleted", deleted, "admin_id", p.ID)

	ended := event.SessionEnded{CustomerID: req.CustomerID, DeletedCount: deleted}
	for _, conn := range h.registry.ConnsFor(req.CustomerID) {
		conn.Deliver(ended)
	}
	h.broadcastToAdmins(ended)
}
