// Package runtime hosts the hub: the single goroutine owning all
// shared chat state. Connections never touch presence, typing or the
// registry directly; they enqueue requests and the hub processes them
// one at a time, which gives a total order over presence changes,
// message sends and session terminations without any locking.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/moderation"
	"support-chat/observability"
	"support-chat/repositories"
)

// Wire error reasons surfaced verbatim to clients.
const (
	reasonInvalidMessage     = "InvalidMessage"
	reasonPersistenceFailure = "PersistenceFailure"
	reasonForbidden          = "forbidden"
)

var _ contract.Worker = (*Hub)(nil)

type Hub struct {
	log           *slog.Logger
	requests      chan Request
	registry      *Registry
	presence      *PresenceTracker
	typing        map[string]domain.TypingState
	store         repositories.IMessageRepository
	moderator     *moderation.Moderator
	metrics       *observability.Metrics
	maxBodyLength int
}

// NewHub wires the state owner. moderator may be nil to relay bodies
// unmasked; everything else is required.
func NewHub(
	log *slog.Logger,
	store repositories.IMessageRepository,
	moderator *moderation.Moderator,
	metrics *observability.Metrics,
	bufferSize, maxBodyLength int,
) *Hub {
	return &Hub{
		log:           log,
		requests:      make(chan Request, bufferSize),
		registry:      NewRegistry(),
		presence:      NewPresenceTracker(),
		typing:        make(map[string]domain.TypingState),
		store:         store,
		moderator:     moderator,
		metrics:       metrics,
		maxBodyLength: maxBodyLength,
	}
}

// Enqueue submits a request to the hub, blocking while the queue is
// full. Connection goroutines suspend here rather than dropping
// requests, which is what preserves the arrival order guarantee.
func (h *Hub) Enqueue(ctx context.Context, req Request) error {
	select {
	case h.requests <- req:
		h.metrics.HubQueueDepth.Set(float64(len(h.requests)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDepth reports how many requests are waiting. Used by the
// telemetry worker.
func (h *Hub) QueueDepth() int {
	return len(h.requests)
}

// Run is the hub's single consumer loop. It processes each request to
// completion before dequeuing the next; a store error in one request
// only reaches that request's connection and never stops the loop.
func (h *Hub) Run(ctx context.Context) error {
	h.log.Info("Hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("Hub stopping")
			return ctx.Err()
		case req, ok := <-h.requests:
			if !ok {
				return nil
			}
			h.route(req)
			h.metrics.HubQueueDepth.Set(float64(len(h.requests)))
		}
	}
}

func (h *Hub) route(req Request) {
	switch r := req.(type) {
	case Register:
		h.handleRegister(r)
	case Deregister:
		h.handleDeregister(r)
	case SendMessage:
		h.handleSend(r)
	case SetTyping:
		h.handleTyping(r)
	case EndSession:
		h.handleEndSession(r)
	default:
		// Unreachable while Request stays a closed union.
		h.log.Error(fmt.Sprintf("Unknown hub request %T", req))
	}
}

func (h *Hub) handleRegister(req Register) {
	p := req.Conn.Participant()
	h.registry.Add(req.Conn)
	h.metrics.ConnectionsOpen.WithLabelValues(string(p.Role)).Inc()
	h.log.Debug("Connection registered",
		"connection_id", req.Conn.ID(), "participant_id", p.ID, "role", p.Role)

	if p.IsCustomer() {
		if first := h.presence.Connect(p); first {
			h.metrics.CustomersOnline.Set(float64(h.presence.OnlineCount()))
			h.broadcastToAdmins(event.CustomerOnline{CustomerID: p.ID, DisplayName: p.DisplayName})
		}
		return
	}

	// Admins joining mid-session get the full picture immediately.
	req.Conn.Deliver(event.PresenceSnapshot{Customers: h.presence.Snapshot()})
}

func (h *Hub) handleDeregister(req Deregister) {
	conn, ok := h.registry.Remove(req.ConnectionID)
	if !ok {
		return
	}
	p := conn.Participant()
	h.metrics.ConnectionsOpen.WithLabelValues(string(p.Role)).Dec()
	h.log.Debug("Connection deregistered",
		"connection_id", req.ConnectionID, "participant_id", p.ID, "role", p.Role)

	if p.IsCustomer() {
		if last := h.presence.Disconnect(p); last {
			h.metrics.CustomersOnline.Set(float64(h.presence.OnlineCount()))
			delete(h.typing, p.ID)
			h.broadcastToAdmins(event.CustomerOffline{CustomerID: p.ID})
		}
	}
}

func (h *Hub) broadcastToAdmins(e event.Event) {
	for _, conn := range h.registry.AdminConns() {
		conn.Deliver(e)
	}
}
