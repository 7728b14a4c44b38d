// Package rest exposes the read side of the chat: conversation
// history, health and metrics. The relay and the session controller
// are the only writers to the message store; everything here is a
// read-only view over it.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"support-chat/auth"
	"support-chat/domain"
	"support-chat/repositories"
)

type API struct {
	log      *slog.Logger
	store    repositories.IMessageRepository
	resolver auth.Resolver
}

func NewAPI(log *slog.Logger, store repositories.IMessageRepository, resolver auth.Resolver) *API {
	return &API{log: log, store: store, resolver: resolver}
}

// Router assembles the HTTP surface: websocket upgrade, history REST,
// health and metrics.
func (a *API) Router(wsHandler http.Handler, registry *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/ws", wsHandler)
	r.Get("/api/messages/{customerID}", a.handleHistory)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

type historyMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderRole  string    `json:"sender_role"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type historyResponse struct {
	CustomerID string           `json:"customer_id"`
	Messages   []historyMessage `json:"messages"`
}

// handleHistory returns the full persisted conversation of one
// customer. Admins may read any thread; a customer only their own.
func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	participant, err := a.resolver.ResolveParticipant(bearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	customerID := chi.URLParam(r, "customerID")
	if !participant.IsAdmin() && participant.ID != customerID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	stored, err := a.store.GetMessages(customerID)
	if err != nil {
		a.log.Error("History fetch failed", "customer_id", customerID, "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	messages := lo.Map(repositories.ToDomain(stored), func(item domain.Message, _ int) historyMessage {
		return historyMessage{
			ID:          item.ID.String(),
			SenderID:    item.SenderID,
			SenderRole:  string(item.SenderRole),
			RecipientID: item.RecipientID,
			Body:        item.Body,
			CreatedAt:   item.CreatedAt,
		}
	})
	if messages == nil {
		messages = []historyMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(historyResponse{CustomerID: customerID, Messages: messages}); err != nil {
		a.log.Error("Failed to write history response", "error", err)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
