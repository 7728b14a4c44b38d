package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"support-chat/auth"
	"support-chat/observability"
	"support-chat/ratelimit"
	"support-chat/runtime"
)

// Handler upgrades HTTP requests to chat connections. The upgrade
// request is the join: it must carry a bearer credential resolvable
// to a participant, and the resolved identity is pinned to the
// connection for its whole lifetime. Clients never name their own
// role.
type Handler struct {
	log        *slog.Logger
	hub        *runtime.Hub
	resolver   auth.Resolver
	limiter    *ratelimit.MapLimiter
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewHandler(log *slog.Logger, hub *runtime.Hub, resolver auth.Resolver,
	limiter *ratelimit.MapLimiter, metrics *observability.Metrics, sendBuffer int) *Handler {
	return &Handler{
		log:      log,
		hub:      hub,
		resolver: resolver,
		limiter:  limiter,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the fronting proxy.
				return true
			},
		},
		sendBuffer: sendBuffer,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	participant, err := h.resolver.ResolveParticipant(bearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.hub, conn, participant, h.log, h.limiter, h.metrics, h.sendBuffer)
	if err := h.hub.Enqueue(r.Context(), runtime.Register{Conn: client}); err != nil {
		h.log.Error("Failed to register connection", "participant_id", participant.ID, "error", err)
		_ = conn.Close()
		return
	}

	h.log.Info("Participant joined",
		"connection_id", client.ID(), "participant_id", participant.ID, "role", participant.Role)

	go client.writePump()
	go client.readPump()
}

// bearerToken accepts the credential either as a query parameter
// (browser websocket clients cannot set headers) or as a standard
// Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
