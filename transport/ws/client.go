package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/observability"
	"support-chat/ratelimit"
	"support-chat/runtime"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameBytes = 8 * 1024

	enqueueTimeout = 5 * time.Second
)

var _ contract.Conn = (*Client)(nil)

// Client is one live websocket session for a participant. The read
// pump turns frames into hub requests; Deliver pushes hub events onto
// the buffered send channel drained by the write pump.
type Client struct {
	id          uuid.UUID
	participant domain.Participant
	hub         *runtime.Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *slog.Logger
	limiter     *ratelimit.MapLimiter
	metrics     *observability.Metrics

	closeOnce sync.Once
}

func newClient(hub *runtime.Hub, conn *websocket.Conn, participant domain.Participant,
	log *slog.Logger, limiter *ratelimit.MapLimiter, metrics *observability.Metrics,
	sendBuffer int) *Client {
	return &Client{
		id:          uuid.New(),
		participant: participant,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		log:         log,
		limiter:     limiter,
		metrics:     metrics,
	}
}

func (c *Client) ID() uuid.UUID { return c.id }

func (c *Client) Participant() domain.Participant { return c.participant }

// Deliver never blocks the hub. A consumer too slow to drain its own
// buffer gets disconnected; anything it missed is already durable and
// comes back on the next history fetch.
func (c *Client) Deliver(e event.Event) {
	data, err := EncodeEvent(e)
	if err != nil {
		c.log.Error("Failed to encode event", "event", e.Name(), "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("Send buffer full, closing slow connection",
			"connection_id", c.id, "participant_id", c.participant.ID)
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// readPump consumes client frames until the connection dies, then
// deregisters itself. Connection teardown is always initiated here,
// never by the hub.
func (c *Client) readPump() {
	defer func() {
		c.close()
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := c.hub.Enqueue(ctx, runtime.Deregister{ConnectionID: c.id}); err != nil {
			c.log.Error("Failed to deregister connection", "connection_id", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection read failed", "connection_id", c.id, "error", err)
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	frame, err := DecodeInbound(data)
	if err != nil {
		c.log.Debug("Rejected inbound frame", "connection_id", c.id, "error", err)
		c.Deliver(event.MessageError{Reason: "InvalidMessage"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	switch frame.Type {
	case frameSendMessage:
		if !c.limiter.Allow(c.participant.ID, time.Now()) {
			c.metrics.RateLimited.Inc()
			c.Deliver(event.MessageError{Reason: "rate_limited"})
			return
		}
		err = c.hub.Enqueue(ctx, runtime.SendMessage{
			Conn:        c,
			RecipientID: frame.RecipientID,
			Body:        frame.Body,
		})
	case frameTyping:
		// Typing shares the sender's budget but drops silently when
		// over it: staleness is acceptable, blocking is not.
		if !c.limiter.Allow(c.participant.ID, time.Now()) {
			c.metrics.RateLimited.Inc()
			return
		}
		err = c.hub.Enqueue(ctx, runtime.SetTyping{
			Conn:          c,
			CounterpartID: frame.CounterpartID,
			IsTyping:      frame.IsTyping,
		})
	case frameEndSession:
		if !c.participant.IsAdmin() {
			c.Deliver(event.SessionError{Reason: "forbidden"})
			return
		}
		err = c.hub.Enqueue(ctx, runtime.EndSession{Conn: c, CustomerID: frame.CustomerID})
	}

	if err != nil {
		c.log.Error("Failed to enqueue hub request",
			"connection_id", c.id, "frame_type", frame.Type, "error", err)
	}
}

// writePump drains the send channel and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
