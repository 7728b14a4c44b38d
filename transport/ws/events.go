// Package ws carries the live chat protocol over websocket. Every
// frame is a flat JSON object with a "type" tag; the set of types is
// the closed event union from domain/event on the way out and the
// inbound request union on the way in.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"support-chat/domain"
	"support-chat/domain/event"
)

var validate = validator.New()

type presenceEntryWire struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Connections   int    `json:"connections"`
}

type messageWire struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderRole  string    `json:"sender_role"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMessageWire(m domain.Message) messageWire {
	return messageWire{
		ID:          m.ID.String(),
		SenderID:    m.SenderID,
		SenderRole:  string(m.SenderRole),
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}

// EncodeEvent maps a hub event onto its wire frame. The switch is
// exhaustive over the event union; an unknown event is a programming
// error surfaced as such.
func EncodeEvent(e event.Event) ([]byte, error) {
	switch evt := e.(type) {
	case event.PresenceSnapshot:
		return json.Marshal(struct {
			Type      string              `json:"type"`
			Customers []presenceEntryWire `json:"customers"`
		}{e.Name(), lo.Map(evt.Customers, func(item domain.PresenceEntry, _ int) presenceEntryWire {
			return presenceEntryWire{
				ParticipantID: item.ParticipantID,
				DisplayName:   item.DisplayName,
				Connections:   item.Connections,
			}
		})})
	case event.CustomerOnline:
		return json.Marshal(struct {
			Type        string `json:"type"`
			CustomerID  string `json:"customer_id"`
			DisplayName string `json:"display_name"`
		}{e.Name(), evt.CustomerID, evt.DisplayName})
	case event.CustomerOffline:
		return json.Marshal(struct {
			Type       string `json:"type"`
			CustomerID string `json:"customer_id"`
		}{e.Name(), evt.CustomerID})
	case event.NewMessage:
		return json.Marshal(struct {
			Type    string      `json:"type"`
			Message messageWire `json:"message"`
		}{e.Name(), toMessageWire(evt.Message)})
	case event.MessageSent:
		return json.Marshal(struct {
			Type      string      `json:"type"`
			Message   messageWire `json:"message"`
			Delivered bool        `json:"delivered"`
		}{e.Name(), toMessageWire(evt.Message), evt.Delivered})
	case event.UserTyping:
		return json.Marshal(struct {
			Type          string `json:"type"`
			ParticipantID string `json:"participant_id"`
			IsTyping      bool   `json:"is_typing"`
		}{e.Name(), evt.ParticipantID, evt.IsTyping})
	case event.SessionEnded:
		return json.Marshal(struct {
			Type         string `json:"type"`
			CustomerID   string `json:"customer_id"`
			DeletedCount int    `json:"deleted_count"`
		}{e.Name(), evt.CustomerID, evt.DeletedCount})
	case event.MessageError:
		return json.Marshal(struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}{e.Name(), evt.Reason})
	case event.SessionError:
		return json.Marshal(struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}{e.Name(), evt.Reason})
	default:
		return nil, fmt.Errorf("unencodable event %T", e)
	}
}

// Inbound frame types.
const (
	frameSendMessage = "send_message"
	frameTyping      = "typing"
	frameEndSession  = "end_chat_session"
)

type inboundFrame struct {
	Type string `json:"type"`

	// send_message
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`

	// typing
	CounterpartID string `json:"counterpart_id"`
	IsTyping      bool   `json:"is_typing"`

	// end_chat_session
	CustomerID string `json:"customer_id"`
}

type sendMessageFields struct {
	RecipientID string `validate:"required"`
}

type typingFields struct {
	CounterpartID string `validate:"required"`
}

type endSessionFields struct {
	CustomerID string `validate:"required"`
}

// DecodeInbound parses and validates one client frame. Body emptiness
// and length are deliberately not checked here: the hub owns message
// validation so that rejects always come back as message_error events.
func DecodeInbound(data []byte) (inboundFrame, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return inboundFrame{}, err
	}

	switch frame.Type {
	case frameSendMessage:
		return frame, validate.Struct(sendMessageFields{RecipientID: frame.RecipientID})
	case frameTyping:
		return frame, validate.Struct(typingFields{CounterpartID: frame.CounterpartID})
	case frameEndSession:
		return frame, validate.Struct(endSessionFields{CustomerID: frame.CustomerID})
	default:
		return inboundFrame{}, fmt.Errorf("unknown frame type %q", frame.Type)
	}
}
