// Package protocol implements the wire protocol of the relay broker:
// the JSON envelope codec and the per-connection dispatcher.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/errors"

	"github.com/go-playground/validator/v10"
)

// Kind tags an envelope with its protocol meaning.
type Kind string

// Client-originated kinds.
const (
	KindSubscribe   Kind = "subscribe"
	KindUnsubscribe Kind = "unsubscribe"
	KindMessage     Kind = "message"
	KindTyping      Kind = "typing"
	KindReadReceipt Kind = "read_receipt"
	KindHeartbeat   Kind = "heartbeat"
)

// Server-originated kinds.
const (
	KindConnected    Kind = "connected"
	KindSubscribed   Kind = "subscribed"
	KindUnsubscribed Kind = "unsubscribed"
	KindNewMessage   Kind = "new_message"
	KindError        Kind = "error"
)

var validate = validator.New()

// Envelope is the tagged unit of wire exchange, in both directions.
type Envelope struct {
	Type           Kind            `json:"type" validate:"required"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// MessagePayload carries a client `message` envelope.
type MessagePayload struct {
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"message_type"`
}

// TypingPayload carries a client `typing` envelope.
type TypingPayload struct {
	IsTyping bool `json:"is_typing"`
}

// ReadReceiptPayload carries a client `read_receipt` envelope.
type ReadReceiptPayload struct {
	MessageID string `json:"message_id" validate:"required"`
}

// Decode parses a raw inbound frame into an Envelope. The payload is
// left raw; kind-specific decoding happens in the dispatcher.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedEnvelope, err)
	}
	if err := validate.Struct(env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedEnvelope, err)
	}
	return env, nil
}

func decodePayload(env Envelope, out any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: missing data", errors.ErrMalformedEnvelope)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedEnvelope, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedEnvelope, err)
	}
	return nil
}

type connectedData struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriptionData struct {
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type newMessageData struct {
	SenderID       string    `json:"sender_id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	Timestamp      time.Time `json:"timestamp"`
}

type typingData struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	IsTyping       bool      `json:"is_typing"`
	Timestamp      time.Time `json:"timestamp"`
}

type readReceiptData struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type errorData struct {
	Error string `json:"error"`
}

// Encode turns a server-originated domain event into its wire envelope.
func Encode(e event.DomainEvent) (Envelope, error) {
	switch evt := e.(type) {
	case event.Connected:
		return wrap(KindConnected, "", connectedData{UserID: evt.UserID, Timestamp: evt.At})
	case event.Subscribed:
		return wrap(KindSubscribed, evt.Conversation,
			subscriptionData{ConversationID: string(evt.Conversation), Timestamp: evt.At})
	case event.Unsubscribed:
		return wrap(KindUnsubscribed, evt.Conversation,
			subscriptionData{ConversationID: string(evt.Conversation), Timestamp: evt.At})
	case event.NewMessage:
		return wrap(KindNewMessage, evt.Conversation, newMessageData{
			SenderID:       evt.SenderID,
			ConversationID: string(evt.Conversation),
			Content:        evt.Content,
			MessageType:    string(evt.MessageType),
			Timestamp:      evt.At,
		})
	case event.Typing:
		return wrap(KindTyping, evt.Conversation, typingData{
			UserID:         evt.UserID,
			ConversationID: string(evt.Conversation),
			IsTyping:       evt.IsTyping,
			Timestamp:      evt.At,
		})
	case event.ReadReceipt:
		return wrap(KindReadReceipt, evt.Conversation, readReceiptData{
			UserID:         evt.UserID,
			ConversationID: string(evt.Conversation),
			MessageID:      evt.MessageID,
			Timestamp:      evt.At,
		})
	case event.Error:
		return wrap(KindError, "", errorData{Error: evt.Reason})
	default:
		return Envelope{}, fmt.Errorf("no wire encoding for event %T", e)
	}
}

func wrap(kind Kind, conversation domain.ConversationID, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	return Envelope{Type: kind, ConversationID: string(conversation), Data: raw}, nil
}
