// Package event defines the server-originated events relayed to
// connected clients. Events are transient; none are persisted here.
package event

import (
	"time"

	"chat-broker/domain"

	"github.com/google/uuid"
)

// DomainEvent is the unit handed to sinks by the broadcast router.
type DomainEvent interface {
	ConversationID() domain.ConversationID
}

// Connected confirms a successful handshake to the new connection.
type Connected struct {
	UserID string
	At     time.Time
}

func (e Connected) ConversationID() domain.ConversationID { return "" }

// Subscribed confirms that a subscribe request was recorded.
type Subscribed struct {
	Conversation domain.ConversationID
	At           time.Time
}

func (e Subscribed) ConversationID() domain.ConversationID { return e.Conversation }

// Unsubscribed confirms that a subscription was released.
type Unsubscribed struct {
	Conversation domain.ConversationID
	At           time.Time
}

func (e Unsubscribed) ConversationID() domain.ConversationID { return e.Conversation }

// NewMessage is the relayed form of a chat message. The durable record
// is written by an external collaborator; the broker only fans it out.
type NewMessage struct {
	ID           uuid.UUID
	Conversation domain.ConversationID
	SenderID     string
	Content      string
	MessageType  domain.MessageType
	At           time.Time
}

func (e NewMessage) ConversationID() domain.ConversationID { return e.Conversation }

// Typing signals that a participant started or stopped typing.
type Typing struct {
	Conversation domain.ConversationID
	UserID       string
	IsTyping     bool
	At           time.Time
}

func (e Typing) ConversationID() domain.ConversationID { return e.Conversation }

// ReadReceipt signals that a participant read a message.
type ReadReceipt struct {
	Conversation domain.ConversationID
	UserID       string
	MessageID    string
	At           time.Time
}

func (e ReadReceipt) ConversationID() domain.ConversationID { return e.Conversation }

// Error reports a recoverable failure to the originating connection
// only. It never terminates the connection.
type Error struct {
	Reason string
}

func (e Error) ConversationID() domain.ConversationID { return "" }
