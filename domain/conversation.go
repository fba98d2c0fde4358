// Package domain holds the identifiers and value types shared across
// the broker. Conversations and users are owned by external systems;
// the broker only carries their identifiers.
package domain

// ConversationID identifies a conversation. Opaque to the broker;
// membership is decided by the external oracle.
type ConversationID string

// MessageType tags the content of a relayed message.
type MessageType string

const (
	MessageTypeText MessageType = "text"
)
