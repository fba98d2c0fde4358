package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"chat-broker/domain/event"
	"chat-broker/errors"

	"github.com/stretchr/testify/require"
)

func TestDecode_ValidEnvelope(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"type":"message","conversation_id":"abc","data":{"content":"hi"}}`))

	req.NoError(err)
	req.Equal(KindMessage, env.Type)
	req.Equal("abc", env.ConversationID)
}

func TestDecode_NotJSON(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`not json at all`))
	req.ErrorIs(err, errors.ErrMalformedEnvelope)
}

func TestDecode_MissingType(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"conversation_id":"abc"}`))
	req.ErrorIs(err, errors.ErrMalformedEnvelope)
}

func TestEncode_NewMessage(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env, err := Encode(event.NewMessage{
		Conversation: "abc",
		SenderID:     "user-a",
		Content:      "hi",
		MessageType:  "text",
		At:           at,
	})
	req.NoError(err)
	req.Equal(KindNewMessage, env.Type)
	req.Equal("abc", env.ConversationID)

	var data map[string]any
	req.NoError(json.Unmarshal(env.Data, &data))
	req.Equal("user-a", data["sender_id"])
	req.Equal("abc", data["conversation_id"])
	req.Equal("hi", data["content"])
	req.Equal("text", data["message_type"])
	req.NotEmpty(data["timestamp"])
}

func TestEncode_Error(t *testing.T) {
	req := require.New(t)

	env, err := Encode(event.Error{Reason: "not subscribed"})
	req.NoError(err)
	req.Equal(KindError, env.Type)
	req.Empty(env.ConversationID)
	req.JSONEq(`{"error":"not subscribed"}`, string(env.Data))
}

func TestEncode_Typing_ExcludesNothingFromWireShape(t *testing.T) {
	req := require.New(t)

	env, err := Encode(event.Typing{Conversation: "abc", UserID: "user-a", IsTyping: true, At: time.Now()})
	req.NoError(err)
	req.Equal(KindTyping, env.Type)

	var data map[string]any
	req.NoError(json.Unmarshal(env.Data, &data))
	req.Equal(true, data["is_typing"])
	req.Equal("user-a", data["user_id"])
}
