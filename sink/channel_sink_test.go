package sink

import (
	"log/slog"
	"testing"

	"chat-broker/domain/event"
	"chat-broker/errors"

	"github.com/stretchr/testify/require"
)

func TestChannelSink_BuffersInOrder(t *testing.T) {
	req := require.New(t)
	s := NewChannelSink(slog.Default(), 4)

	req.NoError(s.Consume(event.NewMessage{Content: "first"}))
	req.NoError(s.Consume(event.NewMessage{Content: "second"}))

	first := (<-s.Events()).(event.NewMessage)
	second := (<-s.Events()).(event.NewMessage)
	req.Equal("first", first.Content)
	req.Equal("second", second.Content)
}

func TestChannelSink_FullBufferDropsWithoutBlocking(t *testing.T) {
	req := require.New(t)
	s := NewChannelSink(slog.Default(), 1)

	req.NoError(s.Consume(event.NewMessage{Content: "kept"}))

	// The second consume must return immediately with an error
	err := s.Consume(event.NewMessage{Content: "dropped"})
	req.ErrorIs(err, errors.ErrSinkFull)

	kept := (<-s.Events()).(event.NewMessage)
	req.Equal("kept", kept.Content)
}
