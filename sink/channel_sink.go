package sink

import (
	"log/slog"

	"chat-broker/domain/event"
	"chat-broker/errors"
)

// ChannelSink buffers events for one connection behind a channel. The
// transport's write loop drains Events; Consume never blocks, so one
// slow peer cannot stall a broadcast for the rest of a conversation.
type ChannelSink struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewChannelSink(log *slog.Logger, bufferSize int) *ChannelSink {
	return &ChannelSink{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

// Consume implements contract.EventSink with a non-blocking send.
// A full buffer means the peer is not draining fast enough; the event
// is dropped for this sink only.
func (s *ChannelSink) Consume(e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	default:
		s.log.Debug("Sink buffer full, dropping event")
		return errors.ErrSinkFull
	}
}

func (s *ChannelSink) Events() <-chan event.DomainEvent {
	return s.events
}
