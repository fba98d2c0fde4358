package runtime

import (
	"sync"

	"chat-broker/domain/event"
	"chat-broker/errors"
	"chat-broker/observability"

	"github.com/prometheus/client_golang/prometheus"
)

// captureSink records every event it consumes; shared by the registry,
// index and router tests.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) All() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

// fullSink simulates a peer that stopped draining its buffer.
type fullSink struct{}

func (fullSink) Consume(event.DomainEvent) error { return errors.ErrSinkFull }

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}
