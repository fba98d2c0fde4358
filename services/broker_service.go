package services

import (
	"context"

	"chat-broker/contract"
	"chat-broker/protocol"
	"chat-broker/runtime"

	"github.com/google/uuid"
)

// IBrokerService is the surface the transport layer talks to. It hides
// the registry/index/router wiring behind three calls: admit a
// connection, feed it inbound frames, disconnect it.
type IBrokerService interface {
	Admit(credential string, sink contract.EventSink, remoteAddr string) (*runtime.Connection, error)
	HandleInbound(ctx context.Context, c *runtime.Connection, raw []byte) protocol.Result
	Disconnect(handle uuid.UUID)
}

type BrokerService struct {
	registry   *runtime.Registry
	dispatcher *protocol.Dispatcher
}

func NewBrokerService(registry *runtime.Registry, dispatcher *protocol.Dispatcher) *BrokerService {
	return &BrokerService{registry: registry, dispatcher: dispatcher}
}

func (s *BrokerService) Admit(credential string, sink contract.EventSink, remoteAddr string) (*runtime.Connection, error) {
	return s.registry.Admit(credential, sink, remoteAddr)
}

func (s *BrokerService) HandleInbound(ctx context.Context, c *runtime.Connection, raw []byte) protocol.Result {
	return s.dispatcher.Dispatch(ctx, c, raw)
}

func (s *BrokerService) Disconnect(handle uuid.UUID) {
	s.registry.Remove(handle)
}
