//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-broker/domain"
	"chat-broker/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives server-originated events for one connection.
// Consume must not block: a sink whose buffer is full returns an error
// and the event is dropped for that sink only.
type EventSink interface {
	Consume(e event.DomainEvent) error
}

// IdentityVerifier resolves an opaque handshake credential into a
// stable user identity. Treated as a black box by the broker.
type IdentityVerifier interface {
	Verify(credential string) (userID string, err error)
}

// MembershipOracle answers whether a user may subscribe to a
// conversation. It is authoritative and consulted on every subscribe;
// the broker never caches its answers.
type MembershipOracle interface {
	IsMember(ctx context.Context, conversation domain.ConversationID, userID string) (bool, error)
}

// PushHook is invoked after a broadcast that found no local subscriber
// besides the sender, so a caller can decide to invoke an external
// push-notification dispatcher. The broker never calls one directly.
type PushHook func(conversation domain.ConversationID, e event.DomainEvent)
