package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/errors"
	"chat-broker/observability"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Index is the bidirectional mapping between conversations and the
// connections currently subscribed to them. Both directions (the
// per-conversation subscriber map and each connection's own
// subscription set) are mutated under the same lock, so readers can
// never observe a half-applied subscribe or unsubscribe.
type Index struct {
	mu          sync.RWMutex
	subscribers map[domain.ConversationID]map[uuid.UUID]*Connection

	oracle  contract.MembershipOracle
	log     *slog.Logger
	metrics *observability.Metrics
}

func NewIndex(log *slog.Logger, oracle contract.MembershipOracle,
	metrics *observability.Metrics) *Index {
	return &Index{
		subscribers: make(map[domain.ConversationID]map[uuid.UUID]*Connection),
		oracle:      oracle,
		log:         log,
		metrics:     metrics,
	}
}

// Subscribe gates the request through the membership oracle, then
// records the mapping in both directions and confirms with a
// `subscribed` event. The oracle is consulted on every call; its
// answer is a gate, not a cache. Re-subscribing is idempotent.
func (i *Index) Subscribe(ctx context.Context, c *Connection, conversation domain.ConversationID) error {
	member, err := i.oracle.IsMember(ctx, conversation, c.UserID)
	if err != nil {
		return fmt.Errorf("membership check failed for %s: %w", conversation, err)
	}
	if !member {
		i.emit(c, event.Error{Reason: "not a member of conversation " + string(conversation)})
		return errors.ErrNotAMember
	}

	i.mu.Lock()
	// The oracle call is a suspension point: the liveness monitor may
	// have evicted the connection in the meantime. Close always precedes
	// the registry cascade and RemoveConnection holds this same lock, so
	// a Closed connection seen here must never re-enter the map.
	if c.State() != StateActive {
		i.mu.Unlock()
		return errors.ErrConnectionClosed
	}
	set, ok := i.subscribers[conversation]
	if !ok {
		set = make(map[uuid.UUID]*Connection)
		i.subscribers[conversation] = set
	}
	_, already := set[c.ID]
	if !already {
		set[c.ID] = c
		c.subscriptions[conversation] = struct{}{}
	}
	i.mu.Unlock()

	if !already {
		i.metrics.SubscriptionsActive.Inc()
	}

	i.emit(c, event.Subscribed{Conversation: conversation, At: time.Now().UTC()})
	return nil
}

// Unsubscribe removes the mapping in both directions if present and
// confirms with an `unsubscribed` event. Unsubscribing from a
// conversation never subscribed to is a silent no-op.
func (i *Index) Unsubscribe(c *Connection, conversation domain.ConversationID) {
	i.mu.Lock()
	removed := false
	if set, ok := i.subscribers[conversation]; ok {
		if _, present := set[c.ID]; present {
			delete(set, c.ID)
			delete(c.subscriptions, conversation)
			removed = true
		}
		// No empty sets left behind, or the map grows forever.
		if len(set) == 0 {
			delete(i.subscribers, conversation)
		}
	}
	i.mu.Unlock()

	if !removed {
		return
	}

	i.metrics.SubscriptionsActive.Dec()
	i.emit(c, event.Unsubscribed{Conversation: conversation, At: time.Now().UTC()})
}

// SubscribersOf returns a snapshot of the connections subscribed to a
// conversation. A broadcast started after a completed unsubscribe will
// not see the removed connection.
func (i *Index) SubscribersOf(conversation domain.ConversationID) []*Connection {
	i.mu.RLock()
	defer i.mu.RUnlock()

	set, ok := i.subscribers[conversation]
	if !ok {
		return nil
	}
	return lo.Values(set)
}

// IsSubscribed is the dispatcher's precondition check for message,
// typing and read-receipt envelopes.
func (i *Index) IsSubscribed(c *Connection, conversation domain.ConversationID) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := c.subscriptions[conversation]
	return ok
}

// SubscriptionsOf returns the conversations a connection is currently
// subscribed to.
func (i *Index) SubscriptionsOf(c *Connection) []domain.ConversationID {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return lo.Keys(c.subscriptions)
}

// RemoveConnection releases every subscription entry a connection
// holds. Called by the Registry when the connection is destroyed.
func (i *Index) RemoveConnection(c *Connection) {
	i.mu.Lock()
	released := 0
	for conversation := range c.subscriptions {
		if set, ok := i.subscribers[conversation]; ok {
			delete(set, c.ID)
			if len(set) == 0 {
				delete(i.subscribers, conversation)
			}
		}
		delete(c.subscriptions, conversation)
		released++
	}
	i.mu.Unlock()

	if released > 0 {
		i.metrics.SubscriptionsActive.Sub(float64(released))
	}
}

// emit pushes an event to a single connection, best effort. A full
// sink is logged and counted, never fatal for the connection.
func (i *Index) emit(c *Connection, e event.DomainEvent) {
	if err := c.Sink().Consume(e); err != nil {
		i.metrics.DroppedTotal.Inc()
		i.log.Warn("Failed to deliver index event",
			"handle", c.ID, "user_id", c.UserID, "error", err)
	}
}
