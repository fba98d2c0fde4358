package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-broker/contract"
	"chat-broker/domain/event"
	"chat-broker/observability"

	"github.com/google/uuid"
)

// Registry owns the canonical set of live connections. Admit and
// Remove are its only mutators; every other component goes through
// them instead of holding its own copy of the connection set.
type Registry struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection

	verifier contract.IdentityVerifier
	index    *Index
	log      *slog.Logger
	metrics  *observability.Metrics
}

func NewRegistry(log *slog.Logger, verifier contract.IdentityVerifier,
	index *Index, metrics *observability.Metrics) *Registry {
	return &Registry{
		connections: make(map[uuid.UUID]*Connection),
		verifier:    verifier,
		index:       index,
		log:         log,
		metrics:     metrics,
	}
}

// Admit authenticates a credential and, on success, creates and stores
// a Connection and emits the `connected` event to the new sink. On
// failure the caller must close the underlying channel with the
// auth-failed reason; nothing is stored.
//
// The same user may be admitted several times concurrently (one
// connection per device); broadcasts fan out per connection.
func (r *Registry) Admit(credential string, sink contract.EventSink, remoteAddr string) (*Connection, error) {
	userID, err := r.verifier.Verify(credential)
	if err != nil {
		r.metrics.AuthFailuresTotal.Inc()
		return nil, fmt.Errorf("admission refused: %w", err)
	}

	conn := newConnection(userID, remoteAddr, sink)

	r.mu.Lock()
	r.connections[conn.ID] = conn
	total := len(r.connections)
	r.mu.Unlock()

	r.metrics.ConnectionsActive.Inc()
	r.log.Info("Connection admitted",
		"user_id", userID,
		"handle", conn.ID,
		"remote_addr", remoteAddr,
		"total", total)

	if err := sink.Consume(event.Connected{UserID: userID, At: time.Now().UTC()}); err != nil {
		r.log.Warn("Failed to deliver connected event", "handle", conn.ID, "error", err)
	}
	return conn, nil
}

// Remove deletes the connection and cascades into the Subscription
// Index, releasing every subscription entry the connection held.
// Removing an already-removed handle is a no-op.
func (r *Registry) Remove(handle uuid.UUID) {
	r.mu.Lock()
	conn, ok := r.connections[handle]
	if ok {
		delete(r.connections, handle)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	r.index.RemoveConnection(conn)
	r.metrics.ConnectionsActive.Dec()
	r.log.Info("Connection removed", "user_id", conn.UserID, "handle", handle)
}

// Touch refreshes the liveness timestamp of a connection. Called on
// every inbound envelope. Unknown handles are ignored.
func (r *Registry) Touch(handle uuid.UUID) {
	r.mu.RLock()
	conn, ok := r.connections[handle]
	r.mu.RUnlock()

	if ok {
		conn.Touch()
	}
}

func (r *Registry) Get(handle uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[handle]
	return conn, ok
}

// Snapshot returns the current connections. Used by the liveness
// monitor scan and by graceful shutdown; the slice is a copy, safe to
// iterate without holding the lock.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
