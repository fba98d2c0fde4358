package runtime

import (
	"sync"
	"sync/atomic"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"

	"github.com/google/uuid"
)

// ConnState is the per-connection protocol state. Transitions only move
// forward: Authenticating -> Active -> Closed.
type ConnState int32

const (
	StateAuthenticating ConnState = iota
	StateActive
	StateClosed
)

// Connection is the broker-side handle for one persistent client
// session. It is created by Registry.Admit and destroyed by
// Registry.Remove; no other component owns its lifetime.
//
// The subscriptions set is mutated exclusively by the Index under the
// Index lock, so that the set and the per-conversation subscriber maps
// can never disagree.
type Connection struct {
	ID          uuid.UUID
	UserID      string
	RemoteAddr  string
	ConnectedAt time.Time

	sink          contract.EventSink
	state         atomic.Int32
	lastHeartbeat atomic.Int64 // unix nanos

	closeOnce sync.Once
	closer    func(reason domain.CloseReason)

	subscriptions map[domain.ConversationID]struct{} // guarded by Index.mu
}

func newConnection(userID, remoteAddr string, sink contract.EventSink) *Connection {
	c := &Connection{
		ID:            uuid.New(),
		UserID:        userID,
		RemoteAddr:    remoteAddr,
		ConnectedAt:   time.Now().UTC(),
		sink:          sink,
		subscriptions: make(map[domain.ConversationID]struct{}),
	}
	c.state.Store(int32(StateActive))
	c.Touch()
	return c
}

func (c *Connection) Sink() contract.EventSink { return c.sink }

func (c *Connection) State() ConnState { return ConnState(c.state.Load()) }

// Touch records inbound traffic for the liveness monitor. Any envelope
// counts, not only explicit heartbeats.
func (c *Connection) Touch() {
	c.lastHeartbeat.Store(time.Now().UnixNano())
}

func (c *Connection) LastHeartbeat() time.Time {
	return time.Unix(0, c.lastHeartbeat.Load())
}

// SetCloser installs the transport callback that closes the underlying
// channel with a documented reason. Installed once by the transport
// right after admission.
func (c *Connection) SetCloser(closer func(reason domain.CloseReason)) {
	c.closer = closer
}

// Close transitions the connection to Closed and closes the underlying
// channel. The transition is terminal and idempotent; concurrent
// callers past the first are no-ops.
func (c *Connection) Close(reason domain.CloseReason) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		if c.closer != nil {
			c.closer(reason)
		}
	})
}
