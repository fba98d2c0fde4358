package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"chat-broker/domain"
	"chat-broker/protocol"
	"chat-broker/runtime"
	"chat-broker/services"
	"chat-broker/sink"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// client pumps frames between one websocket connection and the broker.
// readPump feeds inbound envelopes to the dispatcher; writePump drains
// the connection's sink and serializes events onto the wire.
type client struct {
	log    *slog.Logger
	conn   *websocket.Conn
	handle *runtime.Connection
	sink   *sink.ChannelSink
	broker services.IBrokerService
	config ServerConfig

	closed atomic.Bool
	done   chan struct{}
}

func newClient(log *slog.Logger, conn *websocket.Conn, handle *runtime.Connection,
	connSink *sink.ChannelSink, broker services.IBrokerService, config ServerConfig) *client {
	return &client{
		log:    log,
		conn:   conn,
		handle: handle,
		sink:   connSink,
		broker: broker,
		config: config,
		done:   make(chan struct{}),
	}
}

// stop marks the client closed and releases the write pump. Safe to
// call from the read pump and the closer concurrently.
func (c *client) stop() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)
}

// readPump owns all reads on the socket. It exits on peer close or
// transport error, disconnecting the handle from the broker.
func (c *client) readPump() {
	defer func() {
		// Close before Disconnect: a handle must be Closed before its
		// registry entry goes, on every removal path.
		c.handle.Close(domain.ClosePeerClosed)
		c.broker.Disconnect(c.handle.ID)
		c.stop()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.handle.Touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Read failed",
					"handle", c.handle.ID, "user_id", c.handle.UserID, "error", err)
			}
			return
		}

		if result := c.broker.HandleInbound(ctx, c.handle, raw); result.Code != protocol.ResultOK {
			// The error envelope already went back to the peer; the
			// connection stays open.
			c.log.Debug("Envelope rejected",
				"handle", c.handle.ID, "code", result.Code, "error", result.Err)
		}
	}
}

// writePump owns all writes on the socket: serialized sink events plus
// transport-level pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case e, ok := <-c.sink.Events():
			if !ok {
				return
			}

			env, err := protocol.Encode(e)
			if err != nil {
				c.log.Error("Failed to encode event", "handle", c.handle.ID, "error", err)
				continue
			}
			payload, err := json.Marshal(env)
			if err != nil {
				c.log.Error("Failed to marshal envelope", "handle", c.handle.ID, "error", err)
				continue
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "handle", c.handle.ID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeWithReason is installed as the handle's closer; the liveness
// monitor and graceful shutdown go through it so the peer always sees
// a documented close code.
func (c *client) closeWithReason(reason domain.CloseReason) {
	if c.closed.Swap(true) {
		return
	}

	code := CloseCodeInternalError
	switch reason {
	case domain.CloseHeartbeatTimeout:
		code = CloseCodeHeartbeatTimeout
	case domain.CloseAuthFailed:
		code = CloseCodeAuthFailed
	case domain.CloseShutdown:
		code = websocket.CloseGoingAway
	case domain.ClosePeerClosed:
		code = websocket.CloseNormalClosure
	}

	// Control frame first: releasing done lets the write pump's own
	// deferred conn.Close run.
	closeWith(c.conn, code, reason.String(), c.config.WriteTimeout)
	close(c.done)
	_ = c.conn.Close()
}
