// Package ws is the WebSocket transport of the relay broker: one
// upgraded connection per client, a bearer credential carried by the
// handshake, and a read/write pump pair per connection.
package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-broker/services"
	"chat-broker/sink"

	"github.com/gorilla/websocket"
)

// Application close codes, distinguishable by the client to decide
// whether to retry the handshake or reauthenticate.
const (
	CloseCodeAuthFailed       = 4001
	CloseCodeHeartbeatTimeout = 4002
	CloseCodeInternalError    = 4003
)

type ServerConfig struct {
	SinkBufferSize  int
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

// Server upgrades HTTP requests into broker connections.
type Server struct {
	log      *slog.Logger
	broker   services.IBrokerService
	upgrader websocket.Upgrader
	config   ServerConfig
}

func NewServer(log *slog.Logger, broker services.IBrokerService, config ServerConfig) *Server {
	return &Server{
		log:    log,
		broker: broker,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin enforcement belongs to the fronting proxy; the
			// broker trusts the credential, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP performs the upgrade handshake. The credential travels as
// a connection parameter (Authorization header or `token` query
// parameter), never as a relay envelope.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := bearerCredential(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	connSink := sink.NewChannelSink(s.log, s.config.SinkBufferSize)
	handle, err := s.broker.Admit(credential, connSink, r.RemoteAddr)
	if err != nil {
		s.log.Warn("Admission refused", "remote_addr", r.RemoteAddr, "error", err)
		closeWith(conn, CloseCodeAuthFailed, "authentication missing or invalid", s.config.WriteTimeout)
		_ = conn.Close()
		return
	}

	c := newClient(s.log, conn, handle, connSink, s.broker, s.config)
	handle.SetCloser(c.closeWithReason)

	go c.writePump()
	c.readPump()
}

func bearerCredential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Browser WebSocket clients cannot set headers on the handshake.
	return r.URL.Query().Get("token")
}

func closeWith(conn *websocket.Conn, code int, reason string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}
