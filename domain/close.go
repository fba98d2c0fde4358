package domain

// CloseReason documents why the broker terminated a connection. Every
// broker-initiated close carries one; the transport maps it to a wire
// close code.
type CloseReason int

const (
	CloseAuthFailed CloseReason = iota
	CloseHeartbeatTimeout
	CloseInternalError
	CloseShutdown
	ClosePeerClosed
)

func (r CloseReason) String() string {
	switch r {
	case CloseAuthFailed:
		return "authentication failed"
	case CloseHeartbeatTimeout:
		return "heartbeat timeout"
	case CloseInternalError:
		return "internal error"
	case CloseShutdown:
		return "server shutting down"
	case ClosePeerClosed:
		return "peer closed connection"
	default:
		return "unknown"
	}
}
