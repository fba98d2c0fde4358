package protocol

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/errors"
	"chat-broker/observability"
	"chat-broker/runtime"

	"github.com/google/uuid"
)

// ResultCode classifies the outcome of one inbound envelope.
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultValidationError
	ResultAuthzError
	ResultInternalError
)

// Result is the typed outcome of a dispatch. A non-OK result has
// already been reported to the originating connection via an `error`
// envelope; it never closes the connection and never touches other
// connections' state.
type Result struct {
	Code ResultCode
	Err  error
}

func ok() Result { return Result{Code: ResultOK} }

// Dispatcher routes inbound envelopes to the registry, the index and
// the router according to the envelope kind and the connection's
// current subscription state.
type Dispatcher struct {
	log      *slog.Logger
	registry *runtime.Registry
	index    *runtime.Index
	router   *runtime.Router
	metrics  *observability.Metrics
}

func NewDispatcher(log *slog.Logger, registry *runtime.Registry, index *runtime.Index,
	router *runtime.Router, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
		index:    index,
		router:   router,
		metrics:  metrics,
	}
}

// Dispatch handles one raw inbound frame from an Active connection.
// Any inbound traffic refreshes the liveness timestamp first, so a
// chatty client never needs explicit heartbeats.
func (d *Dispatcher) Dispatch(ctx context.Context, c *runtime.Connection, raw []byte) Result {
	if c.State() != runtime.StateActive {
		return Result{Code: ResultValidationError, Err: errors.ErrConnectionClosed}
	}

	d.registry.Touch(c.ID)

	env, err := Decode(raw)
	if err != nil {
		return d.reject(c, "malformed envelope", err)
	}

	switch env.Type {
	case KindSubscribe:
		return d.handleSubscribe(ctx, c, env)
	case KindUnsubscribe:
		return d.handleUnsubscribe(c, env)
	case KindMessage:
		return d.handleMessage(c, env)
	case KindTyping:
		return d.handleTyping(c, env)
	case KindReadReceipt:
		return d.handleReadReceipt(c, env)
	case KindHeartbeat:
		// Touch already happened; nothing to relay.
		return ok()
	default:
		return d.reject(c, "unknown envelope kind: "+string(env.Type), errors.ErrUnknownEnvelopeKind)
	}
}

func (d *Dispatcher) handleSubscribe(ctx context.Context, c *runtime.Connection, env Envelope) Result {
	conversation, result := d.requireConversation(c, env)
	if result != nil {
		return *result
	}

	if err := d.index.Subscribe(ctx, c, conversation); err != nil {
		switch {
		case stderrors.Is(err, errors.ErrNotAMember):
			// The index already sent the error envelope.
			d.metrics.ProtocolErrorsTotal.Inc()
			return Result{Code: ResultAuthzError, Err: err}
		case stderrors.Is(err, errors.ErrConnectionClosed):
			// Evicted while the membership check was in flight.
			return Result{Code: ResultValidationError, Err: err}
		default:
			// Oracle failure is a broker-side problem, not the client's.
			d.sendError(c, "subscription temporarily unavailable")
			d.log.Error("Membership oracle failure",
				"conversation", conversation, "user_id", c.UserID, "error", err)
			return Result{Code: ResultInternalError, Err: err}
		}
	}
	return ok()
}

func (d *Dispatcher) handleUnsubscribe(c *runtime.Connection, env Envelope) Result {
	conversation, result := d.requireConversation(c, env)
	if result != nil {
		return *result
	}

	d.index.Unsubscribe(c, conversation)
	return ok()
}

func (d *Dispatcher) handleMessage(c *runtime.Connection, env Envelope) Result {
	conversation, result := d.requireConversation(c, env)
	if result != nil {
		return *result
	}
	if res := d.requireSubscription(c, conversation); res != nil {
		return *res
	}

	var payload MessagePayload
	if err := decodePayload(env, &payload); err != nil {
		return d.reject(c, "invalid message payload", err)
	}

	messageType := domain.MessageType(payload.MessageType)
	if messageType == "" {
		messageType = domain.MessageTypeText
	}

	// The durable record is written by the REST write path before or
	// independently of this relay; the sender sees its own echo.
	d.router.Broadcast(conversation, event.NewMessage{
		ID:           uuid.New(),
		Conversation: conversation,
		SenderID:     c.UserID,
		Content:      payload.Content,
		MessageType:  messageType,
		At:           time.Now().UTC(),
	}, c, true)
	return ok()
}

func (d *Dispatcher) handleTyping(c *runtime.Connection, env Envelope) Result {
	conversation, result := d.requireConversation(c, env)
	if result != nil {
		return *result
	}
	if res := d.requireSubscription(c, conversation); res != nil {
		return *res
	}

	var payload TypingPayload
	if err := decodePayload(env, &payload); err != nil {
		return d.reject(c, "invalid typing payload", err)
	}

	// No echo: the sender knows it is typing.
	d.router.Broadcast(conversation, event.Typing{
		Conversation: conversation,
		UserID:       c.UserID,
		IsTyping:     payload.IsTyping,
		At:           time.Now().UTC(),
	}, c, false)
	return ok()
}

func (d *Dispatcher) handleReadReceipt(c *runtime.Connection, env Envelope) Result {
	conversation, result := d.requireConversation(c, env)
	if result != nil {
		return *result
	}
	if res := d.requireSubscription(c, conversation); res != nil {
		return *res
	}

	var payload ReadReceiptPayload
	if err := decodePayload(env, &payload); err != nil {
		return d.reject(c, "invalid read_receipt payload", err)
	}

	d.router.Broadcast(conversation, event.ReadReceipt{
		Conversation: conversation,
		UserID:       c.UserID,
		MessageID:    payload.MessageID,
		At:           time.Now().UTC(),
	}, c, false)
	return ok()
}

func (d *Dispatcher) requireConversation(c *runtime.Connection, env Envelope) (domain.ConversationID, *Result) {
	if env.ConversationID == "" {
		res := d.reject(c, "conversation_id is required for "+string(env.Type), errors.ErrMissingConversationID)
		return "", &res
	}
	return domain.ConversationID(env.ConversationID), nil
}

func (d *Dispatcher) requireSubscription(c *runtime.Connection, conversation domain.ConversationID) *Result {
	if d.index.IsSubscribed(c, conversation) {
		return nil
	}
	res := d.reject(c, "not subscribed to conversation "+string(conversation), errors.ErrNotSubscribed)
	return &res
}

// reject reports a recoverable protocol violation to the sender only.
// The envelope is dropped, never retried.
func (d *Dispatcher) reject(c *runtime.Connection, reason string, err error) Result {
	d.metrics.ProtocolErrorsTotal.Inc()
	d.sendError(c, reason)
	d.log.Debug("Envelope rejected",
		"handle", c.ID, "user_id", c.UserID, "reason", reason)
	return Result{Code: ResultValidationError, Err: err}
}

func (d *Dispatcher) sendError(c *runtime.Connection, reason string) {
	if err := c.Sink().Consume(event.Error{Reason: reason}); err != nil {
		d.log.Warn("Failed to deliver error event", "handle", c.ID, "error", err)
	}
}
