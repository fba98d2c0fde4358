package runtime

import (
	"log/slog"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/observability"
)

// Router fans an event out to every connection subscribed to a
// conversation. Delivery is best effort: each send is non-blocking and
// a failure for one subscriber never aborts delivery to the rest. The
// router never evicts a connection; that is the liveness monitor's
// exclusive responsibility.
//
// For a single conversation, events broadcast in order by the same
// sender reach each subscriber in that relative order, because the
// sender's dispatch runs on its own read loop and sinks are FIFO
// buffered channels. No ordering is promised across senders.
type Router struct {
	log     *slog.Logger
	index   *Index
	metrics *observability.Metrics

	// pushHook, when set, is called after a broadcast that reached no
	// connection other than the origin. The caller decides whether to
	// invoke the external push-notification dispatcher; the router
	// itself never does.
	pushHook contract.PushHook
}

func NewRouter(log *slog.Logger, index *Index, metrics *observability.Metrics) *Router {
	return &Router{log: log, index: index, metrics: metrics}
}

func (r *Router) SetPushHook(hook contract.PushHook) {
	r.pushHook = hook
}

// Broadcast delivers an event to every subscriber of the conversation.
// When echoToOrigin is false the origin connection is excluded from the
// fan-out (typing indicators, read receipts); messages echo back to
// their sender. Returns the number of successful deliveries.
func (r *Router) Broadcast(conversation domain.ConversationID, e event.DomainEvent,
	origin *Connection, echoToOrigin bool) int {
	subscribers := r.index.SubscribersOf(conversation)
	r.metrics.BroadcastsTotal.Inc()

	delivered := 0
	others := 0
	for _, c := range subscribers {
		if origin != nil && c.ID == origin.ID && !echoToOrigin {
			continue
		}

		if err := c.Sink().Consume(e); err != nil {
			// Peer buffer full or channel already closed. Logged and
			// skipped; the remaining subscribers still get the event.
			r.metrics.DroppedTotal.Inc()
			r.log.Warn("Broadcast delivery dropped",
				"conversation", conversation,
				"handle", c.ID,
				"user_id", c.UserID,
				"error", err)
			continue
		}

		delivered++
		if origin == nil || c.ID != origin.ID {
			others++
		}
	}

	r.metrics.DeliveriesTotal.Add(float64(delivered))

	if others == 0 && r.pushHook != nil {
		r.pushHook(conversation, e)
	}
	return delivered
}
