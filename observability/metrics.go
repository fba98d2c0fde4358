package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the broker counters exposed on /metrics.
// Delivery drops and evictions are the interesting signals here: a
// rising drop rate means slow consumers, a rising eviction rate means
// flaky clients or an unreachable network segment.
type Metrics struct {
	ConnectionsActive   prometheus.Gauge
	SubscriptionsActive prometheus.Gauge
	BroadcastsTotal     prometheus.Counter
	DeliveriesTotal     prometheus.Counter
	DroppedTotal        prometheus.Counter
	EvictionsTotal      *prometheus.CounterVec
	AuthFailuresTotal   prometheus.Counter
	ProtocolErrorsTotal prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "broker_connections_active",
			Help: "Number of currently admitted connections.",
		}),
		SubscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "broker_subscriptions_active",
			Help: "Number of live (connection, conversation) subscription entries.",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "broker_broadcasts_total",
			Help: "Number of envelopes submitted for fan-out.",
		}),
		DeliveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "broker_deliveries_total",
			Help: "Number of per-subscriber deliveries that succeeded.",
		}),
		DroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "broker_deliveries_dropped_total",
			Help: "Number of per-subscriber deliveries dropped (full or closed sink).",
		}),
		EvictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_evictions_total",
			Help: "Number of connections evicted, by close reason.",
		}, []string{"reason"}),
		AuthFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "broker_auth_failures_total",
			Help: "Number of handshakes rejected by the identity verifier.",
		}),
		ProtocolErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "broker_protocol_errors_total",
			Help: "Number of inbound envelopes rejected as malformed or unauthorized.",
		}),
	}
}
