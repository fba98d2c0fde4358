package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-broker/domain"
	"chat-broker/observability"
	"chat-broker/runtime"
)

// LivenessWorker periodically scans the registry for connections that
// stopped producing traffic and evicts them: the underlying channel is
// closed with the heartbeat-timeout reason and the registry entry is
// removed, cascading into the subscription index.
//
// This is the only component allowed to evict a connection purely for
// inactivity; broadcast failures never trigger eviction.
type LivenessWorker struct {
	log      *slog.Logger
	registry *runtime.Registry
	interval time.Duration
	timeout  time.Duration
	metrics  *observability.Metrics

	// now is swapped in tests to simulate elapsed time.
	now func() time.Time
}

func NewLivenessWorker(log *slog.Logger, registry *runtime.Registry,
	interval, timeout time.Duration, metrics *observability.Metrics) *LivenessWorker {
	return &LivenessWorker{
		log:      log,
		registry: registry,
		interval: interval,
		timeout:  timeout,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	w.log.Info("Starting liveness monitor",
		"interval", w.interval, "timeout", w.timeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep evicts every connection whose last heartbeat is older than the
// timeout. Exported so tests can trigger a scan without waiting for
// the ticker.
func (w *LivenessWorker) Sweep() {
	deadline := w.now().Add(-w.timeout)

	for _, conn := range w.registry.Snapshot() {
		if conn.LastHeartbeat().After(deadline) {
			continue
		}

		w.log.Info("Evicting stale connection",
			"handle", conn.ID,
			"user_id", conn.UserID,
			"last_heartbeat", conn.LastHeartbeat())

		conn.Close(domain.CloseHeartbeatTimeout)
		w.registry.Remove(conn.ID)
		w.metrics.EvictionsTotal.WithLabelValues(domain.CloseHeartbeatTimeout.String()).Inc()
	}
}
