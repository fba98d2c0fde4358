package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/mocks"
	"chat-broker/observability"
	"chat-broker/runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type noopSink struct{}

func (noopSink) Consume(event.DomainEvent) error { return nil }

type recordingCloser struct {
	mu      sync.Mutex
	reasons []domain.CloseReason
}

func (r *recordingCloser) close(reason domain.CloseReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recordingCloser) Reasons() []domain.CloseReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CloseReason(nil), r.reasons...)
}

func livenessFixture(t *testing.T) (*runtime.Registry, *runtime.Index, *LivenessWorker, *mocks.MockMembershipOracle, *mocks.MockIdentityVerifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	log := slog.Default()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	oracle := mocks.NewMockMembershipOracle(ctrl)
	verifier := mocks.NewMockIdentityVerifier(ctrl)
	index := runtime.NewIndex(log, oracle, metrics)
	registry := runtime.NewRegistry(log, verifier, index, metrics)
	worker := NewLivenessWorker(log, registry, 10*time.Millisecond, 30*time.Second, metrics)
	return registry, index, worker, oracle, verifier
}

func TestLiveness_EvictsStaleConnection(t *testing.T) {
	req := require.New(t)
	registry, index, worker, oracle, verifier := livenessFixture(t)

	// Given client D admitted and subscribed, then silent
	verifier.EXPECT().Verify(gomock.Any()).Return("user-d", nil)
	oracle.EXPECT().IsMember(gomock.Any(), domain.ConversationID("abc"), "user-d").Return(true, nil)

	conn, err := registry.Admit("token", noopSink{}, "10.0.0.1:1")
	req.NoError(err)
	closer := &recordingCloser{}
	conn.SetCloser(closer.close)
	req.NoError(index.Subscribe(context.Background(), conn, "abc"))

	// When the timeout elapses (simulated clock)
	worker.now = func() time.Time { return time.Now().Add(time.Minute) }
	worker.Sweep()

	// Then the channel is closed with the heartbeat-timeout reason
	req.Equal([]domain.CloseReason{domain.CloseHeartbeatTimeout}, closer.Reasons())
	req.Equal(runtime.StateClosed, conn.State())

	// And the handle is gone from the registry and every subscriber set
	req.Equal(0, registry.Len())
	req.Empty(index.SubscribersOf("abc"))
}

func TestLiveness_FreshConnectionSurvives(t *testing.T) {
	req := require.New(t)
	registry, _, worker, _, verifier := livenessFixture(t)

	verifier.EXPECT().Verify(gomock.Any()).Return("user-a", nil)
	conn, err := registry.Admit("token", noopSink{}, "10.0.0.1:1")
	req.NoError(err)
	closer := &recordingCloser{}
	conn.SetCloser(closer.close)

	worker.Sweep()

	req.Equal(1, registry.Len())
	req.Empty(closer.Reasons())
	req.Equal(runtime.StateActive, conn.State())
}

func TestLiveness_TouchDefersEviction(t *testing.T) {
	req := require.New(t)
	registry, _, worker, _, verifier := livenessFixture(t)

	verifier.EXPECT().Verify(gomock.Any()).Return("user-a", nil)
	conn, err := registry.Admit("token", noopSink{}, "10.0.0.1:1")
	req.NoError(err)

	// Inbound traffic 20s "ago" against a 30s timeout
	worker.now = func() time.Time { return time.Now().Add(20 * time.Second) }
	worker.Sweep()
	req.Equal(1, registry.Len())

	// Once past the timeout the connection goes
	worker.now = func() time.Time { return time.Now().Add(40 * time.Second) }
	worker.Sweep()
	req.Equal(0, registry.Len())
	req.Equal(runtime.StateClosed, conn.State())
}
