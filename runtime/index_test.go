package runtime

import (
	"context"
	"log/slog"
	"testing"

	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/errors"
	"chat-broker/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestIndex_Subscribe_Idempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockMembershipOracle(ctrl)
	oracle.EXPECT().IsMember(gomock.Any(), domain.ConversationID("abc"), "user-1").
		Return(true, nil).Times(2)

	index := NewIndex(slog.Default(), oracle, newTestMetrics())
	sink := &captureSink{}
	conn := newConnection("user-1", "10.0.0.1:1", sink)

	// When the same connection subscribes twice
	req.NoError(index.Subscribe(context.Background(), conn, "abc"))
	req.NoError(index.Subscribe(context.Background(), conn, "abc"))

	// Then exactly one entry exists, in both directions
	req.Len(index.SubscribersOf("abc"), 1)
	req.Equal([]domain.ConversationID{"abc"}, index.SubscriptionsOf(conn))

	// And both calls were confirmed
	var confirmed int
	for _, e := range sink.All() {
		if _, ok := e.(event.Subscribed); ok {
			confirmed++
		}
	}
	req.Equal(2, confirmed)
}

func TestIndex_Subscribe_OracleConsultedEveryCall(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The oracle's answer is a gate, not a cache: three subscribes,
	// three consultations.
	oracle := mocks.NewMockMembershipOracle(ctrl)
	oracle.EXPECT().IsMember(gomock.Any(), domain.ConversationID("abc"), "user-1").
		Return(true, nil).Times(3)

	index := NewIndex(slog.Default(), oracle, newTestMetrics())
	conn := newConnection("user-1", "10.0.0.1:1", &captureSink{})

	for range 3 {
		req.NoError(index.Subscribe(context.Background(), conn, "abc"))
	}
}

func TestIndex_Subscribe_Denied(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockMembershipOracle(ctrl)
	oracle.EXPECT().IsMember(gomock.Any(), domain.ConversationID("abc"), "user-2").
		Return(false, nil)

	index := NewIndex(slog.Default(), oracle, newTestMetrics())
	sink := &captureSink{}
	conn := newConnection("user-2", "10.0.0.1:1", sink)

	// When the oracle denies membership
	err := index.Subscribe(context.Background(), conn, "abc")

	// Then no state changes and the connection gets an error event
	req.ErrorIs(err, errors.ErrNotAMember)
	req.Empty(index.SubscribersOf("abc"))
	req.Empty(index.SubscriptionsOf(conn))

	events := sink.All()
	req.Len(events, 1)
	req.IsType(event.Error{}, events[0])
}

func TestIndex_Subscribe_EvictedDuringMembershipCheck(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	verifier := mocks.NewMockIdentityVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any()).Return("user-d", nil)
	oracle := mocks.NewMockMembershipOracle(ctrl)

	log := slog.Default()
	metrics := newTestMetrics()
	index := NewIndex(log, oracle, metrics)
	registry := NewRegistry(log, verifier, index, metrics)

	conn, err := registry.Admit("token", &captureSink{}, "10.0.0.1:1")
	req.NoError(err)

	// Given the eviction sequence lands while the oracle call is in
	// flight
	oracle.EXPECT().IsMember(gomock.Any(), domain.ConversationID("abc"), "user-d").
		DoAndReturn(func(context.Context, domain.ConversationID, string) (bool, error) {
			conn.Close(domain.CloseHeartbeatTimeout)
			registry.Remove(conn.ID)
			return true, nil
		})

	// When the in-flight subscribe completes
	err = index.Subscribe(context.Background(), conn, "abc")

	// Then the closed connection is refused and never enters the map
	req.ErrorIs(err, errors.ErrConnectionClosed)
	req.Empty(index.SubscribersOf("abc"))
	req.Empty(index.SubscriptionsOf(conn))

	// And the read pump's later removal stays a clean no-op
	registry.Remove(conn.ID)
	req.Empty(index.SubscribersOf("abc"))
}

func TestIndex_Unsubscribe_RemovesBothDirections(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockMembershipOracle(ctrl)
	oracle.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)

	index := NewIndex(slog.Default(), oracle, newTestMetrics())
	sink := &captureSink{}
	conn := newConnection("user-1", "10.0.0.1:1", sink)
	req.NoError(index.Subscribe(context.Background(), conn, "abc"))

	index.Unsubscribe(conn, "abc")

	req.Empty(index.SubscribersOf("abc"))
	req.Empty(index.SubscriptionsOf(conn))
	req.False(index.IsSubscribed(conn, "abc"))

	last := sink.All()[len(sink.All())-1]
	req.IsType(event.Unsubscribed{}, last)
}

func TestIndex_Unsubscribe_NeverSubscribed_NoOp(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := NewIndex(slog.Default(), mocks.NewMockMembershipOracle(ctrl), newTestMetrics())
	sink := &captureSink{}
	conn := newConnection("user-1", "10.0.0.1:1", sink)

	// When unsubscribing from a conversation never subscribed to
	index.Unsubscribe(conn, "nowhere")

	// Then nothing happens, no error, no event
	req.Empty(sink.All())
}

func TestIndex_RemoveConnection_ReleasesEverySubscription(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockMembershipOracle(ctrl)
	oracle.EXPECT().IsMember(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(3)

	index := NewIndex(slog.Default(), oracle, newTestMetrics())
	conn := newConnection("user-1", "10.0.0.1:1", &captureSink{})
	other := newConnection("user-2", "10.0.0.1:2", &captureSink{})

	req.NoError(index.Subscribe(context.Background(), conn, "abc"))
	req.NoError(index.Subscribe(context.Background(), conn, "xyz"))
	req.NoError(index.Subscribe(context.Background(), other, "abc"))

	// When the connection is destroyed
	index.RemoveConnection(conn)

	// Then its handle is absent from every subscriber set
	req.Empty(index.SubscriptionsOf(conn))
	req.Empty(index.SubscribersOf("xyz"))

	// And other connections are untouched
	subscribers := index.SubscribersOf("abc")
	req.Len(subscribers, 1)
	req.Equal(other.ID, subscribers[0].ID)
}
