package storage

import (
	"context"
	"log/slog"
	"testing"

	"chat-broker/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMembershipRepository_GrantAndCheck(t *testing.T) {
	req := require.New(t)
	repository := NewMembershipRepository(openTestDB(t), slog.Default())
	ctx := context.Background()

	// Given no membership recorded
	member, err := repository.IsMember(ctx, "abc", "user-1")
	req.NoError(err)
	req.False(member)

	// When membership is granted
	req.NoError(repository.Grant("abc", "user-1"))

	// Then the oracle answers yes, scoped to that pair only
	member, err = repository.IsMember(ctx, "abc", "user-1")
	req.NoError(err)
	req.True(member)

	member, err = repository.IsMember(ctx, "abc", "user-2")
	req.NoError(err)
	req.False(member)

	member, err = repository.IsMember(ctx, "xyz", "user-1")
	req.NoError(err)
	req.False(member)
}

func TestMembershipRepository_Revoke(t *testing.T) {
	req := require.New(t)
	repository := NewMembershipRepository(openTestDB(t), slog.Default())
	ctx := context.Background()

	req.NoError(repository.Grant("abc", "user-1"))
	req.NoError(repository.Revoke("abc", "user-1"))

	member, err := repository.IsMember(ctx, "abc", "user-1")
	req.NoError(err)
	req.False(member)

	// Revoking an absent membership is a no-op
	req.NoError(repository.Revoke("abc", "user-1"))
}

func TestMembershipRepository_SeparatorInIdentifierRejected(t *testing.T) {
	req := require.New(t)
	repository := NewMembershipRepository(openTestDB(t), slog.Default())
	ctx := context.Background()

	// A conversation id containing the key separator would make
	// ("a:b", "c") and ("a", "b:c") collide on the same key
	req.ErrorIs(repository.Grant("a:b", "c"), errors.ErrInvalidIdentifier)
	req.ErrorIs(repository.Grant("a", "b:c"), errors.ErrInvalidIdentifier)
	req.ErrorIs(repository.Revoke("a:b", "c"), errors.ErrInvalidIdentifier)

	// The colliding pair never answers yes and never pollutes the scan
	member, err := repository.IsMember(ctx, "a", "b:c")
	req.NoError(err)
	req.False(member)

	req.NoError(repository.Grant("a", "b"))
	members, err := repository.MembersOf("a")
	req.NoError(err)
	req.Equal([]string{"b"}, members)

	_, err = repository.MembersOf("a:b")
	req.ErrorIs(err, errors.ErrInvalidIdentifier)
}

func TestMembershipRepository_MembersOf(t *testing.T) {
	req := require.New(t)
	repository := NewMembershipRepository(openTestDB(t), slog.Default())

	req.NoError(repository.Grant("abc", "user-1"))
	req.NoError(repository.Grant("abc", "user-2"))
	req.NoError(repository.Grant("xyz", "user-3"))

	members, err := repository.MembersOf("abc")
	req.NoError(err)
	req.ElementsMatch([]string{"user-1", "user-2"}, members)

	members, err = repository.MembersOf("empty")
	req.NoError(err)
	req.Empty(members)
}
