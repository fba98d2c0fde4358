//go:generate go run go.uber.org/mock/mockgen -source=membership_repository.go -destination=../../mocks/mock_membership_repository.go -package=mocks
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chat-broker/domain"
	"chat-broker/errors"

	"github.com/dgraph-io/badger/v4"
)

// IMembershipRepository is the durable side of the conversation
// membership oracle: who may subscribe to what. The broker consults it
// on every subscribe and never caches the answer.
type IMembershipRepository interface {
	IsMember(ctx context.Context, conversation domain.ConversationID, userID string) (bool, error)
	Grant(conversation domain.ConversationID, userID string) error
	Revoke(conversation domain.ConversationID, userID string) error
	MembersOf(conversation domain.ConversationID) ([]string, error)
}

// MembershipRepository stores membership facts in BadgerDB under
// "membership:<conversation>:<user>" keys. The value carries no data;
// key presence is the fact. Identifiers containing the key separator
// are rejected at this boundary, so every stored key splits
// unambiguously and the prefix scan in MembersOf cannot cross
// conversations.
type MembershipRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMembershipRepository(db *badger.DB, log *slog.Logger) *MembershipRepository {
	return &MembershipRepository{db: db, log: log}
}

func membershipKey(conversation domain.ConversationID, userID string) []byte {
	return []byte(fmt.Sprintf("membership:%s:%s", conversation, userID))
}

func validIdentifiers(parts ...string) bool {
	for _, part := range parts {
		if part == "" || strings.Contains(part, ":") {
			return false
		}
	}
	return true
}

// IsMember answers the oracle question for one (conversation, user)
// pair. A missing key is a denial, not an error; so is an identifier
// that could never have been granted.
func (m *MembershipRepository) IsMember(_ context.Context, conversation domain.ConversationID, userID string) (bool, error) {
	if !validIdentifiers(string(conversation), userID) {
		return false, nil
	}

	var member bool
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(membershipKey(conversation, userID))
		switch {
		case err == nil:
			member = true
			return nil
		case err == badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("membership lookup failed: %w", err)
	}
	return member, nil
}

// Grant records that a user may subscribe to a conversation.
func (m *MembershipRepository) Grant(conversation domain.ConversationID, userID string) error {
	if !validIdentifiers(string(conversation), userID) {
		return errors.ErrInvalidIdentifier
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(membershipKey(conversation, userID), nil)
	})
}

// Revoke removes a membership fact. Already-open subscriptions are not
// torn down retroactively; the gate applies to the next subscribe.
func (m *MembershipRepository) Revoke(conversation domain.ConversationID, userID string) error {
	if !validIdentifiers(string(conversation), userID) {
		return errors.ErrInvalidIdentifier
	}
	return m.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(membershipKey(conversation, userID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// MembersOf lists the users allowed into a conversation, by key prefix
// iteration.
func (m *MembershipRepository) MembersOf(conversation domain.ConversationID) ([]string, error) {
	if !validIdentifiers(string(conversation)) {
		return nil, errors.ErrInvalidIdentifier
	}
	prefix := []byte(fmt.Sprintf("membership:%s:", conversation))

	var members []string
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // keys carry all the information

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			members = append(members, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("membership listing failed: %w", err)
	}
	return members, nil
}
