//go:generate go run go.uber.org/mock/mockgen -source=history_cache.go -destination=../mocks/mock_history_cache.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"pulsechat/domain"
)

// HistoryCache persists merged feeds in BadgerDB so a reopened conversation
// renders instantly while the REST fetch is in flight.
//
// The key is "msg:{session}:{timestamp_padded}:{id}":
//  1. 19-digit zero padding makes lexicographic iteration chronological.
//  2. The message id disambiguates two messages on the same nanosecond.
type HistoryCache struct {
	db    *badger.DB
	log   *slog.Logger
	limit *int
}

func NewHistoryCache(db *badger.DB, log *slog.Logger, limit *int) HistoryCache {
	return HistoryCache{db: db, log: log, limit: limit}
}

// Store replaces the cached feed for a session with the given snapshot.
// The previous rows are dropped first so messages that were collapsed by
// dedup do not linger across reopens.
func (c HistoryCache) Store(sessionID string, messages []domain.Message) error {
	prefix := []byte(sessionPrefix(sessionID))

	return c.db.Update(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)

		var staleKeys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			staleKeys = append(staleKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range staleKeys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for _, m := range messages {
			value, err := json.Marshal(m)
			if err != nil {
				return err
			}
			key := fmt.Sprintf("%s%019d:%s", sessionPrefix(sessionID), m.CreatedAt.UnixNano(), m.ID)
			if err := txn.Set([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the cached feed for a session, chronological thanks to the
// padded timestamp in the key. Stops at the configured limit when set.
func (c HistoryCache) Load(sessionID string) ([]domain.Message, error) {
	prefix := []byte(sessionPrefix(sessionID))
	var messages []domain.Message

	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if c.limit != nil && len(messages) == *c.limit {
				c.log.Debug(fmt.Sprintf("Maximum of %d cached messages reached", *c.limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func sessionPrefix(sessionID string) string {
	return fmt.Sprintf("msg:%s:", sessionID)
}
