package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/google/uuid"
)

type messageValue struct {
	ID     uuid.UUID `json:"id"`
	Sender string    `json:"sender"`
	Body   string    `json:"message"`
	SentAt time.Time `json:"time"`
}

func (s *Store) AppendMessage(ctx context.Context, group, sender, body string) (*models.Message, error) {
	unlock := s.lockGroup(group)
	defer unlock()

	var msg models.Message
	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(groupKey(group)); err != nil {
			return err
		}
		msg = models.Message{ID: uuid.New(), Group: group, Sender: sender, Body: body, SentAt: s.clock.Now()}
		return setJSON(txn, messageKey(group, msg.SentAt, msg.ID.String()), messageValue{
			ID:     msg.ID,
			Sender: msg.Sender,
			Body:   msg.Body,
			SentAt: msg.SentAt,
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) ListMessages(ctx context.Context, group string) ([]models.Message, error) {
	out := []models.Message{}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(groupKey(group)); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = messagePrefix(group)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var v messageValue
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return err
			}
			out = append(out, models.Message{ID: v.ID, Group: group, Sender: v.Sender, Body: v.Body, SentAt: v.SentAt.UTC()})
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EvictMessages walks each group's prefix in time order and stops at the
// first key at or after cutoff.
func (s *Store) EvictMessages(ctx context.Context, cutoff time.Time) (int, error) {
	groups, err := s.groupNumbers()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := s.evictGroup(g, cutoff)
		removed += n
		if err != nil {
			return removed, fmt.Errorf("error evicting group %q: %w", g, err)
		}
	}
	return removed, nil
}

func (s *Store) evictGroup(group string, cutoff time.Time) (int, error) {
	prefix := messagePrefix(group)
	limit := cutoff.UnixNano()

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, err := keyNanos(key[len(prefix):])
			if err != nil {
				return err
			}
			if ts >= limit {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func keyNanos(rest []byte) (int64, error) {
	i := bytes.IndexByte(rest, ':')
	if i < 0 {
		return 0, fmt.Errorf("malformed message key %q", rest)
	}
	return strconv.ParseInt(string(rest[:i]), 10, 64)
}

// newestMessage returns the latest timestamp across every message key, or
// the zero time when there are none.
func (s *Store) newestMessage() (time.Time, error) {
	var newest int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("msg:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			// Skip "msg:{hex}:" to reach the timestamp.
			rest := key[len(opts.Prefix):]
			i := bytes.IndexByte(rest, ':')
			if i < 0 {
				return fmt.Errorf("malformed message key %q", key)
			}
			ts, err := keyNanos(rest[i+1:])
			if err != nil {
				return err
			}
			newest = max(newest, ts)
		}
		return nil
	})
	if err != nil || newest == 0 {
		return time.Time{}, err
	}
	return time.Unix(0, newest).UTC(), nil
}
