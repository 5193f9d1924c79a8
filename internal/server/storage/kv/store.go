// Package kv is the embedded key-value backend built on Badger.
//
// Key layout:
//
//	user:{username}                        -> userValue
//	group:{number}                         -> groupValue
//	msg:{hex(number)}:{%019d nanos}:{uuid} -> messageValue
//	session:user:{username}                -> sessionValue
//	session:token:{token}                  -> username
//
// Group numbers are hex encoded inside message keys so that one group's
// prefix can never match another group's keys.
package kv

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/timex"
)

const maxConflictRetries = 8

type Store struct {
	db    *badger.DB
	clock timex.Clock

	// groupLocks serializes appends per group so stamps follow commit order.
	groupLocks sync.Map
}

// Options configures Open. An empty Path opens an in-memory database.
type Options struct {
	Path   string
	Clock  timex.Clock
	Logger logging.Logger
}

func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(badgerLogger{l: opts.Logger.With("component", "badger")})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = timex.NewMonotonic(nil)
	}
	s := &Store{db: db, clock: clock}

	newest, err := s.newestMessage()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error scanning messages: %w", err)
	}
	timex.Observe(clock, newest)
	return s, nil
}

// Flush syncs the value log to disk.
func (s *Store) Flush(ctx context.Context) error {
	return s.db.Sync()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) lockGroup(number string) func() {
	v, _ := s.groupLocks.LoadOrStore(number, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func userKey(name string) []byte        { return []byte("user:" + name) }
func groupKey(number string) []byte     { return []byte("group:" + number) }
func sessionUserKey(name string) []byte { return []byte("session:user:" + name) }
func sessionTokenKey(tok string) []byte { return []byte("session:token:" + tok) }

func messagePrefix(group string) []byte {
	return []byte("msg:" + hex.EncodeToString([]byte(group)) + ":")
}

func messageKey(group string, at time.Time, id string) []byte {
	return fmt.Appendf(messagePrefix(group), "%019d:%s", at.UnixNano(), id)
}

// getJSON reads key into v. badger.ErrKeyNotFound is returned unchanged.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

type badgerLogger struct {
	l logging.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(context.Background(), fmt.Sprintf(format, args...))
}
