// Package memory is the in-process backend. Every collection is a map guarded
// by its own lock; an optional Sink persists consistent snapshots of the
// whole state on Flush.
//
// Lock order, when more than one is needed: groups, users, sessions, then
// individual group logs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/timex"
)

// Sink persists whole-state snapshots.
type Sink interface {
	// Load returns the last saved snapshot, or nil when nothing was saved yet.
	Load(ctx context.Context) (*models.Snapshot, error)
	// Save atomically replaces the stored snapshot.
	Save(ctx context.Context, snap *models.Snapshot) error
}

type Store struct {
	users    userTable
	groups   groupTable
	sessions sessionTable

	clock timex.Clock
	sink  Sink

	// mutations is bumped inside every critical section that changes state.
	mutations atomic.Uint64

	flushMu sync.Mutex
	saved   uint64
}

// New returns an empty store. sink may be nil for a purely in-memory store.
func New(clock timex.Clock, sink Sink) *Store {
	if clock == nil {
		clock = timex.NewMonotonic(nil)
	}
	return &Store{
		users:    userTable{byName: make(map[string]*models.User)},
		groups:   groupTable{byNumber: make(map[string]*groupRecord)},
		sessions: sessionTable{byUser: make(map[string]models.Session), byToken: make(map[string]string)},
		clock:    clock,
		sink:     sink,
	}
}

// Open creates a store and restores the sink's last snapshot into it.
// loaded reports whether a snapshot existed.
func Open(ctx context.Context, clock timex.Clock, sink Sink) (store *Store, loaded bool, err error) {
	store = New(clock, sink)
	if sink == nil {
		return store, false, nil
	}

	snap, err := sink.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error loading snapshot: %w", err)
	}
	if snap == nil {
		return store, false, nil
	}

	store.restore(snap)
	return store, true, nil
}

// Flush saves a snapshot covering every mutation finished before the call.
// Concurrent callers are coalesced: if a save that started later already
// covered the caller's mutations, Flush returns without writing again.
func (s *Store) Flush(ctx context.Context) error {
	if s.sink == nil {
		return nil
	}
	want := s.mutations.Load()

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if s.saved >= want {
		return nil
	}

	snap, seq := s.snapshot()
	if err := s.sink.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorPersistence, err)
	}
	s.saved = seq
	return nil
}

// Snapshot returns a consistent deep copy of the state.
func (s *Store) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap, _ := s.snapshot()
	return snap, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) snapshot() (*models.Snapshot, uint64) {
	snap := models.NewSnapshot()

	s.groups.mu.RLock()
	defer s.groups.mu.RUnlock()
	s.users.mu.RLock()
	defer s.users.mu.RUnlock()
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()

	// Appends only hold their own log lock. Reading the counter before the
	// logs are copied keeps seq from counting an append the copy misses.
	seq := s.mutations.Load()

	for name, u := range s.users.byName {
		snap.Users[name] = u.Clone()
	}
	for name, sess := range s.sessions.byUser {
		snap.Sessions[name] = sess
	}
	for number, rec := range s.groups.byNumber {
		snap.Groups[number] = rec.group.Clone()
		rec.log.mu.Lock()
		snap.Messages[number] = append([]models.Message{}, rec.log.items...)
		rec.log.mu.Unlock()
	}

	return snap, seq
}

func (s *Store) restore(snap *models.Snapshot) {
	for name, u := range snap.Users {
		u := u.Clone()
		s.users.byName[name] = &u
	}
	var newest time.Time
	for number, g := range snap.Groups {
		rec := &groupRecord{group: g.Clone(), log: &messageLog{}}
		rec.log.items = append(rec.log.items, snap.Messages[number]...)
		// Eviction binary-searches the log, so it must be sorted by time.
		sort.SliceStable(rec.log.items, func(i, j int) bool {
			return rec.log.items[i].SentAt.Before(rec.log.items[j].SentAt)
		})
		if n := len(rec.log.items); n > 0 && rec.log.items[n-1].SentAt.After(newest) {
			newest = rec.log.items[n-1].SentAt
		}
		s.groups.byNumber[number] = rec
	}
	timex.Observe(s.clock, newest)
	for name, sess := range snap.Sessions {
		s.sessions.byUser[name] = sess
		s.sessions.byToken[sess.Token] = name
	}
}
