package kv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/server/storage"
	"github.com/dmitrijs2005/onechat/internal/timex"
	"github.com/stretchr/testify/require"
)

var _ storage.Store = (*Store)(nil)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestStore(t *testing.T, clock timex.Clock) *Store {
	t.Helper()
	s, err := Open(Options{Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t, nil)
	ctx := context.Background()

	req.NoError(s.CreateUser(ctx, models.User{UserName: "alice", Password: "x", Name: "Alice"}))
	req.ErrorIs(s.CreateUser(ctx, models.User{UserName: "alice"}), common.ErrorAlreadyExists)

	u, err := s.GetUser(ctx, "alice")
	req.NoError(err)
	req.Equal("Alice", u.Name)
	req.Equal([]string{}, u.Groups)
	req.False(u.CreatedAt.IsZero())

	req.NoError(s.RenameUser(ctx, "alice", "Al"))
	u, _ = s.GetUser(ctx, "alice")
	req.Equal("Al", u.Name)

	req.ErrorIs(s.RenameUser(ctx, "ghost", "x"), common.ErrorNotFound)
	_, err = s.GetUser(ctx, "ghost")
	req.ErrorIs(err, common.ErrorNotFound)

	n, err := s.CountUsers(ctx)
	req.NoError(err)
	req.Equal(1, n)
}

func TestGroups(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t, nil)
	ctx := context.Background()
	req.NoError(s.CreateUser(ctx, models.User{UserName: "alice"}))
	req.NoError(s.CreateUser(ctx, models.User{UserName: "bob"}))

	req.NoError(s.CreateGroup(ctx, "1", "first", "alice"))
	req.ErrorIs(s.CreateGroup(ctx, "1", "again", "alice"), common.ErrorAlreadyExists)
	req.ErrorIs(s.CreateGroup(ctx, "2", "orphan", "ghost"), common.ErrorNotFound)

	_, err := s.GetGroup(ctx, "2")
	req.ErrorIs(err, common.ErrorNotFound)

	joined, err := s.JoinGroup(ctx, "1", "bob")
	req.NoError(err)
	req.True(joined)
	joined, err = s.JoinGroup(ctx, "1", "bob")
	req.NoError(err)
	req.False(joined)

	_, err = s.JoinGroup(ctx, "9", "bob")
	req.ErrorIs(err, common.ErrorNotFound)
	_, err = s.JoinGroup(ctx, "1", "ghost")
	req.ErrorIs(err, common.ErrorNotFound)

	g, err := s.GetGroup(ctx, "1")
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, g.Members)

	u, _ := s.GetUser(ctx, "bob")
	req.Equal([]string{"1"}, u.Groups)
}

func TestSessions(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t, nil)
	ctx := context.Background()

	req.NoError(s.PutSession(ctx, models.Session{UserName: "alice", Token: "t1"}))
	req.NoError(s.PutSession(ctx, models.Session{UserName: "alice", Token: "t2"}))

	_, err := s.FindSession(ctx, "t1")
	req.ErrorIs(err, common.ErrorNotFound)
	sess, err := s.FindSession(ctx, "t2")
	req.NoError(err)
	req.Equal("alice", sess.UserName)

	req.ErrorIs(s.PutSession(ctx, models.Session{UserName: "bob", Token: "t2"}), common.ErrorAlreadyExists)

	req.NoError(s.DeleteSession(ctx, "alice"))
	_, err = s.FindSession(ctx, "t2")
	req.ErrorIs(err, common.ErrorNotFound)
	req.NoError(s.DeleteSession(ctx, "alice"))
}

func TestMessages_OrderAcrossSimilarNumbers(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t, nil)
	ctx := context.Background()
	req.NoError(s.CreateUser(ctx, models.User{UserName: "alice"}))
	req.NoError(s.CreateGroup(ctx, "1", "one", "alice"))
	req.NoError(s.CreateGroup(ctx, "1:", "tricky", "alice"))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := s.AppendMessage(ctx, "1", "alice", "hi")
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	_, err := s.AppendMessage(ctx, "1:", "alice", "other")
	req.NoError(err)

	msgs, err := s.ListMessages(ctx, "1")
	req.NoError(err)
	req.Len(msgs, 100)
	for i := 1; i < len(msgs); i++ {
		req.True(msgs[i].SentAt.After(msgs[i-1].SentAt))
	}

	other, err := s.ListMessages(ctx, "1:")
	req.NoError(err)
	req.Len(other, 1)

	_, err = s.AppendMessage(ctx, "9", "alice", "x")
	req.ErrorIs(err, common.ErrorNotFound)
	_, err = s.ListMessages(ctx, "9")
	req.ErrorIs(err, common.ErrorNotFound)
}

func TestEvictMessages(t *testing.T) {
	req := require.New(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := &stepClock{now: base}
	s := newTestStore(t, timex.NewMonotonic(clock))
	ctx := context.Background()
	req.NoError(s.CreateUser(ctx, models.User{UserName: "alice"}))
	req.NoError(s.CreateGroup(ctx, "1", "one", "alice"))

	_, err := s.AppendMessage(ctx, "1", "alice", "old")
	req.NoError(err)
	clock.Set(base.Add(2 * time.Hour))
	_, err = s.AppendMessage(ctx, "1", "alice", "new")
	req.NoError(err)

	removed, err := s.EvictMessages(ctx, base.Add(time.Hour))
	req.NoError(err)
	req.Equal(1, removed)

	msgs, err := s.ListMessages(ctx, "1")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("new", msgs[0].Body)
}

func TestPersistsAcrossReopen(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{Path: dir, Logger: logging.NewNop()})
	req.NoError(err)
	req.NoError(s.CreateUser(ctx, models.User{UserName: "alice"}))
	req.NoError(s.CreateGroup(ctx, "1", "one", "alice"))
	_, err = s.AppendMessage(ctx, "1", "alice", "kept")
	req.NoError(err)
	req.NoError(s.Flush(ctx))
	req.NoError(s.Close())

	s, err = Open(Options{Path: dir})
	req.NoError(err)
	defer s.Close()

	msgs, err := s.ListMessages(ctx, "1")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("kept", msgs[0].Body)
}

func TestReopen_ClockBehindStoredMessages(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	ctx := context.Background()
	noon := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

	s, err := Open(Options{Path: dir, Clock: timex.NewMonotonic(&stepClock{now: noon.Add(10 * time.Minute)})})
	req.NoError(err)
	req.NoError(s.CreateUser(ctx, models.User{UserName: "alice"}))
	req.NoError(s.CreateGroup(ctx, "1", "one", "alice"))
	first, err := s.AppendMessage(ctx, "1", "alice", "first")
	req.NoError(err)
	req.NoError(s.Close())

	s, err = Open(Options{Path: dir, Clock: timex.NewMonotonic(&stepClock{now: noon})})
	req.NoError(err)
	defer s.Close()

	second, err := s.AppendMessage(ctx, "1", "alice", "second")
	req.NoError(err)
	req.True(second.SentAt.After(first.SentAt), "stamp %v should follow %v", second.SentAt, first.SentAt)

	msgs, err := s.ListMessages(ctx, "1")
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("first", msgs[0].Body)
	req.Equal("second", msgs[1].Body)

	n, err := s.EvictMessages(ctx, noon.Add(time.Minute))
	req.NoError(err)
	req.Zero(n)
}
