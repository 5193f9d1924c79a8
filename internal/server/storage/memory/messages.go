package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/google/uuid"
)

// messageLog is one group's messages in append order, which is also SentAt
// order because stamps are taken under mu.
type messageLog struct {
	mu    sync.Mutex
	items []models.Message
}

func (s *Store) AppendMessage(ctx context.Context, group, sender, body string) (*models.Message, error) {
	log, ok := s.logOf(group)
	if !ok {
		return nil, common.ErrorNotFound
	}

	log.mu.Lock()
	defer log.mu.Unlock()

	msg := models.Message{
		ID:     uuid.New(),
		Group:  group,
		Sender: sender,
		Body:   body,
		SentAt: s.clock.Now(),
	}
	log.items = append(log.items, msg)
	s.mutations.Add(1)
	return &msg, nil
}

func (s *Store) ListMessages(ctx context.Context, group string) ([]models.Message, error) {
	log, ok := s.logOf(group)
	if !ok {
		return nil, common.ErrorNotFound
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	return append([]models.Message{}, log.items...), nil
}

func (s *Store) EvictMessages(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for _, log := range s.allLogs() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		removed += log.evictBefore(cutoff, &s.mutations)
	}
	return removed, nil
}

func (l *messageLog) evictBefore(cutoff time.Time, mutations *atomic.Uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	keep := sort.Search(len(l.items), func(i int) bool {
		return !l.items[i].SentAt.Before(cutoff)
	})
	if keep == 0 {
		return 0
	}
	l.items = append([]models.Message(nil), l.items[keep:]...)
	mutations.Add(1)
	return keep
}
