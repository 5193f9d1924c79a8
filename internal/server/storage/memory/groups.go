package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

type groupTable struct {
	mu       sync.RWMutex
	byNumber map[string]*groupRecord
}

// groupRecord pairs a group with its message log. The group fields are
// guarded by groupTable.mu, the log by its own mutex.
type groupRecord struct {
	group models.Group
	log   *messageLog
}

func (s *Store) CreateGroup(ctx context.Context, number, name, owner string) error {
	s.groups.mu.Lock()
	defer s.groups.mu.Unlock()
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	if _, ok := s.groups.byNumber[number]; ok {
		return common.ErrorAlreadyExists
	}
	u, ok := s.users.byName[owner]
	if !ok {
		return common.ErrorNotFound
	}

	s.groups.byNumber[number] = &groupRecord{
		group: models.Group{
			Number:    number,
			Name:      name,
			Members:   []string{owner},
			CreatedAt: s.clock.Now(),
		},
		log: &messageLog{},
	}
	u.Groups = append(u.Groups, number)
	s.mutations.Add(1)
	return nil
}

func (s *Store) JoinGroup(ctx context.Context, number, userName string) (bool, error) {
	s.groups.mu.Lock()
	defer s.groups.mu.Unlock()
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	rec, ok := s.groups.byNumber[number]
	if !ok {
		return false, common.ErrorNotFound
	}
	u, ok := s.users.byName[userName]
	if !ok {
		return false, common.ErrorNotFound
	}
	if slices.Contains(rec.group.Members, userName) {
		return false, nil
	}

	rec.group.Members = append(rec.group.Members, userName)
	if !slices.Contains(u.Groups, number) {
		u.Groups = append(u.Groups, number)
	}
	s.mutations.Add(1)
	return true, nil
}

func (s *Store) GetGroup(ctx context.Context, number string) (*models.Group, error) {
	s.groups.mu.RLock()
	defer s.groups.mu.RUnlock()

	rec, ok := s.groups.byNumber[number]
	if !ok {
		return nil, common.ErrorNotFound
	}
	g := rec.group.Clone()
	return &g, nil
}

// logOf returns the message log of a group, holding the registry lock only
// for the lookup. Groups are never removed, so the log stays valid.
func (s *Store) logOf(number string) (*messageLog, bool) {
	s.groups.mu.RLock()
	defer s.groups.mu.RUnlock()

	rec, ok := s.groups.byNumber[number]
	if !ok {
		return nil, false
	}
	return rec.log, true
}

func (s *Store) allLogs() []*messageLog {
	s.groups.mu.RLock()
	defer s.groups.mu.RUnlock()

	logs := make([]*messageLog, 0, len(s.groups.byNumber))
	for _, rec := range s.groups.byNumber {
		logs = append(logs, rec.log)
	}
	return logs
}
