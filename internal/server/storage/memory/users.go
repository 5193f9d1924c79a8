package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

type userTable struct {
	mu     sync.RWMutex
	byName map[string]*models.User
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	if _, ok := s.users.byName[user.UserName]; ok {
		return common.ErrorAlreadyExists
	}
	u := user.Clone()
	if u.Groups == nil {
		u.Groups = []string{}
	}
	s.users.byName[u.UserName] = &u
	s.mutations.Add(1)
	return nil
}

func (s *Store) GetUser(ctx context.Context, userName string) (*models.User, error) {
	s.users.mu.RLock()
	defer s.users.mu.RUnlock()

	u, ok := s.users.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := u.Clone()
	return &c, nil
}

func (s *Store) RenameUser(ctx context.Context, userName, name string) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	u, ok := s.users.byName[userName]
	if !ok {
		return common.ErrorNotFound
	}
	u.Name = name
	s.mutations.Add(1)
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.users.mu.RLock()
	defer s.users.mu.RUnlock()
	return len(s.users.byName), nil
}
