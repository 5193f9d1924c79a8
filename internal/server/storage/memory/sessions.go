package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

// sessionTable keeps both directions so that token lookups never scan.
type sessionTable struct {
	mu      sync.RWMutex
	byUser  map[string]models.Session
	byToken map[string]string
}

func (s *Store) PutSession(ctx context.Context, session models.Session) error {
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()

	if owner, ok := s.sessions.byToken[session.Token]; ok && owner != session.UserName {
		return common.ErrorAlreadyExists
	}
	if prev, ok := s.sessions.byUser[session.UserName]; ok {
		delete(s.sessions.byToken, prev.Token)
	}
	s.sessions.byUser[session.UserName] = session
	s.sessions.byToken[session.Token] = session.UserName
	s.mutations.Add(1)
	return nil
}

func (s *Store) FindSession(ctx context.Context, token string) (*models.Session, error) {
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()

	name, ok := s.sessions.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	sess := s.sessions.byUser[name]
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, userName string) error {
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()

	prev, ok := s.sessions.byUser[userName]
	if !ok {
		return nil
	}
	delete(s.sessions.byToken, prev.Token)
	delete(s.sessions.byUser, userName)
	s.mutations.Add(1)
	return nil
}
