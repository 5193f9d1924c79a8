package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/auth"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/server/storage"
	"github.com/dmitrijs2005/onechat/internal/timex"
	"github.com/samber/lo"
)

type SignupInput struct {
	UserName string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

type LoginInput struct {
	UserName string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	NewName string `json:"newName" validate:"required"`
}

// Profile is what a user sees about themselves.
type Profile struct {
	UserName string
	Name     string
	Groups   []models.GroupSummary
}

// UserService covers accounts and sessions: signup, login, logout and the
// profile.
type UserService struct {
	store   storage.Store
	gateway *auth.Gateway
	hasher  *auth.PasswordHasher
	clock   timex.Clock
	log     logging.Logger
}

func NewUserService(store storage.Store, gateway *auth.Gateway, hasher *auth.PasswordHasher, log logging.Logger) *UserService {
	return &UserService{
		store:   store,
		gateway: gateway,
		hasher:  hasher,
		clock:   timex.SystemClock,
		log:     log.With("module", "users"),
	}
}

// Signup registers a user. The display name defaults to the user name.
func (s *UserService) Signup(ctx context.Context, in SignupInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	user := models.User{
		UserName:  in.UserName,
		Password:  hash,
		Name:      lo.Ternary(in.Name == "", in.UserName, in.Name),
		Groups:    []string{},
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return err
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "user signed up", "username", in.UserName)

	return flush(ctx, s.store, s.log)
}

// Login checks credentials and issues a new token, invalidating any
// previous one.
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validateInput(in); err != nil {
		return "", err
	}

	user, err := s.store.GetUser(ctx, in.UserName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "login rejected", "username", in.UserName)
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error getting user: %w", err)
	}
	if !s.hasher.Verify(user.Password, in.Password) {
		s.log.Info(ctx, "login rejected", "username", in.UserName)
		return "", common.ErrInvalidCredentials
	}

	token, err := s.gateway.Issue(ctx, user.UserName)
	if err != nil {
		return "", fmt.Errorf("error issuing token: %w", err)
	}
	s.log.Info(ctx, "user logged in", "username", user.UserName)

	if err := flush(ctx, s.store, s.log); err != nil {
		return "", err
	}
	return token, nil
}

// Logout ends the session bound to token. Unknown tokens yield
// common.ErrInvalidToken.
func (s *UserService) Logout(ctx context.Context, token string) error {
	userName, err := s.gateway.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return common.ErrInvalidToken
		}
		return fmt.Errorf("error resolving token: %w", err)
	}

	if err := s.gateway.Revoke(ctx, userName); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return flush(ctx, s.store, s.log)
}

// GetProfile returns the caller's profile. Group numbers that no longer
// resolve are skipped.
func (s *UserService) GetProfile(ctx context.Context, token string) (*Profile, error) {
	userName, err := authorize(ctx, s.gateway, token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	groups := make([]models.GroupSummary, 0, len(user.Groups))
	for _, number := range lo.Uniq(user.Groups) {
		g, err := s.store.GetGroup(ctx, number)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error getting group: %w", err)
		}
		groups = append(groups, models.GroupSummary{Name: g.Name, Number: number})
	}

	return &Profile{UserName: user.UserName, Name: user.Name, Groups: groups}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, token string, in UpdateProfileInput) error {
	userName, err := authorize(ctx, s.gateway, token)
	if err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return err
	}

	if err := s.store.RenameUser(ctx, userName, in.NewName); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return flush(ctx, s.store, s.log)
}
