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
)

type CreateGroupInput struct {
	GroupName   string `json:"groupName" validate:"required"`
	GroupNumber string `json:"groupNumber" validate:"required"`
}

type JoinGroupInput struct {
	GroupNumber string `json:"groupNumber" validate:"required"`
}

type GroupService struct {
	store   storage.Store
	gateway *auth.Gateway
	log     logging.Logger
}

func NewGroupService(store storage.Store, gateway *auth.Gateway, log logging.Logger) *GroupService {
	return &GroupService{store: store, gateway: gateway, log: log.With("module", "groups")}
}

// Create registers a group with the caller as its first member.
func (s *GroupService) Create(ctx context.Context, token string, in CreateGroupInput) error {
	userName, err := authorize(ctx, s.gateway, token)
	if err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return err
	}

	if err := s.store.CreateGroup(ctx, in.GroupNumber, in.GroupName, userName); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return err
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error creating group: %w", err)
	}
	s.log.Info(ctx, "group created", "group", in.GroupNumber, "owner", userName)

	return flush(ctx, s.store, s.log)
}

// Join adds the caller to a group and returns the group's name. Joining a
// group twice succeeds without changing it.
func (s *GroupService) Join(ctx context.Context, token string, in JoinGroupInput) (string, error) {
	userName, err := authorize(ctx, s.gateway, token)
	if err != nil {
		return "", err
	}
	if err := validateInput(in); err != nil {
		return "", err
	}

	joined, err := s.store.JoinGroup(ctx, in.GroupNumber, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
		return "", fmt.Errorf("error joining group: %w", err)
	}

	g, err := s.store.GetGroup(ctx, in.GroupNumber)
	if err != nil {
		return "", fmt.Errorf("error getting group: %w", err)
	}
	if !joined {
		return g.Name, nil
	}
	s.log.Info(ctx, "group joined", "group", in.GroupNumber, "username", userName)

	if err := flush(ctx, s.store, s.log); err != nil {
		return "", err
	}
	return g.Name, nil
}

// Describe returns the group's name and members.
func (s *GroupService) Describe(ctx context.Context, token, number string) (*models.Group, error) {
	if _, err := authorize(ctx, s.gateway, token); err != nil {
		return nil, err
	}
	g, err := s.store.GetGroup(ctx, number)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error getting group: %w", err)
	}
	return g, nil
}
