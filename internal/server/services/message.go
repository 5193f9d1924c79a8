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

type SendMessageInput struct {
	GroupNumber string `json:"groupNumber" validate:"required"`
	Message     string `json:"message" validate:"required"`
}

// MessageService posts to and reads group logs. Posting does not require
// membership of the group.
type MessageService struct {
	store   storage.Store
	gateway *auth.Gateway
	log     logging.Logger
}

func NewMessageService(store storage.Store, gateway *auth.Gateway, log logging.Logger) *MessageService {
	return &MessageService{store: store, gateway: gateway, log: log.With("module", "messages")}
}

func (s *MessageService) Send(ctx context.Context, token string, in SendMessageInput) (*models.Message, error) {
	userName, err := authorize(ctx, s.gateway, token)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	msg, err := s.store.AppendMessage(ctx, in.GroupNumber, userName, in.Message)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error storing message: %w", err)
	}
	s.log.Debug(ctx, "message stored", "group", in.GroupNumber, "id", msg.ID)

	if err := flush(ctx, s.store, s.log); err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns the group's surviving messages, oldest first.
func (s *MessageService) List(ctx context.Context, token, group string) ([]models.Message, error) {
	if _, err := authorize(ctx, s.gateway, token); err != nil {
		return nil, err
	}
	if group == "" {
		return nil, fmt.Errorf("%w: missing groupNumber", common.ErrorValidation)
	}

	msgs, err := s.store.ListMessages(ctx, group)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return msgs, nil
}
