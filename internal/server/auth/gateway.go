package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/server/storage"
	"github.com/dmitrijs2005/onechat/internal/timex"
)

// Gateway issues and resolves session tokens. A token is accepted only while
// it is the one recorded in the session index for its user; the signature
// check just turns away forged strings before the lookup.
type Gateway struct {
	sessions storage.Sessions
	secret   []byte
	validity time.Duration
	clock    timex.Clock
}

func NewGateway(sessions storage.Sessions, secretKey []byte, validity time.Duration, clock timex.Clock) *Gateway {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &Gateway{sessions: sessions, secret: secretKey, validity: validity, clock: clock}
}

// Issue creates a token for userName, replacing any previous one.
func (g *Gateway) Issue(ctx context.Context, userName string) (string, error) {
	now := g.clock.Now()
	token, err := GenerateToken(userName, g.secret, now, g.validity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	err = g.sessions.PutSession(ctx, models.Session{UserName: userName, Token: token, IssuedAt: now})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user name that owns token, or common.ErrorUnauthorized.
func (g *Gateway) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrorUnauthorized
	}

	userName, err := GetUserNameFromToken(token, g.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	sess, err := g.sessions.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", err
	}
	if sess.UserName != userName {
		return "", common.ErrorUnauthorized
	}
	return userName, nil
}

// Revoke ends the user's session. Revoking twice is fine.
func (g *Gateway) Revoke(ctx context.Context, userName string) error {
	return g.sessions.DeleteSession(ctx, userName)
}
