package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/auth"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/dmitrijs2005/onechat/internal/server/storage"
	"github.com/dmitrijs2005/onechat/internal/timex"
)

// DefaultAccount is a user created on a fresh deployment.
type DefaultAccount struct {
	UserName string
	Password string
	Name     string
}

var DefaultAccounts = []DefaultAccount{
	{UserName: "adith", Password: "adith", Name: "adith"},
	{UserName: "ONE", Password: "onechat", Name: "ONE"},
}

// Seed creates accounts when the store has no users at all. It reports
// whether anything was created.
func Seed(ctx context.Context, store storage.Store, hasher *auth.PasswordHasher, accounts []DefaultAccount, log logging.Logger) (bool, error) {
	n, err := store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("error counting users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	now := timex.SystemClock.Now()
	for _, a := range accounts {
		hash, err := hasher.Hash(a.Password)
		if err != nil {
			return false, err
		}
		err = store.CreateUser(ctx, models.User{
			UserName:  a.UserName,
			Password:  hash,
			Name:      a.Name,
			Groups:    []string{},
			CreatedAt: now,
		})
		if err != nil {
			return false, fmt.Errorf("error seeding %q: %w", a.UserName, err)
		}
	}
	log.Info(ctx, "seeded default accounts", "count", len(accounts))

	return true, flush(ctx, store, log)
}
