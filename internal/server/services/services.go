// Package services contains the server-side operations. Every operation
// except signup and login authenticates its token through auth.Gateway, and
// every mutation is followed by a store Flush.
package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/auth"
	"github.com/dmitrijs2005/onechat/internal/server/storage"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks struct tags and reports missing fields by their wire
// names.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string { return fe.Field() })
		return fmt.Errorf("%w: missing %s", common.ErrorValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %w", common.ErrorValidation, err)
}

// flush makes preceding mutations durable and tags failures as persistence
// errors.
func flush(ctx context.Context, store storage.Store, log logging.Logger) error {
	err := store.Flush(ctx)
	if err == nil {
		return nil
	}
	log.Error(ctx, "flush failed", "error", err)
	if errors.Is(err, common.ErrorPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrorPersistence, err)
}

// authorize resolves token to a user name.
func authorize(ctx context.Context, gw *auth.Gateway, token string) (string, error) {
	userName, err := gw.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return "", err
		}
		return "", fmt.Errorf("error resolving token: %w", err)
	}
	return userName, nil
}
