package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", fmt.Errorf("%w: missing password", common.ErrorValidation), http.StatusBadRequest, "validation error: missing password"},
		{"conflict", common.ErrorAlreadyExists, http.StatusBadRequest, "taken"},
		{"credentials", common.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials!"},
		{"bad signature", fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken), http.StatusUnauthorized, "Unauthorized!"},
		{"logout of dead token", common.ErrInvalidToken, http.StatusUnauthorized, "Invalid token!"},
		{"not found", common.ErrorNotFound, http.StatusNotFound, "Group not found!"},
		{"persistence", fmt.Errorf("%w: disk full", common.ErrorPersistence), http.StatusInternalServerError, "Could not save data!"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal server error!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusFor(tt.err, "taken")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}
