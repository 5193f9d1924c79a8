package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to an HTTP status and the message shown to
// clients. conflict is the text used for common.ErrorAlreadyExists.
func statusFor(err error, conflict string) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, conflict
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials!"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Unauthorized!"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token!"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Group not found!"
	case errors.Is(err, common.ErrorPersistence):
		// The change was applied in memory and is visible to other requests;
		// only the save failed. A retry of the same call sees that state, so a
		// repeated signup answers "Username already exists!".
		return http.StatusInternalServerError, "Could not save data!"
	default:
		return http.StatusInternalServerError, "Internal server error!"
	}
}

func (h *Handler) fail(c *gin.Context, err error, conflict string) {
	status, msg := statusFor(err, conflict)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"success": false, "message": msg})
}
