// Package respond maps service errors onto the JSON response envelope.
package respond

import (
	"errors"
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/llm"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

// Status returns the HTTP status and client message for err.
func Status(err error) (int, string) {
	var keyErr *services.ProviderKeyError
	var encErr *crypto.EncryptionError
	var decErr *crypto.DecryptionError
	var upstream *llm.UpstreamError

	switch {
	case errors.As(err, &keyErr):
		return http.StatusBadRequest, "Please configure a valid API key for " + keyErr.Provider + " in settings"
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidAPIKeyFormat):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrAPIKeyNotConfigured):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrPermissionDenied), errors.Is(err, services.ErrUserInactive):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrLikeNotFound),
		errors.Is(err, services.ErrHistoryNotFound),
		errors.Is(err, services.ErrCredentialNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrAlreadyLiked),
		errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrOptimisticLock):
		return http.StatusConflict, err.Error()
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &upstream), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &encErr), errors.As(err, &decErr):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// Error writes the envelope for err. Server-side failures are attached to
// the context for the request logger.
func Error(c *gin.Context, err error) {
	status, message := Status(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, utils.NewErrorResponse(status, message))
}
