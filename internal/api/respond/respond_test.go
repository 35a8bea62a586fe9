package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/llm"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: title is required", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrInvalidAPIKeyFormat, http.StatusBadRequest},
		{&services.ProviderKeyError{Provider: "openai", Err: llm.ErrUnauthorized}, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrPermissionDenied, http.StatusForbidden},
		{services.ErrTemplateNotFound, http.StatusNotFound},
		{services.ErrHistoryNotFound, http.StatusNotFound},
		{services.ErrAlreadyLiked, http.StatusConflict},
		{services.ErrUserAlreadyExists, http.StatusConflict},
		{fmt.Errorf("%w: open", llm.ErrUnavailable), http.StatusServiceUnavailable},
		{&llm.UpstreamError{StatusCode: 500, Body: "x"}, http.StatusBadGateway},
		{&crypto.DecryptionError{Err: errors.New("bad padding")}, http.StatusInternalServerError},
		{errors.New("database is on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := Status(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestStatusMessages(t *testing.T) {
	_, msg := Status(&services.ProviderKeyError{Provider: "deepseek", Err: llm.ErrUnauthorized})
	assert.Equal(t, "Please configure a valid API key for deepseek in settings", msg)

	_, msg = Status(errors.New("pq: password authentication failed for user secret"))
	assert.Equal(t, "Internal server error", msg)

	_, msg = Status(&crypto.DecryptionError{Err: errors.New("bad padding")})
	assert.Contains(t, msg, "decrypt credential")
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error(c, services.ErrTemplateNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusNotFound, body.Status)
	assert.Equal(t, "template not found", body.Message)
	assert.Nil(t, body.Data)
}

func TestErrorAttachesServerFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantErrors int
	}{
		{name: "client error", err: services.ErrTemplateNotFound, wantErrors: 0},
		{name: "server error", err: errors.New("database is on fire"), wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Error(c, tt.err)

			assert.Len(t, c.Errors, tt.wantErrors)
		})
	}
}
