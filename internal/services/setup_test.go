package services

import (
	"context"
	"testing"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database/dbtest"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var ctx = context.Background()

// setupServices wires an in-memory store, a miniredis instance, a cipher and a token service.
func setupServices(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	dbtest.Setup(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	database.RedisClient = client
	t.Cleanup(func() {
		_ = client.Close()
		database.RedisClient = nil
	})

	c, err := crypto.NewCipher([]byte("0123456789abcdef0123456789abcdef"), []byte("abcdef9876543210"))
	require.NoError(t, err)
	SetCredentialCipher(c)
	SetTokenService(auth.NewJWTService(testSecret, time.Hour, nil))
	t.Cleanup(func() {
		SetCredentialCipher(nil)
		SetTokenService(nil)
	})

	return mr
}

func createTemplate(t *testing.T, userID, title string, tags ...string) *models.PromptTemplate {
	t.Helper()
	tpl, err := CreatePromptTemplate(ctx, userID, "creator-"+userID, TemplateInput{
		Title:   title,
		Content: "content of " + title,
		Tags:    tags,
	})
	require.NoError(t, err)
	return tpl
}

func shareTemplate(t *testing.T, tpl *models.PromptTemplate) *models.PromptTemplate {
	t.Helper()
	shared, err := SetShared(ctx, tpl.ID, tpl.UserID, true)
	require.NoError(t, err)
	return shared
}

func strPtr(s string) *string { return &s }
