package services

import (
	"testing"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpenAIKey = "sk-abcdefghijklmnopqrstuvwxyz123456"

func TestSaveCredentialEncryptsAndMasks(t *testing.T) {
	setupServices(t)

	view, err := SaveCredential(ctx, "u1", CredentialInput{Provider: "OpenAI", APIKey: testOpenAIKey, Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "openai", view.Provider)
	assert.Equal(t, "sk-a****3456", view.MaskedKey)
	assert.Equal(t, "gpt-4o", view.Model)

	var stored models.ProviderCredential
	require.NoError(t, database.DB.Where("user_id = ? AND provider = ?", "u1", "openai").First(&stored).Error)
	assert.NotEqual(t, testOpenAIKey, stored.EncryptedKey)
	assert.NotContains(t, stored.EncryptedKey, "sk-")

	plain, err := credentialCipher.Decrypt(stored.EncryptedKey)
	require.NoError(t, err)
	assert.Equal(t, testOpenAIKey, plain)
}

func TestSaveCredentialRejectsBadFormat(t *testing.T) {
	setupServices(t)

	tests := []CredentialInput{
		{Provider: "openai", APIKey: "not-a-key"},
		{Provider: "deepseek", APIKey: "sk-short"},
		{Provider: "gemini", APIKey: "short"},
		{Provider: "", APIKey: testOpenAIKey},
	}
	for _, in := range tests {
		_, err := SaveCredential(ctx, "u1", in)
		assert.ErrorIs(t, err, ErrInvalidAPIKeyFormat, "provider %q", in.Provider)
	}

	_, err := SaveCredential(ctx, "u1", CredentialInput{Provider: "ollama", BaseURL: "http://gpu-box:11434/v1"})
	assert.NoError(t, err)
}

func TestSaveCredentialUpserts(t *testing.T) {
	setupServices(t)

	_, err := SaveCredential(ctx, "u1", CredentialInput{Provider: "openai", APIKey: testOpenAIKey})
	require.NoError(t, err)
	_, err = SaveCredential(ctx, "u1", CredentialInput{Provider: "openai", APIKey: "sk-zyxwvutsrqponmlkjihgfedcba9999", Model: "gpt-4.1"})
	require.NoError(t, err)

	var count int64
	database.DB.Model(&models.ProviderCredential{}).Where("user_id = ?", "u1").Count(&count)
	assert.Equal(t, int64(1), count)

	views, err := ListCredentials(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "sk-z****9999", views[0].MaskedKey)
	assert.Equal(t, "gpt-4.1", views[0].Model)
}

func TestListCredentialsIsPerUser(t *testing.T) {
	setupServices(t)

	_, err := SaveCredential(ctx, "u1", CredentialInput{Provider: "openai", APIKey: testOpenAIKey})
	require.NoError(t, err)
	_, err = SaveCredential(ctx, "u1", CredentialInput{Provider: "gemini", APIKey: "AIzaSyA-1234567890abcdefgh"})
	require.NoError(t, err)

	views, err := ListCredentials(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "gemini", views[0].Provider)
	assert.Equal(t, "openai", views[1].Provider)
	for _, v := range views {
		assert.Contains(t, v.MaskedKey, "****")
	}

	views, err = ListCredentials(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestDeleteCredential(t *testing.T) {
	setupServices(t)

	_, err := SaveCredential(ctx, "u1", CredentialInput{Provider: "openai", APIKey: testOpenAIKey})
	require.NoError(t, err)

	assert.ErrorIs(t, DeleteCredential(ctx, "u2", "openai"), ErrCredentialNotFound)
	require.NoError(t, DeleteCredential(ctx, "u1", "OPENAI"))
	assert.ErrorIs(t, DeleteCredential(ctx, "u1", "openai"), ErrCredentialNotFound)
}

func TestCredentialsRequireCipher(t *testing.T) {
	setupServices(t)
	SetCredentialCipher(nil)

	_, err := SaveCredential(ctx, "u1", CredentialInput{Provider: "openai", APIKey: testOpenAIKey})
	assert.Error(t, err)
	_, err = ListCredentials(ctx, "u1")
	assert.Error(t, err)
}
