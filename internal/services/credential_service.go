package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errCipherNotConfigured = errors.New("credential cipher not configured")

// credentialCipher is installed at startup from CREDENTIAL_KEY / CREDENTIAL_IV.
var credentialCipher crypto.Service

func SetCredentialCipher(c crypto.Service) {
	credentialCipher = c
}

type CredentialInput struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// CredentialView is the only shape in which a stored key leaves the service.
type CredentialView struct {
	Provider  string    `json:"provider"`
	MaskedKey string    `json:"masked_key"`
	BaseURL   string    `json:"base_url"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// SaveCredential validates, encrypts and upserts userID's key for a provider.
func SaveCredential(ctx context.Context, userID string, in CredentialInput) (*CredentialView, error) {
	if credentialCipher == nil {
		return nil, errCipherNotConfigured
	}

	provider := normalizeProvider(in.Provider)
	if provider == "" {
		return nil, ErrInvalidAPIKeyFormat
	}
	apiKey := strings.TrimSpace(in.APIKey)
	if !crypto.ValidateAPIKeyFormat(apiKey, provider) {
		return nil, ErrInvalidAPIKeyFormat
	}

	encrypted, err := credentialCipher.Encrypt(apiKey)
	if err != nil {
		return nil, err
	}

	cred := models.ProviderCredential{
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: encrypted,
		BaseURL:      strings.TrimSpace(in.BaseURL),
		Model:        strings.TrimSpace(in.Model),
	}
	err = database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"encrypted_key", "base_url", "model", "updated_at"}),
	}).Create(&cred).Error
	if err != nil {
		return nil, err
	}

	return &CredentialView{
		Provider:  provider,
		MaskedKey: crypto.MaskAPIKey(apiKey),
		BaseURL:   cred.BaseURL,
		Model:     cred.Model,
		UpdatedAt: cred.UpdatedAt,
	}, nil
}

// ListCredentials returns userID's stored credentials with masked keys.
func ListCredentials(ctx context.Context, userID string) ([]CredentialView, error) {
	if credentialCipher == nil {
		return nil, errCipherNotConfigured
	}

	var creds []models.ProviderCredential
	if err := database.DB.WithContext(ctx).Where("user_id = ?", userID).Order("provider").Find(&creds).Error; err != nil {
		return nil, err
	}

	views := make([]CredentialView, 0, len(creds))
	for _, cred := range creds {
		apiKey, err := credentialCipher.Decrypt(cred.EncryptedKey)
		if err != nil {
			return nil, err
		}
		views = append(views, CredentialView{
			Provider:  cred.Provider,
			MaskedKey: crypto.MaskAPIKey(apiKey),
			BaseURL:   cred.BaseURL,
			Model:     cred.Model,
			UpdatedAt: cred.UpdatedAt,
		})
	}
	return views, nil
}

func DeleteCredential(ctx context.Context, userID, provider string) error {
	result := database.DB.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, normalizeProvider(provider)).
		Delete(&models.ProviderCredential{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

type resolvedCredential struct {
	APIKey  string
	BaseURL string
	Model   string
}

// loadCredential decrypts userID's key for provider.
func loadCredential(ctx context.Context, userID, provider string) (*resolvedCredential, error) {
	if credentialCipher == nil {
		return nil, errCipherNotConfigured
	}

	var cred models.ProviderCredential
	err := database.DB.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, normalizeProvider(provider)).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeyNotConfigured
		}
		return nil, err
	}

	apiKey, err := credentialCipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		return nil, err
	}
	return &resolvedCredential{APIKey: apiKey, BaseURL: cred.BaseURL, Model: cred.Model}, nil
}
