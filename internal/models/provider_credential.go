package models

import "time"

// ProviderCredential stores one user's API key for one model provider, encrypted.
type ProviderCredential struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       string    `gorm:"size:100;not null;uniqueIndex:idx_provider_credentials_user_provider,priority:1" json:"user_id"`
	Provider     string    `gorm:"size:50;not null;uniqueIndex:idx_provider_credentials_user_provider,priority:2" json:"provider"`
	EncryptedKey string    `gorm:"type:text" json:"-"`
	BaseURL      string    `gorm:"size:500" json:"base_url"`
	Model        string    `gorm:"size:100" json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
