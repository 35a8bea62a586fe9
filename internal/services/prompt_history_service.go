package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/crypto"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"

	"gorm.io/gorm"
)

type HistoryInput struct {
	Prompt        string
	Requirement   string
	DeepReasoning *string
	Result        string
	Provider      string
	Model         string
}

type HistoryQuery struct {
	Search   string
	Page     int
	PageSize int
}

// CreatePromptHistory appends an entry to userID's optimization log.
func CreatePromptHistory(ctx context.Context, userID string, in HistoryInput) (*models.PromptHistory, error) {
	return createPromptHistory(database.DB.WithContext(ctx), userID, in)
}

func createPromptHistory(db *gorm.DB, userID string, in HistoryInput) (*models.PromptHistory, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Result) == "" {
		return nil, fmt.Errorf("%w: result is required", ErrInvalidInput)
	}

	id, err := crypto.GenerateID()
	if err != nil {
		return nil, err
	}

	entry := &models.PromptHistory{
		ID:            id,
		UserID:        userID,
		Prompt:        in.Prompt,
		Requirement:   in.Requirement,
		DeepReasoning: in.DeepReasoning,
		Result:        in.Result,
		Provider:      in.Provider,
		Model:         in.Model,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListPromptHistory lists userID's entries newest first, optionally filtered by prompt text.
func ListPromptHistory(ctx context.Context, userID string, q HistoryQuery) ([]models.PromptHistory, int64, error) {
	page, size := NormalizePage(q.Page, q.PageSize)

	var entries []models.PromptHistory
	var total int64

	db := database.DB.WithContext(ctx).Model(&models.PromptHistory{}).Where("user_id = ?", userID)
	db = applySearch(db, q.Search, "prompt")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC, id DESC").Offset(offset(page, size)).Limit(size).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func GetPromptHistory(ctx context.Context, id, userID string) (*models.PromptHistory, error) {
	var entry models.PromptHistory
	err := database.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func DeletePromptHistory(ctx context.Context, id, userID string) error {
	result := database.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.PromptHistory{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrHistoryNotFound
	}
	return nil
}
