package services

import (
	"context"
	"errors"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"

	"gorm.io/gorm"
)

// LikeTemplate records a like by userID and increments the template's like count.
// It returns the new like count.
func LikeTemplate(ctx context.Context, templateID uint, userID string) (int, error) {
	var likeCount int
	var shared bool

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		template, err := findVisibleTemplate(tx, templateID, userID)
		if err != nil {
			return err
		}
		shared = template.IsShared

		var existing int64
		if err := tx.Model(&models.UserLike{}).
			Where("user_id = ? AND prompt_template_id = ?", userID, templateID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyLiked
		}

		like := models.UserLike{UserID: userID, PromptTemplateID: templateID}
		if err := tx.Create(&like).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return ErrAlreadyLiked
			}
			return err
		}

		if err := tx.Model(&models.PromptTemplate{}).Where("id = ?", templateID).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Model(&models.PromptTemplate{}).Where("id = ?", templateID).
			Select("like_count").Scan(&likeCount).Error
	})
	if err != nil {
		return 0, err
	}

	if shared {
		invalidateSharedTemplates(ctx)
	}
	return likeCount, nil
}

// UnlikeTemplate removes userID's like and decrements the like count, never below zero.
func UnlikeTemplate(ctx context.Context, templateID uint, userID string) (int, error) {
	var likeCount int
	var shared bool

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template models.PromptTemplate
		if err := tx.First(&template, templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTemplateNotFound
			}
			return err
		}
		shared = template.IsShared

		result := tx.Where("user_id = ? AND prompt_template_id = ?", userID, templateID).Delete(&models.UserLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLikeNotFound
		}

		if err := tx.Model(&models.PromptTemplate{}).Where("id = ?", templateID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error; err != nil {
			return err
		}
		return tx.Model(&models.PromptTemplate{}).Where("id = ?", templateID).
			Select("like_count").Scan(&likeCount).Error
	})
	if err != nil {
		return 0, err
	}

	if shared {
		invalidateSharedTemplates(ctx)
	}
	return likeCount, nil
}

func IsTemplateLiked(ctx context.Context, templateID uint, userID string) (bool, error) {
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.UserLike{}).
		Where("user_id = ? AND prompt_template_id = ?", userID, templateID).
		Count(&count).Error
	return count > 0, err
}

// LikedTemplateIDs returns the subset of templateIDs that userID has liked.
func LikedTemplateIDs(ctx context.Context, userID string, templateIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(templateIDs))
	if userID == "" || len(templateIDs) == 0 {
		return liked, nil
	}

	var ids []uint
	if err := database.DB.WithContext(ctx).Model(&models.UserLike{}).
		Where("user_id = ? AND prompt_template_id IN ?", userID, templateIDs).
		Pluck("prompt_template_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// ListLikedTemplates lists templates userID liked that are still visible to them, most recent like first.
func ListLikedTemplates(ctx context.Context, userID string, page, size int) ([]models.PromptTemplate, int64, error) {
	page, size = NormalizePage(page, size)

	var templates []models.PromptTemplate
	var total int64

	db := database.DB.WithContext(ctx).Model(&models.PromptTemplate{}).
		Joins("JOIN user_likes ON user_likes.prompt_template_id = prompt_templates.id").
		Where("user_likes.user_id = ?", userID).
		Where("prompt_templates.is_shared = ? OR prompt_templates.user_id = ?", true, userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Select("prompt_templates.*").
		Order("user_likes.created_at DESC, user_likes.id DESC").
		Offset(offset(page, size)).Limit(size).
		Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}
