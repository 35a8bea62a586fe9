package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	UserCacheKeyPrefix = "user:"
	UserCacheDuration  = time.Hour
)

func FindUserByID(ctx context.Context, userID string) (models.User, error) {
	cacheKey := UserCacheKeyPrefix + userID
	if database.RedisClient != nil {
		val, err := database.RedisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				return user, nil
			}
		}
	}

	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}

	if database.RedisClient != nil {
		if data, err := json.Marshal(user); err == nil {
			database.RedisClient.Set(ctx, cacheKey, data, UserCacheDuration)
		}
	}

	return user, nil
}

func invalidateUserCache(ctx context.Context, userID string) {
	if database.RedisClient != nil {
		database.RedisClient.Del(ctx, UserCacheKeyPrefix+userID)
	}
}

// FindUsers retrieves a paginated list of users.
func FindUsers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	page, limit = NormalizePage(page, limit)

	var users []models.User
	var total int64

	db := database.DB.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at ASC, id ASC").Limit(limit).Offset(offset(page, limit)).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// UserUpdate holds the admin-editable fields; nil means unchanged.
type UserUpdate struct {
	DisplayName *string
	Role        *string
	IsActive    *bool
	Password    *string
	Version     int
}

// UpdateUser updates a user with optimistic locking on Version.
func UpdateUser(ctx context.Context, id string, in UserUpdate, operator string) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.DisplayName != nil {
		updates["display_name"] = *in.DisplayName
	}
	if in.Role != nil {
		updates["role"] = *in.Role
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.Password != nil && *in.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = string(hashedPassword)
	}

	var user models.User
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if in.Version != 0 && in.Version != user.Version {
			return ErrOptimisticLock
		}

		currentVersion := user.Version
		updates["version"] = currentVersion + 1

		result := tx.Model(&models.User{}).Where("id = ? AND version = ?", id, currentVersion).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}
		return tx.First(&user, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	invalidateUserCache(ctx, id)

	fields := make([]string, 0, len(updates))
	for k := range updates {
		if k != "password_hash" && k != "version" {
			fields = append(fields, k)
		}
	}
	logger.L().Info("User updated",
		zap.String("user_id", id),
		zap.String("operator", operator),
		zap.Strings("fields", fields),
		zap.Bool("password_changed", updates["password_hash"] != nil))

	return &user, nil
}
