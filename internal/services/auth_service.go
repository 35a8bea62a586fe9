package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/auth"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/metrics"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errTokenServiceNotConfigured = errors.New("token service not configured")

// tokenService is installed at startup from JWT_SECRET / JWT_TTL.
var tokenService *auth.JWTService

func SetTokenService(s *auth.JWTService) {
	tokenService = s
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func RegisterUser(ctx context.Context, username, password, displayName string) (*models.User, error) {
	db := database.DB.WithContext(ctx)
	username = strings.TrimSpace(username)

	var existingUser models.User
	result := db.Where("username = ?", username).First(&existingUser)
	if result.Error == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if displayName == "" {
		displayName = username
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		Role:         models.RoleUser,
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

func LoginUser(ctx context.Context, username, password string) (*LoginResult, error) {
	if tokenService == nil {
		return nil, errTokenServiceNotConfigured
	}
	db := database.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, ErrUserInactive
	}

	token, expiresAt, err := tokenService.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := time.Now()
	if err := db.Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	user.LastLoginAt = &now
	invalidateUserCache(ctx, user.ID)

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// LogoutUser revokes token for the rest of its lifetime. Invalid tokens need no revocation.
func LogoutUser(ctx context.Context, token string) error {
	if tokenService == nil {
		return errTokenServiceNotConfigured
	}
	claims, err := tokenService.Parse(token)
	if err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return AddToDenylist(ctx, token, time.Until(claims.ExpiresAt.Time))
}
