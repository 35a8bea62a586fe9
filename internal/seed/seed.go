// Package seed makes sure a default administrator exists before the server takes traffic.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/config"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/metrics"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/platform/retry"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errHashPassword = errors.New("hash default password")

type Options struct {
	Username    string
	Password    string
	DisplayName string
	Timeout     time.Duration
	Clock       clockwork.Clock
	Retry       retry.Policy
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Username:    cfg.DefaultUsername,
		Password:    cfg.DefaultPassword,
		DisplayName: cfg.DefaultDisplayName,
		Timeout:     cfg.SeedTimeout,
		Clock:       clockwork.NewRealClock(),
		Retry:       retry.DefaultPolicy(cfg.SeedMaxAttempts),
	}
}

// EnsureDefaultAdmin creates the default admin account when no user has its username.
// It reports whether a user was created. A concurrent instance winning the insert
// counts as "already exists".
func EnsureDefaultAdmin(ctx context.Context, db *gorm.DB, opts Options) (bool, error) {
	if opts.Username == "" || opts.Password == "" {
		return false, errors.New("default username and password must not be empty")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = retry.DefaultPolicy(1)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log := logger.L().With(zap.String("username", opts.Username))

	policy := opts.Retry
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("Seeding default user failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))
	}

	created, err := retry.Do(ctx, policy, classify, func(ctx context.Context) (bool, error) {
		return ensureOnce(ctx, db, opts)
	})
	if err != nil {
		metrics.SeedRunsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("seed default user: %w", err)
	}

	if created {
		metrics.SeedRunsTotal.WithLabelValues("created").Inc()
		log.Info("Default admin user created")
	} else {
		metrics.SeedRunsTotal.WithLabelValues("exists").Inc()
		log.Info("Default admin user already exists")
	}
	return created, nil
}

func ensureOnce(ctx context.Context, db *gorm.DB, opts Options) (bool, error) {
	tx := db.WithContext(ctx)

	var existing models.User
	err := tx.Where("username = ?", opts.Username).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("look up default user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errHashPassword, err)
	}

	now := opts.Clock.Now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     opts.Username,
		PasswordHash: string(hash),
		DisplayName:  opts.DisplayName,
		Role:         models.RoleAdmin,
		IsActive:     true,
		LastLoginAt:  &now,
	}

	if err := tx.Create(&user).Error; err != nil {
		if database.IsDuplicateKey(err) {
			// Another instance won the insert.
			if rerr := tx.Where("username = ?", opts.Username).First(&existing).Error; rerr != nil {
				return false, fmt.Errorf("re-read default user: %w", rerr)
			}
			return false, nil
		}
		return false, fmt.Errorf("create default user: %w", err)
	}
	return true, nil
}

func classify(err error) retry.Action {
	if errors.Is(err, errHashPassword) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	return retry.Retry
}
