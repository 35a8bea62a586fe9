package database

import (
	"context"
	"errors"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/config"

	"github.com/go-redis/redis/v8"
)

var (
	// RedisClient is nil when no Redis host is configured; callers must check.
	RedisClient *redis.Client
	Ctx         = context.Background()
)

func ConnectRedis(cfg *config.Config) error {
	if !cfg.RedisEnabled() {
		RedisClient = nil
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisFullAddr(),
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	})

	ctx, cancel := context.WithTimeout(Ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return err
	}

	RedisClient = client
	return nil
}

// IsRedisNil reports whether err is the "key does not exist" reply.
func IsRedisNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
