package services

import (
	"context"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"
)

const denylistPrefix = "denylist:"

// AddToDenylist revokes a token until it would have expired anyway.
// Without Redis revocation is a no-op.
func AddToDenylist(ctx context.Context, tokenString string, expiration time.Duration) error {
	if database.RedisClient == nil || expiration <= 0 {
		return nil
	}
	key := denylistPrefix + tokenString
	return database.RedisClient.Set(ctx, key, 1, expiration).Err()
}

func IsDenylisted(ctx context.Context, tokenString string) (bool, error) {
	if database.RedisClient == nil {
		return false, nil
	}
	key := denylistPrefix + tokenString
	val, err := database.RedisClient.Get(ctx, key).Result()
	if err != nil {
		if database.IsRedisNil(err) {
			return false, nil
		}
		return false, err
	}
	return val != "", nil
}
