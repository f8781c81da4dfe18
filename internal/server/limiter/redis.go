package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "memorial:login:"

// RedisLimiter keeps fixed-window counters in Redis so that every server
// instance shares one budget.
type RedisLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (l *RedisLimiter) Check(ctx context.Context, key string) error {
	count, err := l.client.Get(ctx, keyPrefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis: %w", err)
	}
	if count >= int64(l.maxAttempts) {
		return common.ErrRateLimited
	}
	return nil
}

func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	k := keyPrefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	// the window starts with the first failure
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
