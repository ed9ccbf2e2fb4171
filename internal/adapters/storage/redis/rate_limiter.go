package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiterAdapter is a Redis implementation of the RateLimiterRepository port.
type RateLimiterAdapter struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRateLimiterAdapter(rdb redis.Cmdable) *RateLimiterAdapter {
	return &RateLimiterAdapter{rdb: rdb, prefix: "ratelimit:"}
}

// IsAllowed counts requests for key in a fixed window.
func (a *RateLimiterAdapter) IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := a.prefix + key

	count, err := a.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis INCR failed: %w", err)
	}

	// first hit opens the window
	if count == 1 {
		if err := a.rdb.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("redis EXPIRE failed: %w", err)
		}
	}

	return count <= int64(limit), nil
}
