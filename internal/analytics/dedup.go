package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator keeps a short-lived marker per stored order id.
type RedisDeduplicator struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDeduplicator(rdb redis.Cmdable, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduplicator{rdb: rdb, ttl: ttl}
}

func key(orderID string) string {
	return fmt.Sprintf("analytics:order_seen:%s", orderID)
}

// FirstSeen marks the order and reports whether it was unmarked before.
func (d *RedisDeduplicator) FirstSeen(ctx context.Context, orderID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, key(orderID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX failed: %w", err)
	}
	return ok, nil
}

func (d *RedisDeduplicator) Forget(ctx context.Context, orderID string) error {
	if err := d.rdb.Del(ctx, key(orderID)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}
