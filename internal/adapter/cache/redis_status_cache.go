package cache

import (
	"context"
	"time"

	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisStatusCache mirrors checkout session status for cheap polling reads.
type RedisStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusCache(rdb *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, ttl: ttl}
}

func (r *RedisStatusCache) SetStatus(ctx context.Context, sessionID, status string) error {
	return r.rdb.Set(ctx, "checkout:status:"+sessionID, status, r.ttl).Err()
}

func (r *RedisStatusCache) GetStatus(ctx context.Context, sessionID string) (string, error) {
	val, err := r.rdb.Get(ctx, "checkout:status:"+sessionID).Result()
	if err == redis.Nil {
		return "", usecase.ErrNotFound
	}
	return val, err
}

var _ usecase.StatusCache = (*RedisStatusCache)(nil)
