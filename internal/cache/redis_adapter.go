// Package cache keeps sale idempotency keys and the dashboard statistics,
// in Redis or in process.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"stockroom/m/domain"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	statsKey             = "stats:dashboard"
	statsGenerationKey   = "stats:generation"
)

type RedisAdapter struct {
	client   *redis.Client
	statsTTL time.Duration
}

// NewRedisAdapter caches stats for statsTTL; a non-positive TTL disables
// stats caching.
func NewRedisAdapter(client *redis.Client, statsTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, statsTTL: statsTTL}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetStats(ctx context.Context) (*domain.DashboardStats, error) {
	raw, err := r.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// StatsGeneration returns the counter bumped by every invalidation.
func (r *RedisAdapter) StatsGeneration(ctx context.Context) (int64, error) {
	return generation(ctx, r.client)
}

// SetStats stores stats only while the generation they were computed under
// is still current.
func (r *RedisAdapter) SetStats(ctx context.Context, gen int64, stats domain.DashboardStats) error {
	if r.statsTTL <= 0 {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey, raw, r.statsTTL)
			return nil
		})
		return err
	}, statsGenerationKey)
	if errors.Is(err, redis.TxFailedErr) {
		// invalidated while writing
		return nil
	}
	return err
}

func (r *RedisAdapter) InvalidateStats(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenerationKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, c getter) (int64, error) {
	gen, err := c.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}
