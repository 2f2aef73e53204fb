package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stockroom/m/domain"
)

const cleanupInterval = 10 * time.Minute

// Memory is the in-process counterpart of RedisAdapter for single-instance
// deployments. Stats are kept encoded so callers never share slices with
// the cache.
type Memory struct {
	items          *gocache.Cache
	idempotencyTTL time.Duration
	statsTTL       time.Duration

	// mu orders stats writes against invalidations.
	mu         sync.Mutex
	generation int64
}

func NewMemory(statsTTL time.Duration) *Memory {
	return newMemory(statsTTL, idempotencyKeyTTL, cleanupInterval)
}

func newMemory(statsTTL, idempotencyTTL, cleanup time.Duration) *Memory {
	return &Memory{
		items:          gocache.New(gocache.NoExpiration, cleanup),
		idempotencyTTL: idempotencyTTL,
		statsTTL:       statsTTL,
	}
}

func (m *Memory) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if err := m.items.Add(idempotencyKeyPrefix+key, struct{}{}, m.idempotencyTTL); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Memory) ReleaseIdempotency(ctx context.Context, key string) error {
	m.items.Delete(idempotencyKeyPrefix + key)
	return nil
}

func (m *Memory) GetStats(ctx context.Context) (*domain.DashboardStats, error) {
	v, ok := m.items.Get(statsKey)
	if !ok {
		return nil, nil
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(v.([]byte), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (m *Memory) StatsGeneration(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation, nil
}

func (m *Memory) SetStats(ctx context.Context, generation int64, stats domain.DashboardStats) error {
	if m.statsTTL <= 0 {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return nil
	}
	m.items.Set(statsKey, raw, m.statsTTL)
	return nil
}

func (m *Memory) InvalidateStats(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.items.Delete(statsKey)
	return nil
}
