// Package inventory implements garment registration, sales and the
// dashboard statistics on top of a store.Store.
package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"stockroom/m/domain"
	"stockroom/m/internal/cache"
	"stockroom/m/internal/store"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrAlreadyExists     = errors.New("already exists")
)

// StatsCache holds the last computed dashboard statistics. Every
// invalidation bumps a generation; SetStats drops stats computed under an
// older one.
type StatsCache interface {
	// GetStats returns nil without error on a miss.
	GetStats(ctx context.Context) (*domain.DashboardStats, error)
	StatsGeneration(ctx context.Context) (int64, error)
	SetStats(ctx context.Context, generation int64, stats domain.DashboardStats) error
	InvalidateStats(ctx context.Context) error
}

// IdempotencyGuard remembers request keys already seen.
type IdempotencyGuard interface {
	// SetIdempotency returns false if key was already taken.
	SetIdempotency(ctx context.Context, key string) (bool, error)
	ReleaseIdempotency(ctx context.Context, key string) error
}

type Options struct {
	Logger *zap.Logger
	// Location decides which calendar day "today" is.
	Location          *time.Location
	LowStockThreshold int
	Cache             StatsCache
	Idempotency       IdempotencyGuard
	Clock             func() time.Time
}

type Service struct {
	store     store.Store
	log       *zap.Logger
	loc       *time.Location
	threshold int
	stats     StatsCache
	idem      IdempotencyGuard
	clock     func() time.Time
}

// NewService fills unset options with defaults: a no-op logger, the local
// time zone, a threshold of 5 and an in-process cache with no stats TTL.
func NewService(st store.Store, opts Options) *Service {
	s := &Service{
		store:     st,
		log:       opts.Logger,
		loc:       opts.Location,
		threshold: opts.LowStockThreshold,
		stats:     opts.Cache,
		idem:      opts.Idempotency,
		clock:     opts.Clock,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.threshold <= 0 {
		s.threshold = domain.DefaultLowStockThreshold
	}
	if s.stats == nil || s.idem == nil {
		mem := cache.NewMemory(0)
		if s.stats == nil {
			s.stats = mem
		}
		if s.idem == nil {
			s.idem = mem
		}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock().In(s.loc)
}

// Today is the current sale date in the service's time zone.
func (s *Service) Today() string {
	return domain.Day(s.now())
}

// LowStockThreshold is the threshold used when callers pass none.
func (s *Service) LowStockThreshold() int {
	return s.threshold
}

// GarmentTypes lists the known garment categories.
func (s *Service) GarmentTypes() []string {
	out := make([]string, len(domain.GarmentTypes))
	copy(out, domain.GarmentTypes)
	return out
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.stats.InvalidateStats(ctx); err != nil {
		s.log.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
