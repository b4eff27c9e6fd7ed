package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/domain"
)

// Stats counts cache outcomes since startup.
type Stats struct {
	MemoryHits  int64  `json:"memory_hits"`
	RedisHits   int64  `json:"redis_hits"`
	Misses      int64  `json:"misses"`
	RedisErrors int64  `json:"redis_errors"`
	Entries     int    `json:"entries"`
	RedisState  string `json:"redis_state,omitempty"`
}

// Tiered checks the in-process cache first, then Redis when configured.
// Redis hits are copied into memory. Redis failures degrade to misses.
type Tiered struct {
	memory *MemoryCache
	redis  *RedisCache
	logger *logrus.Logger

	memoryHits  atomic.Int64
	redisHits   atomic.Int64
	misses      atomic.Int64
	redisErrors atomic.Int64
}

// NewTiered combines the tiers. redis may be nil.
func NewTiered(memory *MemoryCache, redis *RedisCache, logger *logrus.Logger) *Tiered {
	return &Tiered{memory: memory, redis: redis, logger: logger}
}

var _ domain.ResultCache = (*Tiered)(nil)

// Get returns the results stored under key, ErrCacheMiss when no tier has them.
func (t *Tiered) Get(ctx context.Context, key string) ([]domain.ConditionAssessment, error) {
	if results, err := t.memory.Get(ctx, key); err == nil {
		t.memoryHits.Add(1)
		return results, nil
	}

	if t.redis != nil {
		results, err := t.redis.Get(ctx, key)
		switch {
		case err == nil:
			t.redisHits.Add(1)
			_ = t.memory.Set(ctx, key, results)
			return results, nil
		case !errors.Is(err, domain.ErrCacheMiss):
			t.redisErrors.Add(1)
			t.logger.WithError(err).Debug("Redis cache lookup failed")
		}
	}

	t.misses.Add(1)
	return nil, domain.ErrCacheMiss
}

// Set writes to every tier. A Redis failure is logged and not returned, the
// memory tier still holds the value.
func (t *Tiered) Set(ctx context.Context, key string, results []domain.ConditionAssessment) error {
	if err := t.memory.Set(ctx, key, results); err != nil {
		return err
	}
	if t.redis != nil {
		if err := t.redis.Set(ctx, key, results); err != nil {
			t.redisErrors.Add(1)
			t.logger.WithError(err).Debug("Redis cache write failed")
		}
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (t *Tiered) Stats() Stats {
	s := Stats{
		MemoryHits:  t.memoryHits.Load(),
		RedisHits:   t.redisHits.Load(),
		Misses:      t.misses.Load(),
		RedisErrors: t.redisErrors.Load(),
		Entries:     t.memory.Len(),
	}
	if t.redis != nil {
		s.RedisState = t.redis.State()
	}
	return s
}

// Close releases the Redis tier, if any.
func (t *Tiered) Close() error {
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}
