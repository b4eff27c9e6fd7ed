package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/medguard-inference-server/internal/domain"
)

// ErrRedisUnavailable is returned while the circuit breaker is open.
var ErrRedisUnavailable = errors.New("redis cache unavailable")

// cachedResults is the Redis payload.
type cachedResults struct {
	Results  []domain.ConditionAssessment `json:"results"`
	CachedAt time.Time                    `json:"cached_at"`
}

// RedisCache stores results in Redis. All calls pass through a circuit
// breaker so a failing Redis costs one fast error instead of a timeout per
// request.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	timeout time.Duration
	logger  *logrus.Logger
}

// NewRedisCache connects to the Redis instance named by config.RedisURL.
func NewRedisCache(config domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.RedisTimeout > 0 {
		opts.DialTimeout = config.RedisTimeout
		opts.ReadTimeout = config.RedisTimeout
		opts.WriteTimeout = config.RedisTimeout
	}

	c := NewRedisCacheFromClient(redis.NewClient(opts), config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return c, nil
}

// NewRedisCacheFromClient wraps an existing client without checking it.
func NewRedisCacheFromClient(client *redis.Client, config domain.CacheConfig, logger *logrus.Logger) *RedisCache {
	failures := config.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	openFor := config.BreakerTimeout
	if openFor == 0 {
		openFor = 30 * time.Second
	}
	timeout := config.RedisTimeout
	if timeout == 0 {
		timeout = 200 * time.Millisecond
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-result-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RedisCache{
		client:  client,
		breaker: breaker,
		ttl:     config.TTL,
		timeout: timeout,
		logger:  logger,
	}
}

// Get returns the results stored under key, ErrCacheMiss when absent.
func (r *RedisCache) Get(ctx context.Context, key string) ([]domain.ConditionAssessment, error) {
	raw, err := r.execute(ctx, func(ctx context.Context) (interface{}, error) {
		val, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// redis.Nil is a miss, not a failure.
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		return nil, err
	}

	data, _ := raw.([]byte)
	if data == nil {
		return nil, domain.ErrCacheMiss
	}

	var cached cachedResults
	if err := json.Unmarshal(data, &cached); err != nil {
		r.logger.WithError(err).WithField("cache_key", key).Warn("Dropping corrupted cache entry")
		r.client.Del(ctx, key)
		return nil, domain.ErrCacheMiss
	}
	if cached.Results == nil {
		cached.Results = []domain.ConditionAssessment{}
	}
	return cached.Results, nil
}

// Set stores results under key for the configured TTL.
func (r *RedisCache) Set(ctx context.Context, key string, results []domain.ConditionAssessment) error {
	if results == nil {
		results = []domain.ConditionAssessment{}
	}
	payload, err := json.Marshal(cachedResults{Results: results, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal cached results: %w", err)
	}

	_, err = r.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, r.client.Set(ctx, key, payload, r.ttl).Err()
	})
	return err
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// State reports the circuit breaker state.
func (r *RedisCache) State() string {
	return r.breaker.State().String()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return out, err
}
