package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-inference-server/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// unreachableRedis points at a port nothing listens on.
func unreachableRedis(failures uint32) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCacheFromClient(client, domain.CacheConfig{
		TTL:             time.Minute,
		RedisTimeout:    100 * time.Millisecond,
		BreakerFailures: failures,
		BreakerTimeout:  time.Minute,
	}, quietLogger())
}

func TestTieredMemoryOnly(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)
	tiered := NewTiered(memory, nil, quietLogger())

	_, err = tiered.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, tiered.Set(ctx, "k", sampleResults()))
	got, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), got)

	stats := tiered.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Empty(t, stats.RedisState)
	assert.NoError(t, tiered.Close())
}

func TestTieredDegradesWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	memory, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)
	rc := unreachableRedis(2)
	tiered := NewTiered(memory, rc, quietLogger())
	defer tiered.Close()

	_, err = tiered.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, tiered.Set(ctx, "k", sampleResults()))
	got, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), got)

	stats := tiered.Stats()
	assert.Equal(t, int64(2), stats.RedisErrors)
	assert.Equal(t, "open", stats.RedisState)
}

func TestRedisCacheBreakerOpens(t *testing.T) {
	ctx := context.Background()
	rc := unreachableRedis(1)
	defer rc.Close()

	_, err := rc.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRedisUnavailable)

	_, err = rc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrRedisUnavailable)
	assert.Equal(t, "open", rc.State())

	err = rc.Set(ctx, "k", sampleResults())
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache(domain.CacheConfig{RedisURL: "not a url"}, quietLogger())
	assert.Error(t, err)
}
