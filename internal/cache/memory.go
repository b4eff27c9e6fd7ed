package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/medguard-inference-server/internal/domain"
)

// MemoryCache is a size bounded, TTL bounded in-process result cache.
type MemoryCache struct {
	lru *expirable.LRU[string, []domain.ConditionAssessment]
}

// NewMemoryCache creates a cache holding at most size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", size)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []domain.ConditionAssessment](size, nil, ttl),
	}, nil
}

// Get returns a copy of the results stored under key.
func (m *MemoryCache) Get(_ context.Context, key string) ([]domain.ConditionAssessment, error) {
	results, ok := m.lru.Get(key)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return cloneResults(results), nil
}

// Set stores a copy of results under key.
func (m *MemoryCache) Set(_ context.Context, key string, results []domain.ConditionAssessment) error {
	if results == nil {
		results = []domain.ConditionAssessment{}
	}
	m.lru.Add(key, cloneResults(results))
	return nil
}

// Len reports the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Purge drops every entry.
func (m *MemoryCache) Purge() {
	m.lru.Purge()
}
