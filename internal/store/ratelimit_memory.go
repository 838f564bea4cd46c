package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/linkguard/internal/ratelimit"
)

// RateLimitMemoryStore is an in-process ratelimit.Store for single-instance deployments.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	// Timestamps are appended in order, so everything before the first live one is expired.
	hits := s.requests[key]
	first := len(hits)

	for i, ts := range hits {
		if ts.After(cutoff) {
			first = i

			break
		}
	}

	hits = append(hits[first:], now)
	s.requests[key] = hits

	return int64(len(hits)), nil
}

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
