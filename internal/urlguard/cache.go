package urlguard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// VerdictCache is a shared cache of vendor verdicts, keyed by URL digest.
// Misses and backend errors are both reported as ok == false.
type VerdictCache interface {
	Get(ctx context.Context, key string) (Reputation, bool)
	Set(ctx context.Context, key string, rep Reputation)
}

// CachedLookup remembers definitive verdicts and collapses concurrent lookups of the same URL.
type CachedLookup struct {
	next   Lookup
	local  *expirable.LRU[string, Reputation]
	shared VerdictCache
	group  singleflight.Group

	flightTimeout time.Duration
}

// CacheOption configures a CachedLookup.
type CacheOption func(*CachedLookup)

// WithFlightTimeout bounds a vendor lookup whose starting caller has no deadline.
func WithFlightTimeout(d time.Duration) CacheOption {
	return func(c *CachedLookup) { c.flightTimeout = d }
}

// WithSharedCache adds a second-level cache consulted after the in-process one.
func WithSharedCache(cache VerdictCache) CacheOption {
	return func(c *CachedLookup) { c.shared = cache }
}

func NewCachedLookup(next Lookup, size int, ttl time.Duration, opts ...CacheOption) *CachedLookup {
	c := &CachedLookup{
		next:          next,
		local:         expirable.NewLRU[string, Reputation](size, nil, ttl),
		flightTimeout: DefaultReputationTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *CachedLookup) Lookup(ctx context.Context, rawURL string) (Reputation, error) {
	key := CacheKey(rawURL)

	if rep, ok := c.local.Get(key); ok {
		return rep, nil
	}

	if c.shared != nil {
		if rep, ok := c.shared.Get(ctx, key); ok {
			c.local.Add(key, rep)

			return rep, nil
		}
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(ctx, key, rawURL)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Reputation{}, res.Err
		}

		return res.Val.(Reputation), nil
	case <-ctx.Done():
		return Reputation{}, ctx.Err()
	}
}

// fetch runs one vendor lookup for every caller waiting on key. It is detached from the
// starting caller's cancellation and bounded by that caller's remaining budget.
func (c *CachedLookup) fetch(ctx context.Context, key, rawURL string) (Reputation, error) {
	flightCtx := context.WithoutCancel(ctx)

	budget := c.flightTimeout
	if deadline, ok := ctx.Deadline(); ok {
		budget = time.Until(deadline)
	}

	flightCtx, cancel := context.WithTimeout(flightCtx, budget)
	defer cancel()

	rep, err := c.next.Lookup(flightCtx, rawURL)
	if err != nil {
		return Reputation{}, err
	}

	if rep.Verdict == VerdictAllow || rep.Verdict == VerdictBlock {
		c.local.Add(key, rep)

		if c.shared != nil {
			c.shared.Set(flightCtx, key, rep)
		}
	}

	return rep, nil
}

// Len returns the number of locally cached verdicts.
func (c *CachedLookup) Len() int {
	return c.local.Len()
}

// CacheKey is the digest under which a URL's verdict is cached.
func CacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))

	return hex.EncodeToString(sum[:])
}
