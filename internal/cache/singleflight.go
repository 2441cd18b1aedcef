package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// NonCacheableFunc classifies a would-be cache value as ineligible for
// storage (write commands, streaming pushes of ephemeral state, opt-out
// requests), per spec.md §4.2's "never inserted" invariant.
type NonCacheableFunc func(value []byte) bool

// SingleFlightCache wraps a Cache with in-process call collapsing: at most
// one concurrent upstream call happens per Fingerprint across all goroutines
// in this process sharing the same SingleFlightCache, per spec.md §4.2's
// in-progress-sentinel invariant. A Redis-backed Cache still provides the
// cross-process half cooperatively (two processes racing may both miss and
// both call through; that's spec.md §5's accepted race, not a bug here).
type SingleFlightCache struct {
	cache        Cache
	group        singleflight.Group
	nonCacheable NonCacheableFunc
}

// NewSingleFlightCache wraps cache (nil disables caching entirely — GetOrLoad
// still collapses concurrent callers but never persists). nonCacheable may
// be nil to cache everything load returns.
func NewSingleFlightCache(cache Cache, nonCacheable NonCacheableFunc) *SingleFlightCache {
	if nonCacheable == nil {
		nonCacheable = func([]byte) bool { return false }
	}
	return &SingleFlightCache{cache: cache, nonCacheable: nonCacheable}
}

// GetOrLoad returns the cached value for fingerprint if present; otherwise
// it calls load exactly once across every concurrent caller sharing the
// same fingerprint in this process, and caches a cacheable result for ttl.
// hit reports whether the value came from the cache.
func (c *SingleFlightCache) GetOrLoad(ctx context.Context, fingerprint string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) (value []byte, hit bool, err error) {
	if c.cache != nil {
		if cached, getErr := c.cache.Get(ctx, string(fingerprint)); getErr == nil && cached != nil {
			return cached, true, nil
		}
	}

	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		result, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if c.cache != nil && !c.nonCacheable(result) {
			_ = c.cache.Set(ctx, fingerprint, result, ttl)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Forget releases the in-flight entry for fingerprint without waiting for it
// to complete. Used on caller cancellation so a cancelled request's sentinel
// doesn't block every other caller waiting on the same fingerprint (spec.md
// §5's cancellation semantics: clear any in-progress sentinel it placed).
func (c *SingleFlightCache) Forget(fingerprint string) {
	c.group.Forget(fingerprint)
}
