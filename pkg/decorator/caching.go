package decorator

import (
	"context"
	"time"
)

// CacheStatus is the outcome of a cache lookup, reported as HIT, MISS,
// BYPASS or ERROR.
type CacheStatus string

const (
	CacheStatusHit    CacheStatus = "HIT"
	CacheStatusMiss   CacheStatus = "MISS"
	CacheStatusBypass CacheStatus = "BYPASS"
	CacheStatusError  CacheStatus = "ERROR"
)

type (
	CacheConfig struct {
		Enabled bool
		TTL     time.Duration
	}

	// Cache stores query results keyed by the query itself. Every
	// invalidation of an entry advances its epoch.
	Cache[Q Query, R Result] interface {
		Get(ctx context.Context, query Q) (R, bool, error)
		Epoch(ctx context.Context, query Q) (int64, error)
		// Set stores result only while the entry's epoch still equals epoch.
		Set(ctx context.Context, query Q, result R, epoch int64, ttl time.Duration) error
	}

	// StatusRecorder observes the outcome of every lookup.
	StatusRecorder func(ctx context.Context, status CacheStatus)

	cachedQuery[Q Query, R Result] struct {
		base     QueryHandler[Q, R]
		cache    Cache[Q, R]
		cfg      CacheConfig
		recorder StatusRecorder
	}

	cacheStatusKey struct{}
)

// WithCacheStatus tells the wrapped handler how its result was obtained.
func WithCacheStatus(ctx context.Context, status CacheStatus) context.Context {
	return context.WithValue(ctx, cacheStatusKey{}, status)
}

// GetCacheStatus defaults to BYPASS outside a caching decorator.
func GetCacheStatus(ctx context.Context) CacheStatus {
	status, ok := ctx.Value(cacheStatusKey{}).(CacheStatus)
	if !ok {
		return CacheStatusBypass
	}

	return status
}

// NewQueryCachingDecorator puts a read-through cache in front of base. The
// entry's epoch is read before base runs and a miss is stored only if no
// invalidation happened in between, so a slow read cannot bring back a value
// that was replaced meanwhile. A failing cache falls through to base without
// storing anything. recorder may be nil.
func NewQueryCachingDecorator[Q Query, R Result](
	base QueryHandler[Q, R],
	cache Cache[Q, R],
	cfg CacheConfig,
	recorder StatusRecorder,
) QueryHandler[Q, R] {
	return cachedQuery[Q, R]{base: base, cache: cache, cfg: cfg, recorder: recorder}
}

func (c cachedQuery[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	if !c.cfg.Enabled || c.cache == nil {
		c.observe(ctx, CacheStatusBypass)

		return c.base.Execute(WithCacheStatus(ctx, CacheStatusBypass), query)
	}

	cached, hit, err := c.cache.Get(ctx, query)
	switch {
	case err != nil:
		c.observe(ctx, CacheStatusError)

		return c.base.Execute(WithCacheStatus(ctx, CacheStatusMiss), query)
	case hit:
		c.observe(ctx, CacheStatusHit)

		return cached, nil
	}

	c.observe(ctx, CacheStatusMiss)

	epoch, epochErr := c.cache.Epoch(ctx, query)

	result, err := c.base.Execute(WithCacheStatus(ctx, CacheStatusMiss), query)
	if err != nil {
		var zero R

		return zero, err
	}

	if epochErr != nil {
		c.observe(ctx, CacheStatusError)

		return result, nil
	}

	if err := c.cache.Set(context.WithoutCancel(ctx), query, result, epoch, c.cfg.TTL); err != nil {
		c.observe(ctx, CacheStatusError)
	}

	return result, nil
}

func (c cachedQuery[Q, R]) observe(ctx context.Context, status CacheStatus) {
	if c.recorder == nil {
		return
	}

	c.recorder(ctx, status)
}
