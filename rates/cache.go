// Package rates caches the GBP→XMR exchange rate in front of a price oracle
// and converts GBP amounts into XMR quotes.
package rates

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitwit/xmrcheckout/clients"
	"github.com/vitwit/xmrcheckout/logger"
	"github.com/vitwit/xmrcheckout/metrics"
	"github.com/vitwit/xmrcheckout/types"
)

// PriceOracle quotes the price of 1 XMR in GBP.
type PriceOracle interface {
	PriceGBP(ctx context.Context) (float64, error)
	Name() string
}

// Cache serves the GBP→XMR rate from the last oracle observation while it is
// fresh and refreshes it lazily on read. Concurrent misses share one oracle
// call. A zero Cache is not usable; construct one with NewCache.
type Cache struct {
	oracle     PriceOracle
	now        func() time.Time
	ttl        time.Duration
	staleLimit time.Duration
	timeout    time.Duration
	logger     logger.Logger
	metrics    metrics.Recorder

	current atomic.Pointer[types.ExchangeRateSnapshot]

	// refresh serialises oracle calls. attempts counts finished refreshes so
	// that callers queued behind a failed one reuse its outcome.
	refresh  sync.Mutex
	attempts atomic.Uint64
	lastErr  error
}

type CacheOption func(*Cache)

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithStaleLimit sets how old the last snapshot may be and still be served
// when a refresh fails.
func WithStaleLimit(limit time.Duration) CacheOption {
	return func(c *Cache) {
		if limit > 0 {
			c.staleLimit = limit
		}
	}
}

// WithFetchTimeout bounds a single oracle call, and with it how long the
// refresh lock can be held.
func WithFetchTimeout(timeout time.Duration) CacheOption {
	return func(c *Cache) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(l logger.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) CacheOption {
	return func(c *Cache) {
		c.metrics = metrics.OrNoop(r)
	}
}

// WithSnapshot primes the cache, e.g. with a rate persisted by the caller
// across restarts.
func WithSnapshot(s types.ExchangeRateSnapshot) CacheOption {
	return func(c *Cache) {
		s.Stale = false
		c.current.Store(&s)
	}
}

func NewCache(oracle PriceOracle, opts ...CacheOption) *Cache {
	c := &Cache{
		oracle:     oracle,
		now:        time.Now,
		ttl:        types.RateTTL,
		staleLimit: types.StaleFallbackLimit,
		timeout:    types.DefaultOracleTimeout,
		logger:     logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRate returns the current GBP→XMR rate. A fresh snapshot is returned
// without I/O. Otherwise one caller refreshes from the oracle while the
// others wait for its result. If the refresh fails and the last snapshot is
// younger than the stale limit, a copy of it marked Stale is returned
// without error.
func (c *Cache) GetRate(ctx context.Context) (types.ExchangeRateSnapshot, error) {
	labels := map[string]string{"source": c.oracle.Name()}

	if snap := c.current.Load(); snap.IsValidAt(c.now()) {
		c.metrics.IncCounter(metrics.RateCacheHit, labels)
		return *snap, nil
	}

	seen := c.attempts.Load()

	c.refresh.Lock()
	defer c.refresh.Unlock()

	now := c.now()
	if snap := c.current.Load(); snap.IsValidAt(now) {
		c.metrics.IncCounter(metrics.RateCacheHit, labels)
		return *snap, nil
	}

	if c.attempts.Load() != seen && c.lastErr != nil {
		return c.fallback(now, c.lastErr, labels)
	}

	c.metrics.IncCounter(metrics.RateCacheMiss, labels)

	snap, err := c.fetch(ctx, labels)
	if err != nil {
		c.lastErr = err
		c.attempts.Add(1)
		return c.fallback(c.now(), err, labels)
	}

	c.lastErr = nil
	c.current.Store(snap)
	c.attempts.Add(1)

	c.logger.Debug("exchange rate refreshed", map[string]any{
		"rate":        snap.Rate,
		"valid_until": snap.ValidUntil,
		"source":      c.oracle.Name(),
	})
	return *snap, nil
}

// fetch performs one oracle call. It is detached from the caller's
// cancellation because waiters share its result; the fetch timeout still
// applies.
func (c *Cache) fetch(ctx context.Context, labels map[string]string) (*types.ExchangeRateSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	price, err := c.oracle.PriceGBP(ctx)
	if err == nil {
		err = clients.ValidatePrice(price)
	}
	if err != nil {
		c.metrics.IncCounter(metrics.OracleFetchError, labels)
		return nil, err
	}
	c.metrics.IncCounter(metrics.OracleFetch, labels)

	fetchedAt := c.now()
	return &types.ExchangeRateSnapshot{
		Rate:       1 / price,
		FetchedAt:  fetchedAt,
		ValidUntil: fetchedAt.Add(c.ttl),
	}, nil
}

func (c *Cache) fallback(now time.Time, cause error, labels map[string]string) (types.ExchangeRateSnapshot, error) {
	prev := c.current.Load()
	if prev != nil && prev.Age(now) < c.staleLimit {
		c.metrics.IncCounter(metrics.RateStaleFallback, labels)
		c.logger.Warn("price oracle unavailable, serving stale exchange rate", map[string]any{
			"rate":       prev.Rate,
			"fetched_at": prev.FetchedAt,
			"age":        prev.Age(now).String(),
			"error":      cause,
		})

		out := *prev
		out.Stale = true
		return out, nil
	}

	c.logger.Error("exchange rate unavailable", map[string]any{"error": cause})

	if types.IsCode(cause, types.ErrRateInvalid) {
		return types.ExchangeRateSnapshot{}, cause
	}
	return types.ExchangeRateSnapshot{}, types.NewError(types.ErrRateUnavailable, "exchange rate unavailable and no usable cached rate", cause)
}
