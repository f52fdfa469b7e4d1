package provider

import (
	"context"
	"sync"
	"time"

	"marketlens/pkg/model"
)

// rangeKey identifies one fetch: same symbol and same date range hit
// the same entry. Dates are keyed at day granularity.
type rangeKey struct {
	symbol string
	from   string
	to     string
}

type cacheEntry struct {
	candles   []model.Candle
	fetchedAt time.Time
}

// CachingProvider wraps a Provider with an in-memory memo keyed by
// (symbol, date range). Repeated dashboard interactions with the same
// selection reuse the entry instead of hitting the network; entries
// expire after the TTL so intraday updates eventually show up.
type CachingProvider struct {
	inner Provider
	ttl   time.Duration
	mu    sync.Mutex
	cache map[rangeKey]cacheEntry
}

// NewCachingProvider creates a caching wrapper around inner. Entries
// are valid for ttl; a non-positive ttl disables expiry.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		inner: inner,
		ttl:   ttl,
		cache: make(map[rangeKey]cacheEntry),
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

// GetDailyCandles returns the memoized series for (symbol, from, to)
// or fetches and stores it
func (p *CachingProvider) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	key := rangeKey{
		symbol: symbol,
		from:   from.Format("2006-01-02"),
		to:     to.Format("2006-01-02"),
	}

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok && p.fresh(entry) {
		p.mu.Unlock()
		return entry.candles, nil
	}
	p.mu.Unlock()

	candles, err := p.inner.GetDailyCandles(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = cacheEntry{candles: candles, fetchedAt: time.Now()}
	p.mu.Unlock()

	return candles, nil
}

// Purge drops expired entries and returns how many were removed.
func (p *CachingProvider) Purge() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for key, entry := range p.cache {
		if !p.fresh(entry) {
			delete(p.cache, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of cached ranges.
func (p *CachingProvider) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

func (p *CachingProvider) fresh(entry cacheEntry) bool {
	if p.ttl <= 0 {
		return true
	}
	return time.Since(entry.fetchedAt) < p.ttl
}
