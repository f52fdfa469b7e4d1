package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultBackoff = 100 * time.Millisecond

// Limiter wraps rate.Limiter with 429-aware exponential backoff.
// Each upstream data source (quote API, listings host) gets its own.
type Limiter struct {
	limiter *rate.Limiter
	name    string
	mu      sync.Mutex
	backoff time.Duration
	maxWait time.Duration
}

// NewLimiter creates a new rate limiter.
// perMinute specifies the number of requests allowed per minute.
func NewLimiter(name string, perMinute int) *Limiter {
	rps := float64(perMinute) / 60.0
	// Allow burst of up to 5 requests or 1/10th of per-minute limit
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
		backoff: defaultBackoff,
		maxWait: 2 * time.Minute,
	}
}

// Wait blocks until a token is available or the context is cancelled.
// While the upstream is rate limiting us, it additionally holds off for
// the current backoff duration before taking a token.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := l.backoff
	l.mu.Unlock()

	if pause > defaultBackoff {
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited should be called when a 429 response is received.
// It doubles the backoff up to the cap.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.backoff *= 2
	if l.backoff > l.maxWait {
		l.backoff = l.maxWait
	}
}

// ResetBackoff resets the backoff duration after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = defaultBackoff
}

// Backoff returns the current backoff duration
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// MultiLimiter manages one limiter per named upstream so that quote
// providers and listings hosts throttle independently.
type MultiLimiter struct {
	limiters map[string]*Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*Limiter),
	}
}

// Add adds a new limiter
func (m *MultiLimiter) Add(name string, perMinute int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = NewLimiter(name, perMinute)
}

// Get returns a limiter by name
func (m *MultiLimiter) Get(name string) *Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limiters[name]
}

// Wait waits on the specified limiter
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	limiter := m.Get(name)
	if limiter == nil {
		return nil // No limiter, proceed immediately
	}
	return limiter.Wait(ctx)
}
