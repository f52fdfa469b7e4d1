package session

import (
	"sync"
	"time"

	"marketlens/internal/provider"
)

// Session is the explicit per-user context object threaded through a
// dashboard interaction. Compare and deep-dive runs fetch quotes
// through its memoized provider, so repeated interactions with the
// same symbols and date range never refetch within the TTL. There is
// no process-wide price cache; the session carries it.
type Session struct {
	ID        string
	CreatedAt time.Time

	prices *provider.CachingProvider

	mu       sync.Mutex
	lastSeen time.Time
}

func newSession(id string, quotes provider.Provider, priceTTL time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		prices:    provider.NewCachingProvider(quotes, priceTTL),
		lastSeen:  now,
	}
}

// Prices returns the session's memoized quote provider.
func (s *Session) Prices() provider.Provider {
	return s.prices
}

// Touch marks the session as just used.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CacheSize reports how many price ranges the session has memoized.
func (s *Session) CacheSize() int {
	return s.prices.Size()
}

// PurgeCache drops expired price entries.
func (s *Session) PurgeCache() int {
	return s.prices.Purge()
}
