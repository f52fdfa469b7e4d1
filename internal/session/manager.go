package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketlens/internal/provider"
)

// Manager issues sessions and the signed cookie tokens identifying
// them. Sessions idle past the TTL are dropped by Prune, which the
// scheduler runs periodically; their tokens then resolve to a miss and
// the handler issues a fresh session.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	quotes   provider.Provider
	priceTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. quotes is the shared upstream
// provider each session wraps with its own memo; priceTTL bounds the
// per-session price entries; ttl bounds token validity and idle time.
func NewManager(secret []byte, ttl time.Duration, quotes provider.Provider, priceTTL time.Duration) *Manager {
	return &Manager{
		secret:   secret,
		ttl:      ttl,
		quotes:   quotes,
		priceTTL: priceTTL,
		sessions: make(map[string]*Session),
	}
}

// Issue creates a session and returns it with its signed cookie token.
func (m *Manager) Issue() (*Session, string, error) {
	s := newSession(uuid.NewString(), m.quotes, m.priceTTL)
	token, err := signToken(m.secret, s.ID, m.ttl)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s, token, nil
}

// Resolve verifies a cookie token and returns the live session it
// names. Expired tokens and pruned sessions both miss.
func (m *Manager) Resolve(token string) (*Session, bool) {
	id, err := verifyToken(m.secret, token)
	if err != nil {
		return nil, false
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.Touch()
	return s, true
}

// Prune drops sessions idle past the TTL and returns how many went.
// Surviving sessions shed their expired price entries.
func (m *Manager) Prune() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
			continue
		}
		s.PurgeCache()
	}
	if removed > 0 {
		log.Printf("[SESSION] pruned %d idle session(s), %d live", removed, len(m.sessions))
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
