package session

import (
	"sync"
	"time"
)

// DefaultTTL is how long a session survives without being looked up.
// Sessions age out from last access so abandoned tokens do not
// accumulate.
const DefaultTTL = 60 * time.Minute

// Store maps tokens to sessions for one scope. Safe for concurrent
// Create/Lookup from overlapping in-flight requests.
type Store struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*entry
}

type entry struct {
	sess       *Session
	lastAccess time.Time
}

// NewStore creates an empty store. ttl <= 0 selects DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*entry),
	}
}

// Create issues a new session for pid at url and registers it.
func (s *Store) Create(salt, gameID string, pid int32, url string) *Session {
	sess := &Session{
		Token:     NewToken(salt, pid),
		GameID:    gameID,
		PID:       pid,
		URL:       url,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = &entry{sess: sess, lastAccess: sess.CreatedAt}
	s.mu.Unlock()

	return sess
}

// Lookup resolves a token and refreshes its last-access time.
func (s *Store) Lookup(token string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastAccess = time.Now()
	return e.sess, true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle past the TTL and returns them.
func (s *Store) Sweep(now time.Time) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*Session
	for token, e := range s.sessions {
		if now.Sub(e.lastAccess) > s.ttl {
			expired = append(expired, e.sess)
			delete(s.sessions, token)
		}
	}
	return expired
}
