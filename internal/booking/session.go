package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"deskbook/internal/metrics"
)

// Session holds the selection of one browser.
type Session struct {
	ID        string
	StartedAt time.Time
	UpdatedAt time.Time

	mu        sync.Mutex
	selection Selection
	now       func() time.Time
}

// NewSession creates a new idle session.
func NewSession(id string) *Session {
	return newSession(id, time.Now)
}

func newSession(id string, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:        id,
		StartedAt: t,
		UpdatedAt: t,
		selection: Selection{Modal: ModalNone},
		now:       now,
	}
}

// Selection returns current state.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Dispatch runs Reduce against the session's selection and stores the result.
func (s *Session) Dispatch(a Action) (Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.selection.modal()
	next, eff, err := Reduce(s.selection, a)
	s.selection = next
	s.UpdatedAt = s.now()

	if to := next.modal(); to != prev {
		metrics.IncModalTransition(string(prev), string(to))
	}
	return eff, err
}

// IsExpired checks if session has expired.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.UpdatedAt) > timeout
}

// SessionStore manages browser sessions keyed by an opaque id.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new session store.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Get returns a live session or nil.
func (ss *SessionStore) Get(id string) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	session, ok := ss.sessions[id]
	if !ok || session.IsExpired(ss.timeout) {
		return nil
	}
	return session
}

// GetOrCreate returns the live session for id, or a new one under a fresh id when id is
// empty, unknown or expired.
func (ss *SessionStore) GetOrCreate(id string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, ok := ss.sessions[id]; ok {
		if !session.IsExpired(ss.timeout) {
			return session
		}
		delete(ss.sessions, id)
	}

	session := newSession(uuid.NewString(), ss.now)
	ss.sessions[session.ID] = session
	metrics.SetActiveSessions(len(ss.sessions))
	return session
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
	metrics.SetActiveSessions(len(ss.sessions))
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Cleanup removes expired sessions.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	metrics.SetActiveSessions(len(ss.sessions))
	return removed
}
