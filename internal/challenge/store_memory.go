package challenge

import (
	"context"
	"sync"
)

// SessionStore holds unconsumed sessions. Consume must be atomic: of two
// concurrent calls for one session ID, exactly one receives the session and
// the other a miss.
type SessionStore interface {
	// Put saves a session, superseding any unconsumed session for the
	// same GSTIN.
	Put(ctx context.Context, s Session) error
	// Consume removes and returns the session in one step. ok is false
	// when the session is unknown, already consumed, or reaped by TTL.
	Consume(ctx context.Context, sessionID string) (Session, bool, error)
}

// InMemorySessionStore keeps sessions in process memory. Losing them on
// restart only costs users a re-challenge.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	byGSTIN  map[string]string
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]Session),
		byGSTIN:  make(map[string]string),
	}
}

func (s *InMemorySessionStore) Put(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.byGSTIN[session.GSTIN]; ok {
		delete(s.sessions, prior)
	}
	s.sessions[session.ID] = session
	s.byGSTIN[session.GSTIN] = session.ID
	return nil
}

func (s *InMemorySessionStore) Consume(_ context.Context, sessionID string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, false, nil
	}
	delete(s.sessions, sessionID)
	if s.byGSTIN[session.GSTIN] == sessionID {
		delete(s.byGSTIN, session.GSTIN)
	}
	return session, true, nil
}
