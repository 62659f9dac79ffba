package profile

import (
	"context"
	"sync"
	"time"
)

// In-memory stores keep the initial implementation lightweight and testable.
// They intentionally favor clarity over performance.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]Profile)}
}

func (s *InMemoryStore) Find(_ context.Context, gstin string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[gstin]; ok {
		return &p, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Save(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.GSTIN] = *p
	return nil
}

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]User)}
}

// Upsert merges into any existing record: an empty phone on the update does
// not clobber a phone learned earlier in the flow.
func (s *InMemoryUserStore) Upsert(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.GSTIN]
	if ok && user.Phone == "" {
		user.Phone = existing.Phone
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}
	s.users[user.GSTIN] = user
	return nil
}

func (s *InMemoryUserStore) Find(_ context.Context, gstin string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[gstin]; ok {
		return &u, nil
	}
	return nil, ErrNotFound
}
