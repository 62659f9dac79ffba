package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with per-process fixed windows. Suitable for
// a single instance; use RedisStore when multiple instances must share one
// limiter view.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow checks the current window for key and counts the attempt when under
// the limit. The window is fixed: it opens on the first counted attempt and
// closes windowDur later, at which point the counter resets.
func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, windowDur time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil || now.Sub(w.start) >= windowDur {
		w = &window{start: now}
		s.windows[key] = w
	}

	if w.count >= limit {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(windowDur).Sub(now),
		}, nil
	}

	w.count++
	return &Result{
		Allowed:   true,
		Remaining: limit - w.count,
	}, nil
}

func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// SetNow overrides the clock for tests.
func (s *InMemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
