package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "nileasy/pkg/domain-errors"
)

// Record is the stored conversation position for one GSTIN.
type Record struct {
	State             State
	LastInteractionAt time.Time
}

// StateStore persists conversation positions. ok is false when the key has
// never been seen.
type StateStore interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error
}

// Machine applies events against the transition table. Conversations idle
// past the timeout are reset to entry before the incoming event is applied,
// so a stale session can never absorb a mid-flow event.
type Machine struct {
	store       StateStore
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewMachine(store StateStore, idleTimeout time.Duration, logger *slog.Logger) *Machine {
	return &Machine{
		store:       store,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Current returns the conversation state for key, defaulting to entry.
func (m *Machine) Current(ctx context.Context, key string) (State, error) {
	rec, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodePersistence, "load workflow state: %v", err)
	}
	if !ok {
		return StateEntry, nil
	}
	if m.stale(rec) {
		return StateEntry, nil
	}
	return rec.State, nil
}

// Apply advances the conversation for key by ev. On an undeclared edge it
// returns CodeInvalidTransition and leaves the stored state unchanged. Every
// accepted transition refreshes LastInteractionAt.
func (m *Machine) Apply(ctx context.Context, key string, ev Event) (State, error) {
	rec, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodePersistence, "load workflow state: %v", err)
	}
	if !ok {
		rec = Record{State: StateEntry}
	} else if m.stale(rec) {
		m.logger.InfoContext(ctx, "workflow session expired, resetting",
			"gstin", key,
			"stale_state", rec.State,
		)
		rec = Record{State: StateEntry}
	}

	next, legal := Next(rec.State, ev)
	if !legal {
		return rec.State, dErrors.Newf(dErrors.CodeInvalidTransition,
			"event %s not allowed in state %s", ev, rec.State)
	}

	rec = Record{State: next, LastInteractionAt: m.now()}
	if err := m.store.Save(ctx, key, rec); err != nil {
		return rec.State, dErrors.Newf(dErrors.CodePersistence, "save workflow state: %v", err)
	}

	if Terminal(next) {
		// Terminal conversations are torn down; the next contact starts
		// over at entry.
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.WarnContext(ctx, "failed to tear down completed workflow",
				"gstin", key,
				"error", err,
			)
		}
	}
	return next, nil
}

func (m *Machine) stale(rec Record) bool {
	return !rec.LastInteractionAt.IsZero() && m.now().Sub(rec.LastInteractionAt) > m.idleTimeout
}

// SetNow overrides the clock for tests.
func (m *Machine) SetNow(now func() time.Time) {
	m.now = now
}

// InMemoryStateStore keeps conversation positions in process memory.
type InMemoryStateStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{records: make(map[string]Record)}
}

func (s *InMemoryStateStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *InMemoryStateStore) Save(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec
	return nil
}

func (s *InMemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
