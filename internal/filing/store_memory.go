package filing

import (
	"context"
	"sync"

	"nileasy/internal/gstin"
)

// SubmissionStore persists filing records, idempotent on
// (gstin, type, period).
type SubmissionStore interface {
	Upsert(ctx context.Context, rec SubmissionRecord) error
	Find(ctx context.Context, gstinKey string, t gstin.ReturnType, period string) (*SubmissionRecord, error)
}

type submissionKey struct {
	gstin  string
	t      gstin.ReturnType
	period string
}

// InMemorySubmissionStore keeps filing records in process memory.
type InMemorySubmissionStore struct {
	mu      sync.RWMutex
	records map[submissionKey]SubmissionRecord
}

func NewInMemorySubmissionStore() *InMemorySubmissionStore {
	return &InMemorySubmissionStore{records: make(map[submissionKey]SubmissionRecord)}
}

func (s *InMemorySubmissionStore) Upsert(_ context.Context, rec SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := submissionKey{gstin: rec.GSTIN, t: rec.Type, period: rec.Period}
	if existing, ok := s.records[key]; ok {
		// Keep the original creation time; only outcome and completion
		// move.
		rec.CreatedAt = existing.CreatedAt
	}
	s.records[key] = rec
	return nil
}

func (s *InMemorySubmissionStore) Find(_ context.Context, gstinKey string, t gstin.ReturnType, period string) (*SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[submissionKey{gstin: gstinKey, t: t, period: period}]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}
