package profile

import "context"

// Store is the verification cache. Find returns ErrNotFound on a miss;
// Save overwrites unconditionally (last writer wins, verification is
// idempotent per GSTIN).
type Store interface {
	Find(ctx context.Context, gstin string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}

// UserStore tracks the phone-to-GSTIN link and last outcome.
type UserStore interface {
	Upsert(ctx context.Context, user User) error
	Find(ctx context.Context, gstin string) (*User, error)
}
