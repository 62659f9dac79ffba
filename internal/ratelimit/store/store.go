// Package store provides the counters behind the captcha rate limiter.
// Implementations must make check-then-increment atomic per key: two
// near-simultaneous attempts for one GSTIN may never both slip under the
// limit.
package store

import (
	"context"
	"time"
)

// Result reports one fixed-window check outcome.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store is a fixed-window counter keyed by GSTIN. Allow atomically checks
// the window and, when under the limit, counts the attempt. A denied call
// does not increment.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}
