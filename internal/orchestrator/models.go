// Package orchestrator composes the verification core: validator, cache,
// rate limiter, challenge sessions, encoder and tracker, exposed as the four
// operations the transport layer maps to endpoints.
package orchestrator

import (
	"time"

	"nileasy/internal/profile"
)

// ValidationOutcome is the result of a successful identity validation:
// either the GSTIN was previously verified (Cached) or a captcha must be
// solved (NeedsChallenge). The two arms are distinct types so callers handle
// both paths explicitly.
type ValidationOutcome interface {
	validationOutcome()
}

// Cached means the GSTIN skips the challenge entirely.
type Cached struct {
	Profile *profile.Profile
}

// NeedsChallenge carries the freshly issued captcha session.
type NeedsChallenge struct {
	SessionID    string
	ChallengeRef string
	ExpiresAt    time.Time
}

func (Cached) validationOutcome()         {}
func (NeedsChallenge) validationOutcome() {}
