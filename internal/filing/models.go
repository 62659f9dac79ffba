package filing

import (
	"errors"
	"time"

	"nileasy/internal/gstin"
)

// ErrNotFound is returned by stores when no record exists for a key.
var ErrNotFound = errors.New("not found")

// Outcome is the lifecycle status of one submission.
type Outcome string

const (
	OutcomeInitiated Outcome = "initiated"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// ParseOutcome validates a reported outcome.
func ParseOutcome(s string) (Outcome, bool) {
	switch o := Outcome(s); o {
	case OutcomeInitiated, OutcomeCompleted, OutcomeFailed:
		return o, true
	default:
		return "", false
	}
}

// SubmissionRecord is the audit trail for one (GSTIN, type, period) filing.
// It is created at encoding time and finalized exactly once by the
// completion tracker; a repeated report updates the outcome in place.
type SubmissionRecord struct {
	GSTIN       string           `json:"gstin"`
	Type        gstin.ReturnType `json:"type"`
	Period      string           `json:"period"`
	Status      Outcome          `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}
