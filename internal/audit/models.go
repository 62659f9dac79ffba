// Package audit captures an append-only trail of verification and filing
// activity for compliance review.
package audit

import "time"

// Action names an auditable event.
type Action string

const (
	ActionChallengeIssued   Action = "challenge.issued"
	ActionChallengeVerified Action = "challenge.verified"
	ActionChallengeRejected Action = "challenge.rejected"
	ActionRateLimited       Action = "ratelimit.denied"
	ActionSubmissionEncoded Action = "submission.encoded"
	ActionFilingTracked     Action = "filing.tracked"
)

// Event is one audit entry. GSTIN is the correlation key; Detail carries
// free-form context (outcome, period, error class).
type Event struct {
	GSTIN     string    `json:"gstin"`
	Action    Action    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
