// Package challenge manages short-lived captcha sessions against the GST
// portal. A session binds one fetched captcha to one GSTIN and is consumed
// by exactly one verification attempt, successful or not.
package challenge

import "time"

// Session ties an issued captcha to a GSTIN. At most one unconsumed,
// unexpired session exists per GSTIN; a new issuance supersedes any prior
// one.
type Session struct {
	ID            string    `json:"id"`
	GSTIN         string    `json:"gstin"`
	ProviderToken string    `json:"provider_token"`
	ImageRef      string    `json:"image_ref"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the session TTL has elapsed at now.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Issued is the result of a successful challenge issuance.
type Issued struct {
	SessionID string
	// ChallengeRef is presented to the user (captcha image URL).
	ChallengeRef string
	ExpiresAt    time.Time
}
