// Package profile stores business details confirmed by a successful captcha
// verification. A cached profile lets a returning GSTIN skip the captcha
// entirely, which is the main reason the portal rate budget survives real
// traffic.
package profile

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no record exists for a key.
var ErrNotFound = errors.New("not found")

// Profile is the verified business detail set for one GSTIN. Entries are
// overwritten wholesale on re-verification, never mutated in place.
type Profile struct {
	GSTIN            string    `json:"gstin"`
	TradeName        string    `json:"trade_name"`
	LegalName        string    `json:"legal_name"`
	Address          string    `json:"address"`
	RegistrationDate string    `json:"registration_date"`
	Status           string    `json:"status"`
	VerifiedAt       time.Time `json:"verified_at"`
}

// User links a GSTIN to the phone it files from, with the last known
// workflow outcome for support queries.
type User struct {
	GSTIN       string    `json:"gstin"`
	Phone       string    `json:"phone,omitempty"`
	LastOutcome string    `json:"last_outcome"`
	UpdatedAt   time.Time `json:"updated_at"`
}
