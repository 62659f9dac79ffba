// Package domainerrors defines the coded error values returned by every
// domain service. Nothing in the core is fatal: failures travel back to the
// transport layer as one of these codes so it can render a uniform envelope.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeInvalidFormat: input failed static validation and never reached
	// the rate limiter or the portal provider.
	CodeInvalidFormat Code = "INVALID_FORMAT"
	// CodeRateLimited: captcha issuance budget for this GSTIN is exhausted.
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeProviderUnavailable: transient GST portal failure or timeout.
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	// CodeChallengeRejected: the captcha answer did not match.
	CodeChallengeRejected Code = "CHALLENGE_REJECTED"
	// CodeSessionExpired: the captcha session outlived its TTL.
	CodeSessionExpired Code = "SESSION_EXPIRED"
	// CodeSessionNotFound: unknown or already-consumed session token.
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	// CodeInvalidTransition: workflow protocol violation by the caller.
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	// CodePersistence: soft storage failure on a non-critical path.
	CodePersistence Code = "PERSISTENCE"

	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

// Error is the concrete domain error. RetryAfter is only set for
// CodeRateLimited.
type Error struct {
	Code       Code
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RateLimited builds a CodeRateLimited error carrying the wait before the
// window reopens. The message reports whole minutes for user-facing copy.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("too many attempts, try again in %d minutes", RetryAfterMinutes(retryAfter)),
		RetryAfter: retryAfter,
	}
}

// RetryAfterMinutes rounds a wait down to whole minutes, with a floor of one
// so callers never tell a user to wait zero minutes.
func RetryAfterMinutes(d time.Duration) int {
	m := int(d.Minutes())
	if m < 1 {
		m = 1
	}
	return m
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the domain code from err, defaulting to CodeInternal for
// errors that did not originate in this package.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status a transport layer should emit when
// it chooses not to fold the failure into a 200 envelope.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidFormat, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeSessionNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeProviderUnavailable:
		return http.StatusBadGateway
	case CodeChallengeRejected, CodeSessionExpired:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
