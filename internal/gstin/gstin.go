// Package gstin validates the identifiers that gate every other operation:
// the 15-character GSTIN, the MMYYYY filing period, and the return type
// short codes. Validation is pure and runs before any rate limiting or
// portal call so malformed input never burns attempt budget.
package gstin

import (
	"regexp"
	"strconv"
	"strings"

	dErrors "nileasy/pkg/domain-errors"
)

// GSTIN positional grammar: 2-digit state code, 5 PAN letters, 4 PAN digits,
// 1 PAN letter, entity code, the literal Z, check character.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

const Length = 15

// Normalize trims and upper-cases raw user input before validation.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Validate checks a normalized GSTIN against the positional grammar.
func Validate(gstin string) error {
	if len(gstin) != Length {
		return dErrors.Newf(dErrors.CodeInvalidFormat, "GSTIN must be %d characters", Length)
	}
	if !gstinPattern.MatchString(gstin) {
		return dErrors.New(dErrors.CodeInvalidFormat, "GSTIN does not match the required format")
	}
	return nil
}

// StateCode returns the 2-digit state prefix of a valid GSTIN.
func StateCode(gstin string) string {
	if len(gstin) < 2 {
		return ""
	}
	return gstin[:2]
}

// ReturnType is the closed set of NIL-filable return short codes.
type ReturnType string

const (
	// ReturnGSTR3B is the monthly summary return.
	ReturnGSTR3B ReturnType = "3B"
	// ReturnGSTR1 is the outward supplies return.
	ReturnGSTR1 ReturnType = "R1"
)

// ParseReturnType validates a return type short code.
func ParseReturnType(s string) (ReturnType, error) {
	switch t := ReturnType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ReturnGSTR3B, ReturnGSTR1:
		return t, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidFormat, "unsupported return type %q", s)
	}
}

// String returns the short code.
func (t ReturnType) String() string {
	return string(t)
}

// ValidatePeriod checks a 6-character MMYYYY filing period. Years before the
// GST regime (2017) or implausibly far out are rejected.
func ValidatePeriod(period string) error {
	if len(period) != 6 {
		return dErrors.New(dErrors.CodeInvalidFormat, "period must be MMYYYY")
	}
	month, err := strconv.Atoi(period[:2])
	if err != nil || month < 1 || month > 12 {
		return dErrors.New(dErrors.CodeInvalidFormat, "period month must be 01-12")
	}
	year, err := strconv.Atoi(period[2:])
	if err != nil || year < 2017 || year > 2099 {
		return dErrors.New(dErrors.CodeInvalidFormat, "period year out of range")
	}
	return nil
}

var monthLabels = map[string]string{
	"01": "Jan", "02": "Feb", "03": "Mar", "04": "Apr",
	"05": "May", "06": "Jun", "07": "Jul", "08": "Aug",
	"09": "Sep", "10": "Oct", "11": "Nov", "12": "Dec",
}

// PeriodLabel renders a valid period for user-facing copy, e.g. "Jan 2026".
// Invalid input is returned untouched.
func PeriodLabel(period string) string {
	if len(period) != 6 {
		return period
	}
	label, ok := monthLabels[period[:2]]
	if !ok {
		return period
	}
	return label + " " + period[2:]
}
