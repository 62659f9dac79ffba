package gstin

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "nileasy/pkg/domain-errors"
)

// ValidatePhone checks an Indian mobile number as supplied by the messaging
// platform: ten digits, leading 6-9, optional +91/91 prefix.
func ValidatePhone(phone string) error {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+91")
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	}
	if len(p) != 10 || !govalidator.IsNumeric(p) {
		return dErrors.New(dErrors.CodeInvalidFormat, "phone must be a 10-digit Indian mobile number")
	}
	if p[0] < '6' || p[0] > '9' {
		return dErrors.New(dErrors.CodeInvalidFormat, "phone must start with 6-9")
	}
	return nil
}

// NormalizePhone strips the country prefix so storage keys are stable.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+91")
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	}
	return p
}
