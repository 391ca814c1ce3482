// Package domain provides the identifiers and calendar primitives shared by the
// credential, registry and eligibility modules.
package domain

import (
	"strings"

	dErrors "haulgate/pkg/domain-errors"
)

// maxDOTDigits bounds USDOT numbers; the regulator issues at most eight digits.
const maxDOTDigits = 8

// DOTNumber is a validated USDOT carrier identifier.
type DOTNumber string

// ParseDOTNumber validates a DOT number at a trust boundary (CLI args, HTTP
// bodies). Surrounding whitespace and a leading "USDOT"/"DOT" label are
// tolerated; anything else must be digits.
func ParseDOTNumber(s string) (DOTNumber, error) {
	v := strings.TrimSpace(s)
	upper := strings.ToUpper(v)
	for _, prefix := range []string{"USDOT", "DOT"} {
		if strings.HasPrefix(upper, prefix) {
			v = strings.TrimSpace(v[len(prefix):])
			v = strings.TrimPrefix(v, "#")
			break
		}
	}
	if v == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DOT number cannot be empty")
	}
	if len(v) > maxDOTDigits {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DOT number has too many digits")
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "DOT number must contain only digits")
		}
	}
	return DOTNumber(v), nil
}

func (d DOTNumber) String() string { return string(d) }

// IsNil reports whether the DOT number is unset.
func (d DOTNumber) IsNil() bool { return d == "" }
