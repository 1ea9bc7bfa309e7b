// Package util provides small helpers shared across components.
package util

import (
	"regexp"

	"github.com/proleads/SupportLine/internal/models"
)

var nonDigitRegex = regexp.MustCompile(`\D`)

// NormalizeIdentity canonicalizes a customer-facing address (phone number or
// similar) to its digits-only form. All activation lookups and ticket rows
// key on the normalized form so "+1 (555) 123-4567" and "15551234567" agree.
func NormalizeIdentity(identity string) (string, error) {
	if identity == "" {
		return "", models.ErrEmptyIdentity
	}
	canonical := nonDigitRegex.ReplaceAllString(identity, "")
	if canonical == "" {
		return "", models.ErrInvalidIdentity
	}
	if len(canonical) < models.MinIdentityDigits {
		return "", models.ErrInvalidIdentity
	}
	return canonical, nil
}
