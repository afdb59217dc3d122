package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var referenceRegex = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)

// NormalizeReference normalizes ticket references to uppercase XXX-111 format
// Accepts formats like:
// - "ACME-123", "acme-123" -> "ACME-123"
// - "ops-7" -> "OPS-7"
// Returns error if format is invalid
func NormalizeReference(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}

	// Remove whitespace and convert to uppercase
	ref = strings.ToUpper(strings.TrimSpace(ref))

	if !referenceRegex.MatchString(ref) {
		return "", fmt.Errorf("invalid reference format. Use: XXX-111 (letters-numbers)")
	}
	return ref, nil
}

// IsValidReference checks if a string matches the ticket reference format
func IsValidReference(ref string) bool {
	if ref == "" {
		return true // Empty is valid (optional field)
	}
	return referenceRegex.MatchString(strings.ToUpper(strings.TrimSpace(ref)))
}
