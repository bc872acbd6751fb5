package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh random identifier.
func New() string {
	return uuid.NewString()
}

// Parse validates an identifier and returns it in canonical form.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return u.String(), nil
}

// Short returns the first block of an identifier, for log output.
// "6ba7b810-9dad-11d1-80b4-00c04fd430c8" -> "6ba7b810"
func Short(s string) string {
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// FormatLegID returns a leg label like "<txid>.a" (leg 0='a', 1='b', etc.).
func FormatLegID(txID string, leg int) string {
	return txID + "." + string(rune('a'+leg))
}

// ParseLegID splits "<txid>.b" into the transaction id and leg index.
func ParseLegID(legID string) (txID string, leg int, err error) {
	i := strings.LastIndexByte(legID, '.')
	if i <= 0 || i != len(legID)-2 {
		return "", 0, fmt.Errorf("invalid leg ID format: %q", legID)
	}
	c := legID[i+1]
	if c < 'a' || c > 'z' {
		return "", 0, fmt.Errorf("invalid leg suffix in %q", legID)
	}
	return legID[:i], int(c - 'a'), nil
}
