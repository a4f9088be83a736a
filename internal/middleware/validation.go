package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Input validation errors.
var (
	ErrURLMissing = errors.New("url is required")
	ErrURLTooLong = errors.New("url exceeds maximum length")
)

// NormalizeURLInput trims surrounding whitespace from a submitted URL and
// enforces the length cap, counted in characters. A maxLength of zero or
// less disables the cap. The classifier itself accepts any string; this
// only guards the HTTP surface.
func NormalizeURLInput(raw string, maxLength int) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrURLMissing
	}
	if maxLength > 0 && utf8.RuneCountInString(trimmed) > maxLength {
		return "", ErrURLTooLong
	}
	return trimmed, nil
}
