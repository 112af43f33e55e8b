package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips all HTML from stored free text. Case descriptions,
// assignment messages and rejection reasons are redisplayed to other parties,
// so nothing markup-shaped survives storage.
var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips HTML and surrounding whitespace from free-text input.
func SanitizeText(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// SanitizeTextPtr sanitizes an optional free-text input, returning nil when
// nothing remains.
func SanitizeTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	clean := SanitizeText(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
