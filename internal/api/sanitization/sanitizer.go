// Package sanitization strips markup from user-supplied text before it is
// embedded in an email, written to a log line, or shown back to a user.
//
// Every function is idempotent: sanitizing an already sanitized value
// returns it unchanged, so values can safely pass through more than once.
package sanitization

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once

	whitespace = regexp.MustCompile(`\s+`)
)

func policy() *bluemonday.Policy {
	initOnce.Do(func() {
		// Strips all elements and escapes the remaining text
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeString removes all HTML from a multi-line value and trims it.
// Line breaks inside the value are kept.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return strings.TrimSpace(policy().Sanitize(input))
}

// SanitizeLine removes all HTML from a single-line value and collapses
// whitespace, including newlines, to single spaces.
func SanitizeLine(input string) string {
	safe := policy().Sanitize(input)
	safe = whitespace.ReplaceAllString(safe, " ")
	return strings.TrimSpace(safe)
}

// SanitizeEmail lower-cases, trims and strips markup from an email address
func SanitizeEmail(input string) string {
	return SanitizeLine(strings.ToLower(input))
}
