// Package sanitize strips unsafe markup from free-text form fields.
//
// The cleaner removes tag constructs, javascript: scheme injections and
// inline event-handler patterns, collapses whitespace runs and trims the
// result. It is applied independently to every free-text field before
// schema validation, so downstream consumers (email templates, logs) never
// see tag delimiters.
package sanitize

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxInputLength is the hard cap on a single field, checked before any
// transformation runs. It bounds the CPU cost of sanitizing adversarial
// input.
const MaxInputLength = 10000

// ErrInputTooLong is returned when a field exceeds MaxInputLength.
var ErrInputTooLong = errors.New("input exceeds maximum allowed length")

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	schemePattern    = regexp.MustCompile(`(?i)javascript:`)
	eventAttrPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
	anglePattern     = regexp.MustCompile(`[<>]`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// Clean sanitizes a single free-text field. Empty input is returned as-is.
// The transformation runs to a fixpoint so that removals cannot splice a new
// unsafe token together (e.g. "java<script:" must not survive as
// "javascript:"), which also makes Clean idempotent.
func Clean(input string) (string, error) {
	if input == "" {
		return "", nil
	}
	if utf8.RuneCountInString(input) > MaxInputLength {
		return "", ErrInputTooLong
	}

	out := input
	// Each pass only removes or shrinks, so this converges quickly; the cap
	// guards against pathological input.
	for i := 0; i < 10; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out, nil
}

func pass(s string) string {
	s = strings.TrimSpace(s)
	s = tagPattern.ReplaceAllString(s, "")
	s = schemePattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	s = anglePattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
