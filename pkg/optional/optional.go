// Package optional models "pick the first usable value of several
// possibly-absent fields" as an explicit ordered fallback chain, evaluated
// once at the point of use. Registry profiles are full of optional fields
// (contact email, display name, fiscal data) and ad-hoc re-derivation at
// each call site is how they drift apart.
package optional

import "strings"

// placeholders are values that count as absent even though they are
// non-empty strings. The registry historically stored these literals for
// "no answer".
var placeholders = map[string]struct{}{
	"":               {},
	"ninguna":        {},
	"ninguno":        {},
	"-":              {},
	"no corresponde": {},
	"n/a":            {},
	"na":             {},
}

// Present reports whether v holds a real value: non-empty after trimming
// and not one of the known placeholder literals (case-insensitive).
func Present(v string) bool {
	_, placeholder := placeholders[strings.ToLower(strings.TrimSpace(v))]
	return !placeholder
}

// First returns the first present value in the chain, or "" when every
// candidate is absent.
func First(values ...string) string {
	for _, v := range values {
		if Present(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// FirstOr returns the first present value in the chain, or fallback.
func FirstOr(fallback string, values ...string) string {
	if v := First(values...); v != "" {
		return v
	}
	return fallback
}
