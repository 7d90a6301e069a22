// Package normalize produces the comparison forms used everywhere else in
// roster: the normalized name (lowercase, ASCII-folded, alphanumeric and
// spaces only) and the prefix key (normalized name with spaces removed).
//
// The store persists both forms alongside every record, and retrieval
// compares them byte-for-byte, so every write and every query must go
// through this package — any drift silently degrades recall.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents decomposes to NFD, drops combining marks, and recomposes,
// turning "Élodie" into "Elodie" before the alphanumeric strip.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name normalizes a raw person name for matching: lowercase, accents folded
// to ASCII, every character outside [a-z0-9 ] deleted, whitespace runs
// collapsed to single spaces, trimmed. Total over all inputs (empty input
// normalizes to the empty string) and idempotent.
func Name(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(foldAccents, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Key returns the prefix-lookup key for s: Name(s) with spaces removed.
func Key(s string) string {
	return strings.ReplaceAll(Name(s), " ", "")
}

// Tokens splits a normalized name into its space-separated tokens.
// Empty input yields no tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
