package names

import (
	"slices"
	"strings"
	"unicode/utf8"

	"openaleph.org/search/ftm"
)

const (
	// minKeyLength drops fingerprint keys too short to carry signal.
	minKeyLength = 5
	// minPartLength drops single-character name parts.
	minPartLength = 2
	// minPhoneticLength is the shortest token worth encoding.
	minPhoneticLength = 3
	// minCodeLength drops phonetic codes too generic to discriminate.
	minCodeLength = 3
)

// Keys fingerprints names for exact-match joins: tokens are ASCII-folded,
// sorted, and concatenated without separators, so "Doe, Jane" and
// "Jane Doe" collapse to the same key.
func Keys(schema *ftm.Schema, names []string) []string {
	keys := make(map[string]bool)

	for _, name := range names {
		tokens := Tokenize(schema, name)

		folded := make([]string, 0, len(tokens))

		for _, token := range tokens {
			if f := Fold(token); f != "" {
				folded = append(folded, f)
			}
		}

		if len(folded) == 0 {
			continue
		}

		slices.Sort(folded)

		key := strings.Join(folded, "")
		if utf8.RuneCountInString(key) >= minKeyLength {
			keys[key] = true
		}
	}

	return sortedSet(keys)
}

// Parts collects the individual name tokens, including ASCII-folded
// variants where folding changes the token.
func Parts(schema *ftm.Schema, names []string) []string {
	parts := make(map[string]bool)

	for _, name := range names {
		for _, token := range Tokenize(schema, name) {
			if utf8.RuneCountInString(token) < minPartLength {
				continue
			}

			parts[token] = true

			folded := Fold(token)
			if folded != token && utf8.RuneCountInString(folded) >= minPartLength {
				parts[folded] = true
			}
		}
	}

	return sortedSet(parts)
}

// Phonetics encodes name tokens with Double Metaphone. Only tokens that
// fold down to at least three ASCII letters are encoded, and codes too
// short to discriminate are dropped.
func Phonetics(schema *ftm.Schema, names []string) []string {
	codes := make(map[string]bool)

	for _, name := range names {
		for _, token := range Tokenize(schema, name) {
			folded := Fold(token)
			if utf8.RuneCountInString(folded) < minPhoneticLength {
				continue
			}

			if !isModernLatin(folded) {
				continue
			}

			if code := DoubleMetaphone(folded); len(code) >= minCodeLength {
				codes[code] = true
			}
		}
	}

	return sortedSet(codes)
}

// isModernLatin reports whether a folded token consists entirely of
// ASCII letters, the alphabet the phonetic encoder understands.
func isModernLatin(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}

	return true
}
