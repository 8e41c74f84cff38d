// Package textnorm canonicalizes free-text place names so that
// user-supplied and dataset-supplied labels compare equal despite accents,
// casing, or stray whitespace.
//
// The same normalization must be applied on every side of a region-name
// comparison: request payloads, resolver output, neighborhood metric keys,
// and the region allow-list mapping. Normalizing only one side silently
// turns valid regions into "unknown region" failures.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes accented characters into base letters plus
// combining marks, drops the marks, and recomposes.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns s with accents stripped, lower-cased, and surrounding
// whitespace trimmed. "Ñuñoa" and " NUNOA " both normalize to "nunoa".
func Normalize(s string) string {
	stripped, _, err := transform.String(stripAccents, s)
	if err != nil {
		// Malformed input falls back to the raw string; lower/trim still
		// apply so comparisons stay case- and space-insensitive.
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}
