// Package cleaning repairs numeric fields extracted from unreliable listing
// sources: loosely formatted numbers, counts buried in free-text
// descriptions, variant null tokens, and construction years stored where an
// age was expected.
package cleaning

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numericPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	// Localized listing phrasing: "2 dormitorios", "3 dorms", "1 habitacion".
	bedroomPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:dormitorios?|dorms?|habitaciones?)`)
	// "2 estacionamientos", "1 parking", "2 estac."
	parkingPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:estacionamientos?|parking|estac\.?)`)
)

// nullTokens are the string spellings of "no value" observed in the scraped
// data, compared case-insensitively after trimming.
var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"na":   {},
	"n/a":  {},
	"-":    {},
	"none": {},
}

// ExtractNumeric extracts the first decimal-or-integer substring from a
// loosely formatted value and parses it, accepting both '.' and ',' as
// decimal separators. The second return is false when no numeric substring
// exists; dirty rows legitimately carry none, so absence is a valid outcome
// rather than a zero or an error.
func ExtractNumeric(raw string) (float64, bool) {
	m := numericPattern.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsNullToken reports whether s is one of the enumerated null-like spellings
// (empty, whitespace, nan, null, na, n/a, -, none; case-insensitive).
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CanonicalizeNull maps null-like text to the single missing marker (nil).
// Non-null text passes through trimmed of nothing: the original spelling is
// preserved for downstream normalization.
func CanonicalizeNull(s *string) *string {
	if s == nil || IsNullToken(*s) {
		return nil
	}
	return s
}

// BedroomsFromDescription searches the free-text description for the
// localized "N bedrooms" phrasing and returns the first captured count.
func BedroomsFromDescription(desc string) (float64, bool) {
	return countFromDescription(desc, bedroomPattern)
}

// ParkingFromDescription searches the free-text description for the
// localized "N parking" phrasing and returns the first captured count.
func ParkingFromDescription(desc string) (float64, bool) {
	return countFromDescription(desc, parkingPattern)
}

func countFromDescription(desc string, pattern *regexp.Regexp) (float64, bool) {
	m := pattern.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

// FillFromDescription keeps current when it already holds a value and
// otherwise backfills it from the description using the given extractor.
func FillFromDescription(current *float64, desc *string, extract func(string) (float64, bool)) *float64 {
	if current != nil {
		return current
	}
	if desc == nil {
		return nil
	}
	if v, ok := extract(*desc); ok {
		return &v
	}
	return nil
}

// DefaultReferenceYear matches the production training run. The reference
// year is configurable so future retraining can move it, but reproducing the
// original model requires this value.
const DefaultReferenceYear = 2025

// RepairAge interprets values that look like construction years. Anything
// at or above 1000 is treated as a year and converted to an age relative to
// referenceYear; smaller values are already ages and pass through.
func RepairAge(v float64, referenceYear int) float64 {
	if v >= 1000 {
		return float64(referenceYear) - v
	}
	return v
}
