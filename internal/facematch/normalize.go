package facematch

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeHeader normalizes a column header for comparison
// (lowercase, no diacritics, dashes and underscores as single spaces).
func NormalizeHeader(header string) string {
	header = RemoveDiacritics(header)
	header = strings.ToLower(header)
	header = strings.NewReplacer("-", " ", "_", " ").Replace(header)
	return strings.Join(strings.Fields(header), " ")
}

// ParseOrdinal returns the first run of decimal digits in a label ("Day 3" -> 3).
func ParseOrdinal(label string) (int, bool) {
	start := strings.IndexFunc(label, isDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(label) && isDigit(rune(label[end])) {
		end++
	}
	n, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
