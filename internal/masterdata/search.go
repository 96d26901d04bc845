package masterdata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes a name for search: trimmed, lowercased, diacritics removed.
// "  Café Olé " and "cafe ole" fold to the same string. The folded form is
// stored alongside the name so lookups stay a plain index scan.
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
