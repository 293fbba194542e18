// Package builtin holds the catalog of cell and record transformations.
//
// Value functions take a cell value and return the replacement; values of a
// type a function does not apply to are returned unchanged, never an error.
// Record functions take a record and return the restructured record.
package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const nbsp = "\u00a0"

// Normalize replaces NO-BREAK SPACE with a plain space and trims surrounding
// whitespace.
func Normalize(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return strings.TrimSpace(strings.ReplaceAll(s, nbsp, " "))
}

// Fold strips diacritics: "Příliš" becomes "Prilis".
func Fold(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return v
	}
	return out
}
