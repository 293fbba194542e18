package builtin

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Pair is one ordered from -> to entry of a replacement, translation or
// rename list.
type Pair struct {
	From string
	To   string
}

// Lower lower-cases text.
func Lower(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return cases.Lower(language.Und).String(s)
}

// Upper upper-cases text.
func Upper(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return cases.Upper(language.Und).String(s)
}

// Capitalize upper-cases the first character and lower-cases the rest:
// "abc DEF" becomes "Abc def".
func Capitalize(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToTitle(r)) + cases.Lower(language.Und).String(s[n:])
}

// Title upper-cases the first letter of every word and lower-cases the rest.
func Title(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return cases.Title(language.Und).String(s)
}

// LStrip removes leading characters in cutset, or leading whitespace when
// cutset is empty.
func LStrip(v any, cutset string) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if cutset == "" {
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	}
	return strings.TrimLeft(s, cutset)
}

// RStrip is LStrip for the trailing end.
func RStrip(v any, cutset string) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if cutset == "" {
		return strings.TrimRightFunc(s, unicode.IsSpace)
	}
	return strings.TrimRight(s, cutset)
}

// Strip trims both ends.
func Strip(v any, cutset string) any {
	return RStrip(LStrip(v, cutset), cutset)
}

// Increment adds amount to numeric values. Integers stay integers when amount
// is whole; otherwise the result is a float64.
func Increment(v any, amount float64) any {
	whole := amount == math.Trunc(amount) && !math.IsInf(amount, 0)
	switch n := v.(type) {
	case int64:
		if whole {
			return n + int64(amount)
		}
		return float64(n) + amount
	case int:
		if whole {
			return n + int(amount)
		}
		return float64(n) + amount
	case int32:
		if whole {
			return int64(n) + int64(amount)
		}
		return float64(n) + amount
	case float64:
		return n + amount
	case float32:
		return float64(n) + amount
	default:
		return v
	}
}

// Decrement subtracts amount from numeric values.
func Decrement(v any, amount float64) any {
	return Increment(v, -amount)
}

// Replace applies literal substring replacements in order; each pair sees the
// output of the previous one.
func Replace(v any, pairs []Pair) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	for _, p := range pairs {
		s = strings.ReplaceAll(s, p.From, p.To)
	}
	return s
}
