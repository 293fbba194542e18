// Package textfmt implements brace templates: "{}" takes the next
// positional argument, "{0}" a positional argument by index, "{name}" a named
// argument, and "{{" / "}}" are literal braces.
package textfmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingField is returned by Execute when a placeholder has no value.
	ErrMissingField = errors.New("textfmt: missing field")
	// ErrSyntax is returned by Parse for malformed templates.
	ErrSyntax = errors.New("textfmt: syntax error")
)

type partKind int

const (
	partLiteral partKind = iota
	partPositional
	partNamed
)

type part struct {
	kind  partKind
	text  string
	index int
}

// Template is a parsed brace template.
type Template struct {
	src   string
	parts []part
}

// Parse parses src. Mixing "{}" with "{N}" is a syntax error.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	var lit strings.Builder
	auto, manual := 0, false
	usedAuto := false

	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{kind: partLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d in %q", ErrSyntax, i, src)
			}
			field := src[i+1 : i+1+end]
			if strings.ContainsRune(field, '{') {
				return nil, fmt.Errorf("%w: nested '{' at offset %d in %q", ErrSyntax, i, src)
			}
			flush()
			switch {
			case field == "":
				if manual {
					return nil, fmt.Errorf("%w: cannot mix automatic and manual numbering in %q", ErrSyntax, src)
				}
				usedAuto = true
				t.parts = append(t.parts, part{kind: partPositional, index: auto})
				auto++
			case isDigits(field):
				if usedAuto {
					return nil, fmt.Errorf("%w: cannot mix automatic and manual numbering in %q", ErrSyntax, src)
				}
				manual = true
				n, err := strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("%w: field %q: %v", ErrSyntax, field, err)
				}
				t.parts = append(t.parts, part{kind: partPositional, index: n})
			default:
				t.parts = append(t.parts, part{kind: partNamed, text: field})
			}
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d in %q", ErrSyntax, i, src)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Lookup resolves a named field.
type Lookup func(name string) (string, bool)

// MapLookup adapts a map to a Lookup.
func MapLookup(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Execute renders the template. lookup may be nil when the template has no
// named fields.
func (t *Template) Execute(args []string, lookup Lookup) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		switch p.kind {
		case partLiteral:
			b.WriteString(p.text)
		case partPositional:
			if p.index >= len(args) {
				return "", fmt.Errorf("%w: index %d out of range in %q", ErrMissingField, p.index, t.src)
			}
			b.WriteString(args[p.index])
		case partNamed:
			if lookup == nil {
				return "", fmt.Errorf("%w: %q in %q", ErrMissingField, p.text, t.src)
			}
			v, ok := lookup(p.text)
			if !ok {
				return "", fmt.Errorf("%w: %q in %q", ErrMissingField, p.text, t.src)
			}
			b.WriteString(v)
		}
	}
	return b.String(), nil
}

// Format parses src and executes it.
func Format(src string, args []string, named map[string]string) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Execute(args, MapLookup(named))
}
