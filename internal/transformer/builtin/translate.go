package builtin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tbroadley/sandpaper/internal/dateformat"
	"github.com/tbroadley/sandpaper/internal/pattern"
	"github.com/tbroadley/sandpaper/internal/textfmt"
	"github.com/tbroadley/sandpaper/pkg/records"
)

type textTranslation struct {
	pat  *pattern.Pattern
	tmpl *textfmt.Template
}

// TextTranslator rewrites values matching a pattern using a brace template
// fed with the match's captures. Build one with CompileText.
type TextTranslator struct {
	pairs []Pair
	steps []textTranslation
}

// CompileText compiles pattern -> template pairs.
func CompileText(pairs []Pair) (*TextTranslator, error) {
	if len(pairs) == 0 {
		return nil, errors.New("translate_text: no translations")
	}
	t := &TextTranslator{pairs: append([]Pair(nil), pairs...)}
	for _, p := range pairs {
		pat, err := pattern.Compile(p.From)
		if err != nil {
			return nil, fmt.Errorf("translate_text: %w", err)
		}
		tmpl, err := textfmt.Parse(p.To)
		if err != nil {
			return nil, fmt.Errorf("translate_text: %w", err)
		}
		t.steps = append(t.steps, textTranslation{pat: pat, tmpl: tmpl})
	}
	return t, nil
}

// Apply runs every translation in order against the string form of v. A
// later translation sees the output of an earlier one. When nothing matches
// v is returned unchanged.
func (t *TextTranslator) Apply(v any) (any, error) {
	out := v
	s := records.String(v)
	for _, st := range t.steps {
		m := st.pat.Match(s)
		if m == nil {
			continue
		}
		r, err := st.tmpl.Execute(m.Groups, textfmt.MapLookup(m.Named))
		if err != nil {
			return nil, fmt.Errorf("translate_text %q: %w", st.pat, err)
		}
		s, out = r, r
	}
	return out, nil
}

// String renders the pairs for rule signatures.
func (t *TextTranslator) String() string { return pairsString(t.pairs) }

type dateTranslation struct {
	from, to *dateformat.Layout
}

// DateTranslator re-emits dates in another format. Build one with
// CompileDate.
type DateTranslator struct {
	pairs []Pair
	steps []dateTranslation
}

// CompileDate compiles source-format -> target-format pairs.
func CompileDate(pairs []Pair) (*DateTranslator, error) {
	if len(pairs) == 0 {
		return nil, errors.New("translate_date: no translations")
	}
	d := &DateTranslator{pairs: append([]Pair(nil), pairs...)}
	for _, p := range pairs {
		from, err := dateformat.Compile(p.From)
		if err != nil {
			return nil, fmt.Errorf("translate_date: %w", err)
		}
		to, err := dateformat.Compile(p.To)
		if err != nil {
			return nil, fmt.Errorf("translate_date: %w", err)
		}
		d.steps = append(d.steps, dateTranslation{from: from, to: to})
	}
	return d, nil
}

// Apply formats time.Time values with the first pair's target format. Other
// values are parsed with each source format in order and the first success
// is re-emitted in its target format; if none parses, v is returned as is.
func (d *DateTranslator) Apply(v any) any {
	if t, ok := v.(time.Time); ok {
		return d.steps[0].to.Format(t)
	}
	s := records.String(v)
	for _, st := range d.steps {
		t, err := st.from.Parse(s)
		if err != nil {
			continue
		}
		return st.to.Format(t)
	}
	return v
}

// String renders the pairs for rule signatures.
func (d *DateTranslator) String() string { return pairsString(d.pairs) }

func pairsString(pairs []Pair) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %q", p.From, p.To)
	}
	b.WriteByte('}')
	return b.String()
}
