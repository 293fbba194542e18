package sandpaper

import (
	"log/slog"

	"github.com/tbroadley/sandpaper/internal/transformer/builtin"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// cell adapts a pure value transformation to a ValueFunc.
func cell(fn func(v any) any) ValueFunc {
	return func(rec *records.Record, column string) (any, error) {
		v, _ := rec.Get(column)
		return fn(v), nil
	}
}

// Lower lower-cases text cells.
func (s *SandPaper) Lower(filters ...FilterOption) *SandPaper {
	return s.ValueRule("lower", cell(builtin.Lower), nil, filters...)
}

// Upper upper-cases text cells.
func (s *SandPaper) Upper(filters ...FilterOption) *SandPaper {
	return s.ValueRule("upper", cell(builtin.Upper), nil, filters...)
}

// Capitalize upper-cases the first character of text cells and lower-cases
// the rest.
func (s *SandPaper) Capitalize(filters ...FilterOption) *SandPaper {
	return s.ValueRule("capitalize", cell(builtin.Capitalize), nil, filters...)
}

// Title title-cases text cells.
func (s *SandPaper) Title(filters ...FilterOption) *SandPaper {
	return s.ValueRule("title", cell(builtin.Title), nil, filters...)
}

// LStrip trims the characters of content (whitespace when empty) from the
// start of text cells.
func (s *SandPaper) LStrip(content string, filters ...FilterOption) *SandPaper {
	return s.ValueRule("lstrip", cell(func(v any) any { return builtin.LStrip(v, content) }), []any{content}, filters...)
}

// RStrip trims the end of text cells.
func (s *SandPaper) RStrip(content string, filters ...FilterOption) *SandPaper {
	return s.ValueRule("rstrip", cell(func(v any) any { return builtin.RStrip(v, content) }), []any{content}, filters...)
}

// Strip trims both ends of text cells.
func (s *SandPaper) Strip(content string, filters ...FilterOption) *SandPaper {
	return s.ValueRule("strip", cell(func(v any) any { return builtin.Strip(v, content) }), []any{content}, filters...)
}

// Increment adds amount to numeric cells.
func (s *SandPaper) Increment(amount float64, filters ...FilterOption) *SandPaper {
	return s.ValueRule("increment", cell(func(v any) any { return builtin.Increment(v, amount) }), []any{amount}, filters...)
}

// Decrement subtracts amount from numeric cells.
func (s *SandPaper) Decrement(amount float64, filters ...FilterOption) *SandPaper {
	return s.ValueRule("decrement", cell(func(v any) any { return builtin.Decrement(v, amount) }), []any{amount}, filters...)
}

// Replace applies literal substring replacements to text cells, in order.
func (s *SandPaper) Replace(replacements []Pair, filters ...FilterOption) *SandPaper {
	pairs := append([]Pair(nil), replacements...)
	return s.ValueRule("replace", cell(func(v any) any { return builtin.Replace(v, pairs) }), []any{pairs}, filters...)
}

// TranslateText rewrites cells matching a pattern with a brace template fed
// the match's positional and named captures. Translations apply in order and
// each sees the output of the previous one.
func (s *SandPaper) TranslateText(translations []Pair, filters ...FilterOption) *SandPaper {
	tr, err := builtin.CompileText(translations)
	if err != nil {
		return s.fail("translate_text", err)
	}
	fn := func(rec *records.Record, column string) (any, error) {
		v, _ := rec.Get(column)
		return tr.Apply(v)
	}
	return s.ValueRule("translate_text", fn, []any{append([]Pair(nil), translations...)}, filters...)
}

// TranslateDate re-emits dates in another format. Dates already typed as
// time.Time use the first translation's target format; other cells are
// parsed with each source format in order, and cells no format parses are
// left unchanged. Scope it with a column filter to avoid reading unrelated
// text as dates.
func (s *SandPaper) TranslateDate(translations []Pair, filters ...FilterOption) *SandPaper {
	tr, err := builtin.CompileDate(translations)
	if err != nil {
		return s.fail("translate_date", err)
	}
	var fs filterSpec
	for _, opt := range filters {
		if opt != nil {
			opt(&fs)
		}
	}
	if fs.Column == "" {
		slog.Warn("translate_date registered without a column filter; any text cell may be read as a date",
			"translations", formatArg(translations))
	}
	return s.ValueRule("translate_date", cell(tr.Apply), []any{append([]Pair(nil), translations...)}, filters...)
}

// Fold strips diacritics from text cells.
func (s *SandPaper) Fold(filters ...FilterOption) *SandPaper {
	return s.ValueRule("fold", cell(builtin.Fold), nil, filters...)
}

// Normalize replaces no-break spaces with plain spaces and trims text cells.
func (s *SandPaper) Normalize(filters ...FilterOption) *SandPaper {
	return s.ValueRule("normalize", cell(builtin.Normalize), nil, filters...)
}

// Coerce converts cells to typ (int, float, bool, date or string). format is
// the date format for typ date and defaults to YYYY-MM-DD. Cells that do not
// convert are left unchanged.
func (s *SandPaper) Coerce(typ, format string, filters ...FilterOption) *SandPaper {
	c, err := builtin.NewCoercer(typ, format)
	if err != nil {
		return s.fail("coerce", err)
	}
	return s.ValueRule("coerce", cell(c.Apply), []any{c}, filters...)
}

// Addition is one column added by AddColumns. Build it with Literal,
// Template, Computed or ComputedAs.
type Addition struct {
	add builtin.Addition
	err error
}

// Literal adds column with the fixed value v.
func Literal(column string, v any) Addition {
	return Addition{add: builtin.Literal(column, v)}
}

// Template adds column formatted from the record's fields, e.g.
// "{first} {last}".
func Template(column, tmpl string) Addition {
	a, err := builtin.Template(column, tmpl)
	return Addition{add: a, err: err}
}

// Computed adds column with the result of fn.
func Computed(column string, fn func(rec *records.Record) any) Addition {
	if fn == nil {
		return ComputedAs(column, "", nil)
	}
	return ComputedAs(column, funcName(fn), func(rec *records.Record) (any, error) { return fn(rec), nil })
}

// ComputedAs is Computed for a function that may fail. desc identifies fn in
// the rule signature.
func ComputedAs(column, desc string, fn func(rec *records.Record) (any, error)) Addition {
	var cf builtin.ComputeFunc
	if fn != nil {
		cf = fn
	}
	a, err := builtin.Computed(column, desc, cf)
	return Addition{add: a, err: err}
}

// String renders the addition for rule signatures.
func (a Addition) String() string { return a.add.String() }

// AddColumns adds columns that the record does not already have. Additions
// resolve in order, so a template may refer to a column added before it.
func (s *SandPaper) AddColumns(additions ...Addition) *SandPaper {
	adds := make([]builtin.Addition, len(additions))
	args := make([]any, len(additions))
	for i, a := range additions {
		if a.err != nil {
			return s.fail("add_columns", a.err)
		}
		adds[i] = a.add
		args[i] = a
	}
	return s.RecordRule("add_columns", func(rec *records.Record) (*records.Record, error) {
		return builtin.AddColumns(rec, adds)
	}, args...)
}

// RemoveColumns deletes the named columns; absent names are ignored.
func (s *SandPaper) RemoveColumns(columns ...string) *SandPaper {
	cols := append([]string(nil), columns...)
	return s.RecordRule("remove_columns", func(rec *records.Record) (*records.Record, error) {
		return builtin.RemoveColumns(rec, cols), nil
	}, cols)
}

// RenameColumns renames columns in place, keeping their positions.
func (s *SandPaper) RenameColumns(renames []Pair) *SandPaper {
	pairs := append([]Pair(nil), renames...)
	return s.RecordRule("rename_columns", func(rec *records.Record) (*records.Record, error) {
		return builtin.RenameColumns(rec, pairs), nil
	}, pairs)
}

// OrderColumns moves the listed columns to the front in the given order.
// Remaining columns follow in their original order unless ignoreMissing is
// set, in which case they are dropped.
func (s *SandPaper) OrderColumns(order []string, ignoreMissing bool) *SandPaper {
	cols := append([]string(nil), order...)
	return s.RecordRule("order_columns", func(rec *records.Record) (*records.Record, error) {
		return builtin.OrderColumns(rec, cols, ignoreMissing), nil
	}, cols, ignoreMissing)
}
