package builtin

import (
	"errors"
	"fmt"

	"github.com/tbroadley/sandpaper/internal/textfmt"
	"github.com/tbroadley/sandpaper/pkg/records"
)

type additionKind uint8

const (
	addLiteral additionKind = iota
	addTemplate
	addComputed
)

// ComputeFunc derives a new column value from the record.
type ComputeFunc func(rec *records.Record) (any, error)

// Addition describes one column added by AddColumns. Construct it with
// Literal, Template or Computed.
type Addition struct {
	Column string
	kind   additionKind
	value  any
	tmpl   *textfmt.Template
	fn     ComputeFunc
	desc   string
}

// Literal adds column with a fixed value.
func Literal(column string, v any) Addition {
	return Addition{Column: column, kind: addLiteral, value: v}
}

// Template adds column formatted from the record's fields: "{first} {last}".
func Template(column, tmpl string) (Addition, error) {
	t, err := textfmt.Parse(tmpl)
	if err != nil {
		return Addition{}, fmt.Errorf("add_columns %q: %w", column, err)
	}
	return Addition{Column: column, kind: addTemplate, tmpl: t}, nil
}

// Computed adds column with the result of fn. desc identifies fn in rule
// signatures.
func Computed(column, desc string, fn ComputeFunc) (Addition, error) {
	if fn == nil {
		return Addition{}, fmt.Errorf("add_columns %q: nil function", column)
	}
	return Addition{Column: column, kind: addComputed, fn: fn, desc: desc}, nil
}

// String renders the addition for rule signatures.
func (a Addition) String() string {
	switch a.kind {
	case addTemplate:
		return fmt.Sprintf("%q: %q", a.Column, a.tmpl.String())
	case addComputed:
		return fmt.Sprintf("%q: <%s>", a.Column, a.desc)
	default:
		return fmt.Sprintf("%q: %#v", a.Column, a.value)
	}
}

func (a Addition) resolve(rec *records.Record) (any, error) {
	switch a.kind {
	case addTemplate:
		return a.tmpl.Execute(nil, func(name string) (string, bool) {
			v, ok := rec.Get(name)
			if !ok {
				return "", false
			}
			return records.String(v), true
		})
	case addComputed:
		return a.fn(rec)
	default:
		return a.value, nil
	}
}

// AddColumns appends every addition whose column is not already present.
// Additions are resolved in order, so a template may reference a column
// added earlier in the same list.
func AddColumns(rec *records.Record, additions []Addition) (*records.Record, error) {
	for _, a := range additions {
		if a.Column == "" {
			return nil, errors.New("add_columns: empty column name")
		}
		if rec.Has(a.Column) {
			continue
		}
		v, err := a.resolve(rec)
		if err != nil {
			return nil, fmt.Errorf("add_columns %q: %w", a.Column, err)
		}
		rec.Set(a.Column, v)
	}
	return rec, nil
}

// RemoveColumns deletes the named columns; absent names are ignored.
func RemoveColumns(rec *records.Record, columns []string) *records.Record {
	for _, c := range columns {
		rec.Delete(c)
	}
	return rec
}

// RenameColumns returns a new record with keys substituted per pairs and
// positions preserved. When From repeats the last pair wins.
func RenameColumns(rec *records.Record, pairs []Pair) *records.Record {
	renames := make(map[string]string, len(pairs))
	for _, p := range pairs {
		renames[p.From] = p.To
	}
	out := records.New(rec.Len())
	rec.Range(func(k string, v any) bool {
		if to, ok := renames[k]; ok {
			k = to
		}
		out.Set(k, v)
		return true
	})
	return out
}

// OrderColumns returns a new record with the columns of order that exist in
// rec first, followed by the remaining columns in original order unless
// ignoreMissing is set, in which case they are dropped.
func OrderColumns(rec *records.Record, order []string, ignoreMissing bool) *records.Record {
	out := records.New(rec.Len())
	listed := make(map[string]struct{}, len(order))
	for _, c := range order {
		listed[c] = struct{}{}
		if v, ok := rec.Get(c); ok {
			out.Set(c, v)
		}
	}
	if ignoreMissing {
		return out
	}
	rec.Range(func(k string, v any) bool {
		if _, ok := listed[k]; !ok {
			out.Set(k, v)
		}
		return true
	})
	return out
}
