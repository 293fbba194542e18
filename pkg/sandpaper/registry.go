package sandpaper

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/tbroadley/sandpaper/internal/filter"
	"github.com/tbroadley/sandpaper/internal/pattern"
	"github.com/tbroadley/sandpaper/internal/transformer"
	"github.com/tbroadley/sandpaper/internal/transformer/builtin"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// Kind tells how the pipeline applies a rule.
type Kind uint8

const (
	// ValueKind rules compute one cell at a time for every column their
	// filters allow.
	ValueKind Kind = iota + 1
	// RecordKind rules replace the whole record.
	RecordKind
)

func (k Kind) String() string {
	switch k {
	case ValueKind:
		return "value"
	case RecordKind:
		return "record"
	default:
		return "unknown"
	}
}

// ValueFunc computes the new value of column. rec must not be modified.
type ValueFunc = transformer.ValueFunc

// RecordFunc returns the replacement record. It receives a private copy.
type RecordFunc = transformer.RecordFunc

// Predicate decides whether a value rule visits column of rec.
type Predicate func(rec *records.Record, column string) (bool, error)

// Pair is one ordered from -> to entry of a mapping argument.
type Pair = builtin.Pair

// Pairs builds a mapping argument from alternating from, to strings. A
// trailing odd element is ignored.
func Pairs(kv ...string) []Pair {
	out := make([]Pair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Pair{From: kv[i], To: kv[i+1]})
	}
	return out
}

type filterSpec struct {
	filter.Spec
	desc string
}

// FilterOption restricts the cells a value rule visits.
type FilterOption func(*filterSpec)

// ColumnFilter visits only columns whose name matches pattern at its start.
func ColumnFilter(pattern string) FilterOption {
	return func(f *filterSpec) { f.Column = pattern }
}

// ValueFilter visits only cells whose string form matches pattern at its
// start.
func ValueFilter(pattern string) FilterOption {
	return func(f *filterSpec) { f.Value = pattern }
}

// CallableFilter visits only cells for which fn returns true. A nil fn
// imposes no restriction.
func CallableFilter(fn func(rec *records.Record, column string) bool) FilterOption {
	if fn == nil {
		return func(*filterSpec) {}
	}
	return CallableFilterAs(funcName(fn), func(rec *records.Record, column string) (bool, error) {
		return fn(rec, column), nil
	})
}

// CallableFilterAs is CallableFilter for a predicate that may fail. desc
// identifies the predicate in the rule signature.
//
// The predicate receives only the record and column. The keyword arguments
// of the rule it filters, such as an Increment amount, are not passed to it.
// They are not TranslateText named fields either; templates see only the
// pattern's captures.
func CallableFilterAs(desc string, fn Predicate) FilterOption {
	return func(f *filterSpec) {
		if fn == nil {
			f.Predicate, f.desc = nil, ""
			return
		}
		f.Predicate = filter.Predicate(fn)
		f.desc = desc
	}
}

type rule struct {
	name   string
	kind   Kind
	args   []any
	filter filterSpec
	value  ValueFunc
	record RecordFunc
}

// signature renders name(args, kwargs) for identity hashing.
func (r rule) signature() string {
	var b strings.Builder
	b.WriteString(r.name)
	b.WriteString("([")
	for i, a := range r.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatArg(a))
	}
	b.WriteString("], {")
	var kw []string
	if r.filter.Column != "" {
		kw = append(kw, "column_filter: "+strconv.Quote(r.filter.Column))
	}
	if r.filter.Value != "" {
		kw = append(kw, "value_filter: "+strconv.Quote(r.filter.Value))
	}
	if r.filter.Predicate != nil {
		kw = append(kw, "callable_filter: <"+r.filter.desc+">")
	}
	b.WriteString(strings.Join(kw, ", "))
	b.WriteString("})")
	return b.String()
}

func formatArg(a any) string {
	switch v := a.(type) {
	case string:
		return strconv.Quote(v)
	case fmt.Stringer:
		return v.String()
	case []string:
		q := make([]string, len(v))
		for i, s := range v {
			q[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(q, ", ") + "]"
	case []Pair:
		kv := make([]string, len(v))
		for i, p := range v {
			kv[i] = strconv.Quote(p.From) + ": " + strconv.Quote(p.To)
		}
		return "{" + strings.Join(kv, ", ") + "}"
	default:
		return fmt.Sprintf("%#v", v)
	}
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "func"
}

// ValueRule registers a cell-level rule. args identify the rule's arguments
// in its signature; fn must already capture them. Filter patterns are
// validated now and compiled again for every Apply.
func (s *SandPaper) ValueRule(name string, fn ValueFunc, args []any, filters ...FilterOption) *SandPaper {
	if name == "" {
		return s.fail("?", fmt.Errorf("empty rule name"))
	}
	if fn == nil {
		return s.fail(name, fmt.Errorf("nil function"))
	}
	var fs filterSpec
	for _, opt := range filters {
		if opt != nil {
			opt(&fs)
		}
	}
	for _, p := range []string{fs.Column, fs.Value} {
		if p == "" {
			continue
		}
		if _, err := pattern.Compile(p); err != nil {
			return s.fail(name, err)
		}
	}
	s.rules = append(s.rules, rule{name: name, kind: ValueKind, args: args, filter: fs, value: fn})
	return s
}

// RecordRule registers a record-level rule.
func (s *SandPaper) RecordRule(name string, fn RecordFunc, args ...any) *SandPaper {
	if name == "" {
		return s.fail("?", fmt.Errorf("empty rule name"))
	}
	if fn == nil {
		return s.fail(name, fmt.Errorf("nil function"))
	}
	s.rules = append(s.rules, rule{name: name, kind: RecordKind, args: args, record: fn})
	return s
}

// chain compiles the rules into a transformer chain. Filters are compiled
// here so the rule list itself is never modified.
func (s *SandPaper) chain() (transformer.Chain, error) {
	c := make(transformer.Chain, 0, len(s.rules))
	for i, r := range s.rules {
		switch r.kind {
		case ValueKind:
			f, err := filter.Compile(r.filter.Spec)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i, r.name, err)
			}
			c = append(c, transformer.ValueStep{Name: r.name, Filter: f, Fn: r.value})
		case RecordKind:
			c = append(c, transformer.RecordStep{Name: r.name, Fn: r.record})
		}
	}
	return c, nil
}
