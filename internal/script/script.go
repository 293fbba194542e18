// Package script evaluates Starlark expressions against records. Rule-set
// files use it for callable filters and computed columns.
//
// An expression sees three globals:
//
//	record  the record as a dict, in column order
//	column  the column being visited ("" for computed columns)
//	value   record[column], or None
package script

import (
	"fmt"
	"log/slog"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/tbroadley/sandpaper/pkg/records"
)

// maxSteps bounds the work of one evaluation so a runaway expression fails
// instead of hanging the run.
const maxSteps = 1_000_000

// fileOptions is the dialect expressions are parsed and evaluated with.
var fileOptions = &syntax.FileOptions{}

// Expr is a parsed expression. It is safe for concurrent use.
type Expr struct {
	src  string
	name string
}

// Compile parses src as a single Starlark expression. name identifies it in
// error messages.
func Compile(name, src string) (*Expr, error) {
	if name == "" {
		name = "expr"
	}
	if _, err := fileOptions.ParseExpr(name, src, 0); err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	return &Expr{src: src, name: name}, nil
}

// String returns the expression source.
func (e *Expr) String() string { return e.src }

// Eval evaluates the expression for column of rec and returns the result as
// a Go value (nil, string, int64, float64, bool, []any or map[string]any).
func (e *Expr) Eval(rec *records.Record, column string) (any, error) {
	v, err := e.eval(rec, column)
	if err != nil {
		return nil, err
	}
	return ToGo(v)
}

// Predicate evaluates the expression as a callable filter; the result's
// Starlark truth value decides.
func (e *Expr) Predicate(rec *records.Record, column string) (bool, error) {
	v, err := e.eval(rec, column)
	if err != nil {
		return false, err
	}
	return bool(v.Truth()), nil
}

// Compute evaluates the expression for a computed column.
func (e *Expr) Compute(rec *records.Record) (any, error) {
	return e.Eval(rec, "")
}

func (e *Expr) eval(rec *records.Record, column string) (starlark.Value, error) {
	dict := starlark.NewDict(rec.Len())
	value := starlark.Value(starlark.None)
	var convErr error
	rec.Range(func(k string, v any) bool {
		sv, err := FromGo(v)
		if err != nil {
			convErr = fmt.Errorf("column %q: %w", k, err)
			return false
		}
		if err := dict.SetKey(starlark.String(k), sv); err != nil {
			convErr = err
			return false
		}
		if k == column {
			value = sv
		}
		return true
	})
	if convErr != nil {
		return nil, fmt.Errorf("script %s: %w", e.name, convErr)
	}
	dict.Freeze()

	globals := starlark.StringDict{
		"record": dict,
		"column": starlark.String(column),
		"value":  value,
	}
	thread := &starlark.Thread{
		Name: e.name,
		Print: func(_ *starlark.Thread, msg string) {
			slog.Debug("script: print", "expr", e.name, "msg", msg)
		},
	}
	thread.SetMaxExecutionSteps(maxSteps)

	v, err := starlark.EvalOptions(fileOptions, thread, e.name, e.src, globals)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", e.name, err)
	}
	return v, nil
}

// FromGo converts a record value to Starlark. Times become their canonical
// text form.
func FromGo(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(x), nil
	case int64:
		return starlark.MakeInt64(x), nil
	case int:
		return starlark.MakeInt(x), nil
	case int32:
		return starlark.MakeInt64(int64(x)), nil
	case float64:
		return starlark.Float(x), nil
	case float32:
		return starlark.Float(float64(x)), nil
	case bool:
		return starlark.Bool(x), nil
	case time.Time:
		return starlark.String(records.FormatTime(x)), nil
	case []byte:
		return starlark.Bytes(x), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// ToGo converts a Starlark result back to a Go value.
func ToGo(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(x), nil
	case starlark.Bytes:
		return string(x), nil
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i, nil
		}
		return x.String(), nil
	case starlark.Float:
		return float64(x), nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Indexable:
		out := make([]any, x.Len())
		for i := range out {
			gv, err := ToGo(x.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			k, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", string(k), err)
			}
			out[string(k)] = gv
		}
		return out, nil
	default:
		return v.String(), nil
	}
}
