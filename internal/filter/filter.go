// Package filter decides which (column, value) pairs of a record a value rule
// may touch.
package filter

import (
	"fmt"

	"github.com/tbroadley/sandpaper/internal/pattern"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// Predicate reports whether column of rec should be visited.
type Predicate func(rec *records.Record, column string) (bool, error)

// Spec is the uncompiled filter configuration of one rule. Empty patterns
// and a nil Predicate impose no restriction.
type Spec struct {
	Column    string
	Value     string
	Predicate Predicate
}

// IsZero reports whether s restricts nothing.
func (s Spec) IsZero() bool {
	return s.Column == "" && s.Value == "" && s.Predicate == nil
}

// Filter is a compiled Spec. A nil *Filter allows every pair.
type Filter struct {
	column *pattern.Pattern
	value  *pattern.Pattern
	pred   Predicate
}

// Compile compiles the patterns of s. It returns nil, nil for a zero Spec.
func Compile(s Spec) (*Filter, error) {
	if s.IsZero() {
		return nil, nil
	}
	f := &Filter{pred: s.Predicate}
	var err error
	if s.Column != "" {
		if f.column, err = pattern.Compile(s.Column); err != nil {
			return nil, fmt.Errorf("column filter: %w", err)
		}
	}
	if s.Value != "" {
		if f.value, err = pattern.Compile(s.Value); err != nil {
			return nil, fmt.Errorf("value filter: %w", err)
		}
	}
	return f, nil
}

// Allows reports whether (column, value) of rec passes every criterion.
// Criteria are checked in order column, value, predicate; the predicate is
// only called when both patterns matched.
func (f *Filter) Allows(rec *records.Record, column string, value any) (bool, error) {
	if f == nil {
		return true, nil
	}
	if f.column != nil && !f.column.MatchString(column) {
		return false, nil
	}
	if f.value != nil && !f.value.MatchString(records.String(value)) {
		return false, nil
	}
	if f.pred != nil {
		ok, err := f.pred(rec, column)
		if err != nil {
			return false, fmt.Errorf("callable filter on %q: %w", column, err)
		}
		return ok, nil
	}
	return true, nil
}

// Select calls fn with each allowed (column, value) pair of rec in column
// order. A column is checked against rec as it is when reached, so cells fn
// rewrote earlier are seen with their new values. Select stops at the first
// error.
func (f *Filter) Select(rec *records.Record, fn func(column string, value any) error) error {
	for _, col := range rec.Keys() {
		v, ok := rec.Get(col)
		if !ok {
			continue
		}
		allowed, err := f.Allows(rec, col, v)
		if err != nil {
			return err
		}
		if !allowed {
			continue
		}
		if err := fn(col, v); err != nil {
			return err
		}
	}
	return nil
}
