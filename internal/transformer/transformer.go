// Package transformer runs an ordered list of steps over a single record.
//
// Two kinds of step exist. A ValueStep rewrites individual cells: for every
// column its filter allows it computes a new value and assigns it back into
// the record. A RecordStep replaces the whole record. Steps run strictly in
// the order they appear in the Chain.
package transformer

import (
	"fmt"

	"github.com/tbroadley/sandpaper/internal/filter"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// Transformer rewrites one record. Implementations may modify rec in place
// and return it, or return a different record.
type Transformer interface {
	Apply(rec *records.Record) (*records.Record, error)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order, feeding each the previous output.
func (c Chain) Apply(rec *records.Record) (*records.Record, error) {
	out := rec
	for _, t := range c {
		var err error
		if out, err = t.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ValueFunc computes the new value of column. rec must be treated as
// read-only; the step assigns the result.
type ValueFunc func(rec *records.Record, column string) (any, error)

// RecordFunc returns the replacement for rec. It receives a private copy and
// may modify it freely.
type RecordFunc func(rec *records.Record) (*records.Record, error)

// ValueStep applies Fn to every cell Filter allows. The filter is
// re-evaluated for each column against the record as it is being rewritten,
// so a value filter sees values produced earlier in the same step.
type ValueStep struct {
	Name   string
	Filter *filter.Filter
	Fn     ValueFunc
}

func (s ValueStep) Apply(rec *records.Record) (*records.Record, error) {
	var fnErr error
	err := s.Filter.Select(rec, func(col string, _ any) error {
		nv, err := s.Fn(rec, col)
		if err != nil {
			fnErr = fmt.Errorf("%s on column %q: %w", s.Name, col, err)
			return fnErr
		}
		rec.Set(col, nv)
		return nil
	})
	switch {
	case fnErr != nil:
		return nil, fnErr
	case err != nil:
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return rec, nil
}

// RecordStep replaces the record with Fn's result.
type RecordStep struct {
	Name string
	Fn   RecordFunc
}

func (s RecordStep) Apply(rec *records.Record) (*records.Record, error) {
	out, err := s.Fn(rec.Clone())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	if out == nil {
		return records.New(0), nil
	}
	return out, nil
}
