// Package parser defines the record stream produced by table readers and the
// typed value inference shared by the text formats.
package parser

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tbroadley/sandpaper/internal/config"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// RecordReader yields records in source order. Next returns io.EOF after the
// last record.
type RecordReader interface {
	Next() (*records.Record, error)
}

type sliceReader struct {
	recs []*records.Record
	i    int
}

// Slice returns a RecordReader over recs.
func Slice(recs []*records.Record) RecordReader { return &sliceReader{recs: recs} }

func (s *sliceReader) Next() (*records.Record, error) {
	if s.i >= len(s.recs) {
		return nil, io.EOF
	}
	r := s.recs[s.i]
	s.i++
	return r, nil
}

// ReadAll drains r, checking ctx between records.
func ReadAll(ctx context.Context, r RecordReader) ([]*records.Record, error) {
	var out []*records.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Reader option keys understood by Infer.
const (
	OptAutoDetectInt      = "auto_detect_int"
	OptAutoDetectFloat    = "auto_detect_float"
	OptAutoDetectDatetime = "auto_detect_datetime"
)

// Infer converts raw cell text into typed values.
type Infer struct {
	Int      bool
	Float    bool
	Datetime bool
}

// InferFrom reads the auto_detect_* options. Integers and floats are detected
// by default, datetimes are not.
func InferFrom(o config.Options) Infer {
	return Infer{
		Int:      o.Bool(OptAutoDetectInt, true),
		Float:    o.Bool(OptAutoDetectFloat, true),
		Datetime: o.Bool(OptAutoDetectDatetime, false),
	}
}

var datetimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Value returns s as int64, float64 or time.Time when enabled and s is
// unambiguous, otherwise s unchanged. Integers with leading zeros ("007")
// stay text.
func (in Infer) Value(s string) any {
	if s == "" {
		return s
	}
	if in.Int && looksInt(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	if in.Float && looksFloat(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if in.Datetime && len(s) >= len("2006-01-02") && s[4] == '-' {
		for _, l := range datetimeLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t
			}
		}
	}
	return s
}

func looksInt(s string) bool {
	d := strings.TrimPrefix(s, "-")
	if d == "" || (len(d) > 1 && d[0] == '0') {
		return false
	}
	for i := 0; i < len(d); i++ {
		if d[i] < '0' || d[i] > '9' {
			return false
		}
	}
	return true
}

func looksFloat(s string) bool {
	digits := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = true
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	if !digits {
		return false
	}
	d := strings.TrimPrefix(s, "-")
	// "01.5" keeps its leading zero as text, "0.5" does not.
	return !(len(d) > 1 && d[0] == '0' && d[1] != '.')
}
