// Package csv reads and writes delimited text tables. The first row is the
// header; every following row becomes one record keyed by header name.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tbroadley/sandpaper/internal/config"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// Reader option keys.
const (
	// OptDelimiter overrides the field delimiter (first rune is used).
	OptDelimiter = "delimiter"
	// OptTrimSpace trims surrounding whitespace from every cell.
	OptTrimSpace = "trim_space"
	// OptHeaderMap renames source headers (original -> new).
	OptHeaderMap = "header_map"
)

// Options configures Reader.
type Options struct {
	Comma     rune
	TrimSpace bool
	HeaderMap map[string]string
	Infer     parser.Infer
}

// FromConfigOptions builds Options from a reader option bag, using comma when
// no delimiter is configured.
func FromConfigOptions(o config.Options, comma rune) Options {
	return Options{
		Comma:     o.Rune(OptDelimiter, comma),
		TrimSpace: o.Bool(OptTrimSpace, false),
		HeaderMap: o.StringMap(OptHeaderMap),
		Infer:     parser.InferFrom(o),
	}
}

// Reader yields one record per data row.
type Reader struct {
	cr      *csv.Reader
	opt     Options
	headers []string
	line    int
	done    bool
}

var _ parser.RecordReader = (*Reader)(nil)

// NewReader reads the header row from r. An empty input yields a Reader with
// no records.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	// Short and long rows are handled in Next.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	rd := &Reader{cr: cr, opt: opt, line: 1}
	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		rd.done = true
		return rd, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	rd.headers = normalizeHeaders(append([]string(nil), h...), opt)
	return rd, nil
}

// Headers returns the column names read from the header row.
func (r *Reader) Headers() []string { return append([]string(nil), r.headers...) }

// Next returns the next record or io.EOF. Rows shorter than the header are
// padded with empty strings; extra cells are keyed col_N.
func (r *Reader) Next() (*records.Record, error) {
	if r.done {
		return nil, io.EOF
	}
	row, err := r.cr.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		return nil, io.EOF
	}
	r.line++
	if err != nil {
		return nil, fmt.Errorf("read csv row %d: %w", r.line, err)
	}

	n := max(len(row), len(r.headers))
	rec := records.New(n)
	for i := 0; i < n; i++ {
		var val string
		if i < len(row) {
			val = row[i]
		}
		if r.opt.TrimSpace {
			val = strings.TrimSpace(val)
		}
		rec.Set(keyFor(i, r.headers), r.opt.Infer.Value(val))
	}
	return rec, nil
}

// keyFor returns the column key for index idx, using headers when available,
// otherwise synthesizing a "col_N" name.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

func normalizeHeaders(h []string, opt Options) []string {
	h = StripHeaderBOM(h)
	for i, col := range h {
		if opt.TrimSpace {
			col = strings.TrimSpace(col)
		}
		if m, ok := opt.HeaderMap[col]; ok {
			col = m
		}
		h[i] = col
	}
	return h
}
