// Package json reads and writes tables stored as JSON.
//
// Two layouts are understood:
//
//   - an array of objects: [ {...}, {...} ]
//   - a book object whose members are named sheets: {"people": [ {...} ]}
//
// plus newline-delimited JSON (one object per line). Object member order is
// kept as column order.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// Decoder yields the records of one JSON table.
type Decoder struct {
	dec   *json.Decoder
	infer parser.Infer
	lines bool // newline-delimited
	n     int
	done  bool
}

var _ parser.RecordReader = (*Decoder)(nil)

// NewDecoder positions a decoder on the records of r. For a book object,
// sheet selects the member to read; an empty sheet reads the first member.
// Only datetime inference applies, other scalars keep their JSON type.
func NewDecoder(r io.Reader, sheet string, infer parser.Infer) (*Decoder, error) {
	d := &Decoder{dec: json.NewDecoder(r), infer: parser.Infer{Datetime: infer.Datetime}}
	d.dec.UseNumber()

	tok, err := d.dec.Token()
	if errors.Is(err, io.EOF) {
		d.done = true
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	switch tok {
	case json.Delim('['):
		return d, nil
	case json.Delim('{'):
	default:
		return nil, fmt.Errorf("read json: want array or object at top level, got %v", tok)
	}

	// Book: walk members until the selected sheet.
	for d.dec.More() {
		kt, err := d.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
		name, _ := kt.(string)
		if sheet == "" || name == sheet {
			if err := expectDelim(d.dec, '['); err != nil {
				return nil, fmt.Errorf("read json sheet %q: %w", name, err)
			}
			return d, nil
		}
		var skip json.RawMessage
		if err := d.dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
	}
	if sheet == "" {
		// Empty book.
		d.done = true
		return d, nil
	}
	return nil, fmt.Errorf("read json: sheet %q not found", sheet)
}

// NewLineDecoder reads newline-delimited JSON objects from r.
func NewLineDecoder(r io.Reader, infer parser.Infer) *Decoder {
	d := &Decoder{dec: json.NewDecoder(r), infer: parser.Infer{Datetime: infer.Datetime}, lines: true}
	d.dec.UseNumber()
	return d
}

// Next returns the next record or io.EOF.
func (d *Decoder) Next() (*records.Record, error) {
	if d.done || !d.dec.More() {
		d.done = true
		return nil, io.EOF
	}
	d.n++
	rec, err := d.object()
	if err != nil {
		return nil, fmt.Errorf("read json record %d: %w", d.n, err)
	}
	return rec, nil
}

func (d *Decoder) object() (*records.Record, error) {
	if err := expectDelim(d.dec, '{'); err != nil {
		return nil, err
	}
	rec := records.New(8)
	for d.dec.More() {
		kt, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := d.dec.Decode(&raw); err != nil {
			return nil, err
		}
		v, err := d.value(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		rec.Set(key, v)
	}
	// closing '}'
	if _, err := d.dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

// value converts one JSON member to a cell value. Nested objects and arrays
// are kept as compact JSON text.
func (d *Decoder) value(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return x.Float64()
	case string:
		return d.infer.Value(x), nil
	default:
		return x, nil
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("want %q, got %v", want, tok)
	}
	return nil
}
