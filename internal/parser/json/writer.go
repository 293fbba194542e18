package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tbroadley/sandpaper/pkg/records"
)

// WriterOptions configures Write and WriteLines.
type WriterOptions struct {
	// Sheet, when set, wraps the array in a book object {sheet: [...]}.
	Sheet string
	// LineTerminator replaces "\n" between lines; empty means "\n".
	LineTerminator string
}

// Write encodes recs as an indented array of objects in column order.
func Write(w io.Writer, recs []*records.Record, opt WriterOptions) error {
	if recs == nil {
		recs = []*records.Record{}
	}
	var v any = recs
	if opt.Sheet != "" {
		v = book{name: opt.Sheet, recs: recs}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	b = append(b, '\n')
	return writeLines(w, b, opt.LineTerminator)
}

// WriteLines encodes one compact object per line.
func WriteLines(w io.Writer, recs []*records.Record, opt WriterOptions) error {
	var buf bytes.Buffer
	for i, rec := range recs {
		b, err := rec.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode json record %d: %w", i+1, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return writeLines(w, buf.Bytes(), opt.LineTerminator)
}

// writeLines writes b with "\n" replaced by term. JSON text never carries a
// raw newline inside a string, so the replacement only touches separators.
func writeLines(w io.Writer, b []byte, term string) error {
	if term != "" && term != "\n" {
		b = bytes.ReplaceAll(b, []byte("\n"), []byte(term))
	}
	_, err := w.Write(b)
	return err
}

type book struct {
	name string
	recs []*records.Record
}

func (b book) MarshalJSON() ([]byte, error) {
	k, err := json.Marshal(b.name)
	if err != nil {
		return nil, err
	}
	v, err := json.Marshal(b.recs)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(k)+len(v)+3)
	out = append(out, '{')
	out = append(out, k...)
	out = append(out, ':')
	out = append(out, v...)
	return append(out, '}'), nil
}
