package csv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// WriterOptions configures Write.
type WriterOptions struct {
	Comma rune
	// LineTerminator is "\n" (also used when empty) or "\r\n".
	LineTerminator string
}

// Write writes recs as a header row followed by one row per record. The
// header is the union of the record keys in first-seen order; cells missing
// from a record are written empty. Nothing is written for zero records.
func Write(w io.Writer, recs []*records.Record, opt WriterOptions) error {
	cw := csv.NewWriter(w)
	if opt.Comma != 0 {
		cw.Comma = opt.Comma
	}
	switch opt.LineTerminator {
	case "", "\n":
	case "\r\n":
		cw.UseCRLF = true
	default:
		return fmt.Errorf("csv: unsupported line terminator %q", opt.LineTerminator)
	}
	if len(recs) == 0 {
		return nil
	}

	cols := storage.Columns(recs)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(cols))
	for i, rec := range recs {
		for j, c := range cols {
			v, _ := rec.Get(c)
			row[j] = records.String(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
