// Package xlsx serves Excel workbooks. The sheet selects a worksheet; without
// one the first worksheet is read, and writes go to a sheet named "Sheet1".
// The first row of a worksheet is the header.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tbroadley/sandpaper/internal/datasource/file"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// DefaultSheet is the worksheet written when the location names none.
const DefaultSheet = "Sheet1"

// OptTrimSpace trims surrounding whitespace from every cell.
const OptTrimSpace = "trim_space"

func init() {
	storage.Register("xlsx", Backend{}, ".xlsx", ".xlsm")
}

// Backend is the workbook storage.Backend.
type Backend struct{}

// Open implements storage.Backend.
func (b Backend) Open(ctx context.Context, sess *storage.Session, loc storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	rc, err := file.NewLocal(loc.Path).Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	sess.Track(rc)
	return b.Decode(rc, loc, opts)
}

// Decode implements storage.Decoder. The worksheet is read eagerly.
func (Backend) Decode(r io.Reader, loc storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer f.Close()

	sheet := loc.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return parser.Slice(nil), nil
		}
		sheet = list[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("xlsx: no sheet %q in workbook (have %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheet, err)
	}
	return parser.Slice(toRecords(rows, parser.InferFrom(opts.Options), opts.Options.Bool(OptTrimSpace, false))), nil
}

func toRecords(rows [][]string, infer parser.Infer, trim bool) []*records.Record {
	if len(rows) == 0 {
		return nil
	}
	headers := rows[0]
	out := make([]*records.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		n := max(len(row), len(headers))
		rec := records.New(n)
		for i := 0; i < n; i++ {
			var val string
			if i < len(row) {
				val = row[i]
			}
			if trim {
				val = strings.TrimSpace(val)
			}
			rec.Set(keyFor(i, headers, trim), infer.Value(val))
		}
		out = append(out, rec)
	}
	return out
}

func keyFor(i int, headers []string, trim bool) string {
	if i < len(headers) {
		h := headers[i]
		if trim {
			h = strings.TrimSpace(h)
		}
		if h != "" {
			return h
		}
	}
	return fmt.Sprintf("col_%d", i)
}

// Write implements storage.Backend. The workbook is replaced and holds a
// single worksheet: a header row of the column union, then one row per
// record.
func (Backend) Write(ctx context.Context, _ *storage.Session, loc storage.Location, recs []*records.Record, _ storage.WriteOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := DefaultSheet
	if loc.Sheet != "" && loc.Sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, loc.Sheet); err != nil {
			return fmt.Errorf("xlsx: sheet %q: %w", loc.Sheet, err)
		}
		sheet = loc.Sheet
	}

	if len(recs) > 0 {
		cols := storage.Columns(recs)
		header := make([]any, len(cols))
		for i, c := range cols {
			header[i] = c
		}
		if err := setRow(f, sheet, 1, header); err != nil {
			return err
		}
		for i, rec := range recs {
			row := make([]any, len(cols))
			for j, c := range cols {
				v, _ := rec.Get(c)
				row[j] = cell(v)
			}
			if err := setRow(f, sheet, i+2, row); err != nil {
				return err
			}
		}
	}

	return file.NewLocal(loc.Path).Create(ctx, func(w io.Writer) error {
		if err := f.Write(w); err != nil {
			return fmt.Errorf("xlsx: write workbook: %w", err)
		}
		return nil
	})
}

func setRow(f *excelize.File, sheet string, n int, row []any) error {
	addr, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("xlsx: row %d: %w", n, err)
	}
	if err := f.SetSheetRow(sheet, addr, &row); err != nil {
		return fmt.Errorf("xlsx: write row %d: %w", n, err)
	}
	return nil
}

// cell maps a record value onto a type excelize stores natively.
func cell(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64:
		return v
	case time.Time:
		return v
	default:
		return records.String(v)
	}
}
