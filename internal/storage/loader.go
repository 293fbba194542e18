package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tbroadley/sandpaper/pkg/records"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows (aligned to columns) and return the number of rows inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// DefaultBatchSize is used by the SQL backends when no batch_size option is set.
const DefaultBatchSize = 500

// Columns returns the union of the record keys in first-seen order.
func Columns(recs []*records.Record) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range recs {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}

// Row returns the values of rec aligned to columns; missing columns are nil.
func Row(rec *records.Record, columns []string) []any {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i], _ = rec.Get(c)
	}
	return row
}

// LoadBatches groups recs into batches of batchSize rows aligned to columns
// and calls copyFn for each batch. It returns the total reported by copyFn
// and the first error. ctx is checked between batches.
func LoadBatches(
	ctx context.Context,
	columns []string,
	recs []*records.Record,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total   int64
		batches int64
		start   = time.Now()
		batch   = make([][]any, 0, min(batchSize, len(recs)))
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			slog.Debug("loader: copy failed", "inserted", n, "total", total, "err", err)
			return err
		}
		batches++
		slog.Debug("loader: batch flushed",
			"batch", batches,
			"inserted", n,
			"total", total,
			"elapsed", time.Since(start).Truncate(time.Millisecond),
		)
		return nil
	}

	for _, rec := range recs {
		batch = append(batch, Row(rec, columns))
		if len(batch) >= batchSize {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
