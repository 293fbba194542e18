// Package sqldb implements storage.Backend on top of database/sql for the
// SQL engines that have a database/sql driver (sqlite, mysql, sqlserver).
//
// Reads run SELECT * against one table. Writes replace the table: DROP,
// CREATE from inferred column types, then batched multi-row INSERTs, all in
// one transaction.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tbroadley/sandpaper/internal/ddl"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// OptBatchSize sets the rows per INSERT statement.
const OptBatchSize = "batch_size"

// Backend is a database/sql backed storage.Backend.
type Backend struct {
	Driver  string
	Dialect ddl.Dialect
	// DSN converts a location path into a driver DSN. Nil passes it through.
	DSN func(path string) (string, error)
	// DefaultTable names the table used when the location has no sheet.
	// Nil makes the sheet mandatory.
	DefaultTable func(ctx context.Context, db *sql.DB, loc storage.Location) (string, error)
	// Insert loads one batch; nil uses MultiRowInsert.
	Insert InsertFunc
}

// InsertFunc inserts bound rows into table inside tx and returns the number
// of rows inserted.
type InsertFunc func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error)

// MultiRowInsert returns an InsertFunc issuing one INSERT ... VALUES (...),
// (...) statement per batch.
func MultiRowInsert(d ddl.Dialect) InsertFunc {
	return func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
		args := make([]any, 0, len(rows)*len(columns))
		for _, row := range rows {
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, d.InsertSQL(table, columns, len(rows)), args...); err != nil {
			return 0, fmt.Errorf("%s: insert: %w", d.Name, err)
		}
		return int64(len(rows)), nil
	}
}

// Connect opens and pings a database for loc. The handle is tracked on sess.
func (b Backend) Connect(ctx context.Context, sess *storage.Session, loc storage.Location) (*sql.DB, error) {
	dsn := loc.Path
	if b.DSN != nil {
		var err error
		if dsn, err = b.DSN(loc.Path); err != nil {
			return nil, fmt.Errorf("%s dsn: %w", b.Dialect.Name, err)
		}
	}
	db, err := sql.Open(b.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", b.Dialect.Name, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", b.Dialect.Name, err)
	}
	sess.Track(db)
	return db, nil
}

func (b Backend) checkTable(loc storage.Location) error {
	if strings.TrimSpace(loc.Sheet) == "" && b.DefaultTable == nil {
		return fmt.Errorf("%s: table required for %q (use ?table= or a sheet)", b.Dialect.Name, loc.Raw)
	}
	return nil
}

func (b Backend) table(ctx context.Context, db *sql.DB, loc storage.Location) (string, error) {
	if t := strings.TrimSpace(loc.Sheet); t != "" {
		return t, nil
	}
	return b.DefaultTable(ctx, db, loc)
}

// Open implements storage.Backend.
func (b Backend) Open(ctx context.Context, sess *storage.Session, loc storage.Location, _ storage.ReadOptions) (parser.RecordReader, error) {
	if err := b.checkTable(loc); err != nil {
		return nil, err
	}
	db, err := b.Connect(ctx, sess, loc)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	table, err := b.table(ctx, db, loc)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, b.Dialect.SelectAllSQL(table))
	if err != nil {
		return nil, fmt.Errorf("%s: select %s: %w", b.Dialect.Name, table, err)
	}
	sess.Track(rows)
	return NewRowReader(rows)
}

// Write implements storage.Backend.
func (b Backend) Write(ctx context.Context, sess *storage.Session, loc storage.Location, recs []*records.Record, opts storage.WriteOptions) error {
	if err := b.checkTable(loc); err != nil {
		return err
	}
	db, err := b.Connect(ctx, sess, loc)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	table, err := b.table(ctx, db, loc)
	if err != nil {
		return err
	}
	insert := b.Insert
	if insert == nil {
		insert = MultiRowInsert(b.Dialect)
	}
	return WriteTable(ctx, db, b.Dialect, table, recs, opts.Options.Int(OptBatchSize, storage.DefaultBatchSize), insert)
}

// WriteTable replaces table with recs inside one transaction. Zero records
// leave the table untouched.
func WriteTable(ctx context.Context, db *sql.DB, d ddl.Dialect, table string, recs []*records.Record, batchSize int, insert InsertFunc) (err error) {
	cols := storage.Columns(recs)
	if len(cols) == 0 {
		slog.Warn("sqldb: no columns to write, table left untouched", "dialect", d.Name, "table", table)
		return nil
	}
	logicals := ddl.InferColumns(cols, recs)
	create, err := d.CreateTableSQL(d.Table(table, cols, logicals))
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", d.Name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{d.DropTableSQL(table), create} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: exec %q: %w", d.Name, firstLine(stmt), err)
		}
	}

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		for _, row := range rows {
			for i, v := range row {
				row[i] = d.Bind(v, logicals[i])
			}
		}
		return insert(ctx, tx, table, columns, rows)
	}
	n, err := storage.LoadBatches(ctx, cols, recs, d.BatchRows(len(cols), batchSize), copyFn)
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", d.Name, err)
	}
	slog.Debug("sqldb: table written", "dialect", d.Name, "table", table, "rows", n)
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// RowReader adapts *sql.Rows to parser.RecordReader.
type RowReader struct {
	rows *sql.Rows
	cols []string
	vals []any
	ptrs []any
}

// NewRowReader reads the column names of rows.
func NewRowReader(rows *sql.Rows) (*RowReader, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	r := &RowReader{rows: rows, cols: cols, vals: make([]any, len(cols)), ptrs: make([]any, len(cols))}
	for i := range r.vals {
		r.ptrs[i] = &r.vals[i]
	}
	return r, nil
}

// Next implements parser.RecordReader.
func (r *RowReader) Next() (*records.Record, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		return nil, io.EOF
	}
	if err := r.rows.Scan(r.ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	rec := records.New(len(r.cols))
	for i, c := range r.cols {
		rec.Set(c, Normalize(r.vals[i]))
	}
	return rec, nil
}

// Normalize maps driver values onto the record value set.
func Normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
