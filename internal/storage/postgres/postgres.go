// Package postgres serves Postgres tables through pgx v5. Locations are
// postgres:// (or postgresql://) URLs whose table or sheet query parameter
// names the table, optionally schema-qualified. Writes replace the table and
// stream rows in with COPY.
package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tbroadley/sandpaper/internal/ddl"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/internal/storage/sqldb"
	"github.com/tbroadley/sandpaper/pkg/records"
)

func init() {
	storage.Register("postgres", Backend{}, "postgres://", "postgresql://")
}

// Backend is the Postgres storage.Backend.
type Backend struct{}

func table(loc storage.Location) (string, error) {
	t := strings.TrimSpace(loc.Sheet)
	if t == "" {
		return "", fmt.Errorf("postgres: table required for %q (use ?table= or a sheet)", loc.Raw)
	}
	return t, nil
}

// connect builds a pool for loc. pgxpool dials lazily, so the pool is pinged
// to surface bad credentials before any work starts.
func connect(ctx context.Context, sess *storage.Session, loc storage.Location) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	sess.TrackFunc(func() error { pool.Close(); return nil })
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Open implements storage.Backend.
func (Backend) Open(ctx context.Context, sess *storage.Session, loc storage.Location, _ storage.ReadOptions) (parser.RecordReader, error) {
	t, err := table(loc)
	if err != nil {
		return nil, err
	}
	pool, err := connect(ctx, sess, loc)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	rows, err := pool.Query(ctx, ddl.Postgres.SelectAllSQL(t))
	if err != nil {
		return nil, fmt.Errorf("postgres: select %s: %w", t, err)
	}
	sess.TrackFunc(func() error { rows.Close(); return nil })
	return newRowReader(rows), nil
}

// Write implements storage.Backend.
func (Backend) Write(ctx context.Context, sess *storage.Session, loc storage.Location, recs []*records.Record, opts storage.WriteOptions) (err error) {
	t, err := table(loc)
	if err != nil {
		return err
	}
	cols := storage.Columns(recs)
	if len(cols) == 0 {
		slog.Warn("postgres: no columns to write, table left untouched", "table", t)
		return nil
	}
	d := ddl.Postgres
	logicals := ddl.InferColumns(cols, recs)
	create, err := d.CreateTableSQL(d.Table(t, cols, logicals))
	if err != nil {
		return err
	}

	pool, err := connect(ctx, sess, loc)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	for _, stmt := range []string{d.DropTableSQL(t), create} {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: exec: %w", err)
		}
	}

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		for _, row := range rows {
			for i, v := range row {
				row[i] = d.Bind(v, logicals[i])
			}
		}
		return tx.CopyFrom(ctx, splitFQN(t), columns, pgx.CopyFromRows(rows))
	}
	n, err := storage.LoadBatches(ctx, cols, recs, opts.Options.Int(sqldb.OptBatchSize, storage.DefaultBatchSize), copyFn)
	if err != nil {
		return fmt.Errorf("postgres: copy: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	slog.Debug("postgres: table written", "table", t, "rows", n)
	return nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

type rowReader struct {
	rows pgx.Rows
	cols []string
}

func newRowReader(rows pgx.Rows) *rowReader {
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return &rowReader{rows: rows, cols: cols}
}

func (r *rowReader) Next() (*records.Record, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		return nil, io.EOF
	}
	vals, err := r.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	rec := records.New(len(r.cols))
	for i, c := range r.cols {
		v, err := normalize(vals[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		rec.Set(c, v)
	}
	return rec, nil
}

// normalize maps pgx decoded values onto the record value set. Whole
// numerics become int64, others float64; uuids become their string form.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil, nil
		}
		if x.Exp >= 0 {
			if i, err := x.Int64Value(); err == nil && i.Valid {
				return i.Int64, nil
			}
		}
		f, err := x.Float64Value()
		if err != nil {
			return nil, err
		}
		return f.Float64, nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	}
	return sqldb.Normalize(v), nil
}
