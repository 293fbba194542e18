// Package sqlite serves SQLite database files as tables using the pure-Go
// modernc.org/sqlite driver. Locations are file paths or sqlite:// URLs
// ("sqlite:///tmp/out.db?table=people"). The sheet selects the table;
// without one the first user table is used, or the file name stem when the
// file has none.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tbroadley/sandpaper/internal/ddl"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/internal/storage/sqldb"
)

func init() {
	storage.Register("sqlite", New(), ".db", ".sqlite", ".sqlite3", "sqlite://")
}

// Backend is the SQLite storage.Backend.
type Backend struct {
	sqldb.Backend
}

// New returns the SQLite backend.
func New() Backend {
	return Backend{sqldb.Backend{
		Driver:       "sqlite",
		Dialect:      ddl.SQLite,
		DefaultTable: defaultTable,
		DSN: func(p string) (string, error) {
			return FilePath(p), nil
		},
	}}
}

// Open implements storage.Backend. Unlike writes, reads never create the file.
func (b Backend) Open(ctx context.Context, sess *storage.Session, loc storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	if _, err := os.Stat(FilePath(loc.Path)); err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return b.Backend.Open(ctx, sess, loc, opts)
}

// Tables lists the user tables of db in creation order.
func Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: list tables: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func defaultTable(ctx context.Context, db *sql.DB, loc storage.Location) (string, error) {
	tables, err := Tables(ctx, db)
	if err != nil {
		return "", err
	}
	if len(tables) > 0 {
		return tables[0], nil
	}
	p := FilePath(loc.Path)
	stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	if stem == "" || stem == "." {
		return "", errors.New("sqlite: cannot derive a table name; set a sheet")
	}
	return stem, nil
}

// FilePath returns the database file of a location path, which is either a
// plain path or a sqlite:// URL.
func FilePath(p string) string {
	if len(p) < len(scheme) || !strings.EqualFold(p[:len(scheme)], scheme) {
		return p
	}
	rest := p[len(scheme):]
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	if u, err := url.PathUnescape(rest); err == nil {
		rest = u
	}
	return rest
}

const scheme = "sqlite://"
