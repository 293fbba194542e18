// Package mssql serves Microsoft SQL Server tables through go-mssqldb.
// Locations are sqlserver:// (or mssql://) URLs whose table or sheet query
// parameter names the table. Writes replace the table and load rows with the
// driver's bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/tbroadley/sandpaper/internal/ddl"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/internal/storage/sqldb"
)

func init() {
	storage.Register("sqlserver", New(), "sqlserver://", "mssql://")
}

// New returns the SQL Server backend.
func New() sqldb.Backend {
	return sqldb.Backend{
		Driver:  "sqlserver",
		Dialect: ddl.SQLServer,
		DSN:     DSN,
		Insert:  CopyIn,
	}
}

// DSN normalizes the mssql:// scheme to sqlserver:// and validates the result
// so obvious mistakes fail before dialing.
func DSN(path string) (string, error) {
	if rest, ok := strings.CutPrefix(path, "mssql://"); ok {
		path = "sqlserver://" + rest
	}
	if _, err := msdsn.Parse(path); err != nil {
		return "", err
	}
	return path, nil
}

// CopyIn bulk-loads rows into table inside tx.
func CopyIn(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("sqlserver: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("sqlserver: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("sqlserver: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlserver: rows affected: %w", err)
	}
	return n, nil
}
