// Package all wires all built-in storage backends into the storage registry.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their kinds and location matchers with the storage package.
//
// Importing this package makes the following kinds available at runtime:
//
//   - "csv", "tsv"       (.csv, .tsv files)
//   - "json", "ndjson"   (.json, .jsonl, .ndjson files)
//   - "sqlite"           (.db, .sqlite, .sqlite3 files)
//   - "xlsx"             (.xlsx, .xlsm workbooks)
//   - "postgres"         (postgres://, postgresql:// URLs)
//   - "mysql"            (mysql:// URLs)
//   - "sqlserver"        (sqlserver://, mssql:// URLs)
//   - "http"             (http://, https:// URLs; read-only)
//
// Typical usage:
//
//	import _ "github.com/tbroadley/sandpaper/internal/storage/all"
//
//	loc, backend, err := storage.Locate("data/people.csv")
//
// A binary that needs only a subset of backends can import the concrete
// packages directly instead.
package all

import (
	_ "github.com/tbroadley/sandpaper/internal/parser/csv"
	_ "github.com/tbroadley/sandpaper/internal/parser/json"
	_ "github.com/tbroadley/sandpaper/internal/storage/mssql"
	_ "github.com/tbroadley/sandpaper/internal/storage/mysql"
	_ "github.com/tbroadley/sandpaper/internal/storage/postgres"
	_ "github.com/tbroadley/sandpaper/internal/storage/remote"
	_ "github.com/tbroadley/sandpaper/internal/storage/sqlite"
	_ "github.com/tbroadley/sandpaper/internal/storage/xlsx"
)
