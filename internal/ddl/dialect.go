package ddl

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between SQL backends when creating and
// filling a table.
type Dialect struct {
	Name string
	// Open and Close quote one identifier segment; Close is doubled when it
	// appears inside the identifier. Empty means no quoting.
	Open, Close string
	// IfNotExists adds IF NOT EXISTS to CREATE TABLE.
	IfNotExists bool
	// Positional placeholders render as Prefix + index ("$1", "@p1");
	// otherwise every placeholder is "?".
	Positional bool
	Prefix     string
	// MaxParams bounds the bind parameters in one statement.
	MaxParams int
	// Types maps logical types (see Logical) to column types; missing
	// entries fall back to the "text" entry.
	Types map[string]string
}

// Logical type names produced by Logical.
const (
	TypeInt       = "int"
	TypeFloat     = "float"
	TypeBool      = "bool"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
)

var (
	// SQLite stores timestamps as ISO-8601 text and booleans as 0/1.
	SQLite = Dialect{
		Name: "sqlite", Open: `"`, Close: `"`, IfNotExists: true, MaxParams: 32766,
		Types: map[string]string{
			TypeInt: "INTEGER", TypeFloat: "REAL", TypeBool: "INTEGER",
			TypeTimestamp: "TEXT", TypeText: "TEXT",
		},
	}

	Postgres = Dialect{
		Name: "postgres", Open: `"`, Close: `"`, IfNotExists: true,
		Positional: true, Prefix: "$", MaxParams: 65535,
		Types: map[string]string{
			TypeInt: "BIGINT", TypeFloat: "DOUBLE PRECISION", TypeBool: "BOOLEAN",
			TypeTimestamp: "TIMESTAMPTZ", TypeText: "TEXT",
		},
	}

	MySQL = Dialect{
		Name: "mysql", Open: "`", Close: "`", IfNotExists: true, MaxParams: 65535,
		Types: map[string]string{
			TypeInt: "BIGINT", TypeFloat: "DOUBLE", TypeBool: "BOOLEAN",
			TypeTimestamp: "DATETIME(6)", TypeText: "LONGTEXT",
		},
	}

	// SQLServer has no CREATE TABLE IF NOT EXISTS; writers drop first.
	SQLServer = Dialect{
		Name: "sqlserver", Open: "[", Close: "]",
		Positional: true, Prefix: "@p", MaxParams: 2000,
		Types: map[string]string{
			TypeInt: "BIGINT", TypeFloat: "FLOAT", TypeBool: "BIT",
			TypeTimestamp: "DATETIME2", TypeText: "NVARCHAR(MAX)",
		},
	}
)

// MapType maps a logical type to the dialect's column type.
func (d Dialect) MapType(logical string) string {
	if t, ok := d.Types[strings.ToLower(strings.TrimSpace(logical))]; ok {
		return t
	}
	if t, ok := d.Types[TypeText]; ok {
		return t
	}
	return "TEXT"
}

// QuoteIdent quotes a single identifier segment, e.g. for Postgres:
//
//	QuoteIdent(`pcv`)        => `"pcv"`
//	QuoteIdent(`weird"name`) => `"weird""name"`
func (d Dialect) QuoteIdent(id string) string {
	if d.Open == "" {
		return id
	}
	return d.Open + strings.ReplaceAll(id, d.Close, d.Close+d.Close) + d.Close
}

// QuoteFQN quotes a possibly schema-qualified name like "public.users" to
// `"public"."users"`. Empty segments are ignored.
func (d Dialect) QuoteFQN(fqn string) string {
	if d.Open == "" {
		return strings.TrimSpace(fqn)
	}
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if !d.Positional {
		return "?"
	}
	return d.Prefix + strconv.Itoa(n)
}

// BatchRows returns how many rows of width columns fit in one statement.
func (d Dialect) BatchRows(columns, want int) int {
	if columns <= 0 || d.MaxParams <= 0 {
		return want
	}
	return max(1, min(want, d.MaxParams/columns))
}
