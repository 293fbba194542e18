// Package ddl defines a small model for SQL table definitions, the dialects
// the SQL backends speak, and the inference of a table definition from
// records.
package ddl

import (
	"fmt"
	"strings"
)

// CreateTableSQL renders t as:
//
//	CREATE TABLE [IF NOT EXISTS] <FQN> (
//	  <Name> <SQLType> [NOT NULL],
//	  ...
//	);
func (d Dialect) CreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.prefix())
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.prefix())
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.prefix(), fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.prefix(), name)
		}

		col := d.QuoteIdent(name) + " " + typ
		if !c.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	create := "CREATE TABLE "
	if d.IfNotExists {
		create += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n);", create, d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// DropTableSQL renders a DROP TABLE IF EXISTS statement for fqn.
func (d Dialect) DropTableSQL(fqn string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteFQN(strings.TrimSpace(fqn))
}

// InsertSQL renders a multi-row INSERT for rows rows of columns.
func (d Dialect) InsertSQL(fqn string, columns []string, rows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteFQN(fqn))
	sb.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdent(c))
	}
	sb.WriteString(") VALUES ")
	n := 0
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for i := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			n++
			sb.WriteString(d.Placeholder(n))
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// SelectAllSQL renders SELECT * for fqn.
func (d Dialect) SelectAllSQL(fqn string) string {
	return "SELECT * FROM " + d.QuoteFQN(strings.TrimSpace(fqn))
}

func (d Dialect) prefix() string {
	if d.Name == "" {
		return "ddl"
	}
	return d.Name + " ddl"
}
