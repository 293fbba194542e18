package ddl

// ColumnDef is one column of a table definition. Name is unquoted; the
// dialect quotes it when rendering.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef is a table name, optionally schema-qualified ("dbo.people"), and
// its columns in order.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
