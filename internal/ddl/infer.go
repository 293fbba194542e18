package ddl

import (
	"time"

	"github.com/tbroadley/sandpaper/pkg/records"
)

// Logical returns the logical type of a cell value, or "" for nil.
func Logical(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case int, int32, int64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// widen combines two logical types of the same column. Integers widen to
// floats; any other disagreement falls back to text.
func widen(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	case (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt):
		return TypeFloat
	default:
		return TypeText
	}
}

// InferColumns returns the logical type of each column from the values in
// recs. A column with only nil values is text.
func InferColumns(columns []string, recs []*records.Record) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		logical := ""
		for _, r := range recs {
			v, _ := r.Get(c)
			logical = widen(logical, Logical(v))
			if logical == TypeText {
				break
			}
		}
		if logical == "" {
			logical = TypeText
		}
		out[i] = logical
	}
	return out
}

// Table builds a definition of nullable columns with the given logical types.
func (d Dialect) Table(fqn string, columns, logicals []string) TableDef {
	defs := make([]ColumnDef, len(columns))
	for i, c := range columns {
		defs[i] = ColumnDef{Name: c, SQLType: d.MapType(logicals[i]), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: defs}
}

// Bind converts v into a value accepted by drivers for a column of the given
// logical type. Columns stored as the dialect's text type (text, and
// timestamps in SQLite) are bound as their text form; integers in float
// columns are bound as floats.
func (d Dialect) Bind(v any, logical string) any {
	if v == nil {
		return nil
	}
	if logical == TypeText || d.MapType(logical) == d.MapType(TypeText) {
		if _, ok := v.(string); !ok {
			return records.String(v)
		}
		return v
	}
	if logical == TypeFloat {
		switch x := v.(type) {
		case int64:
			return float64(x)
		case int:
			return float64(x)
		case int32:
			return float64(x)
		}
	}
	return v
}
