package records

import (
	"fmt"
	"strconv"
	"time"
)

// String returns the canonical text form of a cell value. It is what filters
// match against, what templates substitute and what text writers emit.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return FormatTime(x)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// FormatTime renders t as "2006-01-02 15:04:05", adding fractional seconds
// and the zone offset only when they carry information.
func FormatTime(t time.Time) string {
	layout := "2006-01-02 15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".999999999"
	}
	if t.Location() != time.UTC && t.Location() != time.Local {
		layout += "-07:00"
	}
	return t.Format(layout)
}
