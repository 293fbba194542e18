package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbroadley/sandpaper/internal/dateformat"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// Coercion target types.
const (
	CoerceInt    = "int"
	CoerceFloat  = "float"
	CoerceBool   = "bool"
	CoerceDate   = "date"
	CoerceString = "string"
)

// DefaultDateFormat is used by date coercion when no format is given.
const DefaultDateFormat = "YYYY-MM-DD"

// Coercer converts cells to one target type. Values that cannot be
// converted are returned unchanged. Build one with NewCoercer.
type Coercer struct {
	typ    string
	layout *dateformat.Layout
}

// NewCoercer validates typ and, for dates, compiles format.
func NewCoercer(typ, format string) (*Coercer, error) {
	c := &Coercer{typ: strings.ToLower(strings.TrimSpace(typ))}
	switch c.typ {
	case CoerceInt, CoerceFloat, CoerceBool, CoerceString:
	case CoerceDate:
		if format == "" {
			format = DefaultDateFormat
		}
		l, err := dateformat.Compile(format)
		if err != nil {
			return nil, fmt.Errorf("coerce: %w", err)
		}
		c.layout = l
	default:
		return nil, fmt.Errorf("coerce: unknown type %q (want int, float, bool, date or string)", typ)
	}
	return c, nil
}

// String renders the coercion for rule signatures.
func (c *Coercer) String() string {
	if c.layout != nil {
		return c.typ + ":" + c.layout.String()
	}
	return c.typ
}

// Apply converts v.
func (c *Coercer) Apply(v any) any {
	if v == nil {
		return nil
	}
	switch c.typ {
	case CoerceString:
		if _, ok := v.(string); ok {
			return v
		}
		return records.String(v)
	case CoerceInt:
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			if n == float64(int64(n)) {
				return int64(n)
			}
		case string:
			if i, ok := toInt(strings.TrimSpace(n)); ok {
				return i
			}
		}
	case CoerceFloat:
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	case CoerceBool:
		switch b := v.(type) {
		case bool:
			return b
		case int64:
			if b == 0 || b == 1 {
				return b == 1
			}
		case string:
			if x, ok := toBool(b); ok {
				return x
			}
		}
	case CoerceDate:
		switch t := v.(type) {
		case time.Time:
			return t
		case string:
			if p, err := c.layout.Parse(strings.TrimSpace(t)); err == nil {
				return p
			}
		}
	}
	return v
}

// toInt parses integers, accepting whole floats like "42.0".
func toInt(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}

func toBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, true
	case "0", "f", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
