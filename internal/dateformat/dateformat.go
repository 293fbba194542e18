// Package dateformat parses and formats dates described with arrow/moment
// style tokens ("YYYY-MM-DD", "DD.MM.YYYY HH:mm").
//
// Supported tokens:
//
//	YYYY YY            year
//	MMMM MMM MM M      month name, abbreviation, zero-padded, plain
//	DDDD DDD           day of year, zero-padded, plain
//	DD D               day of month
//	dddd ddd           weekday name, abbreviation
//	HH H hh h          hour (24h, 12h)
//	mm m ss s          minute, second
//	S...               fractional second digits
//	A a                AM/PM, am/pm
//	ZZZ ZZ Z           zone abbreviation, -07:00, -0700
//	[text]             literal text
//
// Any other character is literal. Parsing is strict: the whole value must
// match, and padded tokens require their full width. Rendering goes through
// goment, except for fractional seconds and zones, which goment spells
// differently.
package dateformat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nleeper/goment"
)

var (
	// ErrMismatch is returned when the input does not match the format.
	ErrMismatch = errors.New("dateformat: value does not match format")
	// ErrUnsupported is returned for formats that cannot be compiled.
	ErrUnsupported = errors.New("dateformat: unsupported format")
)

func init() {
	// goment fills its token tables on first use without locking.
	_, _ = goment.New()
}

type tokenDef struct {
	tok    string
	layout string // Go layout piece used to parse the captured text
	re     string
	native bool // rendered with time.Format instead of goment
}

// tokens are tried longest first at each position.
var tokens = []tokenDef{
	{tok: "YYYY", layout: "2006", re: `\d{4}`},
	{tok: "YY", layout: "06", re: `\d{2}`},
	{tok: "MMMM", layout: "January", re: `[A-Za-z]+`},
	{tok: "MMM", layout: "Jan", re: `[A-Za-z]{3}`},
	{tok: "MM", layout: "01", re: `\d{2}`},
	{tok: "M", layout: "1", re: `\d{1,2}`},
	{tok: "DDDD", layout: "002", re: `\d{3}`},
	{tok: "DDD", layout: "__2", re: `\d{1,3}`},
	{tok: "DD", layout: "02", re: `\d{2}`},
	{tok: "D", layout: "2", re: `\d{1,2}`},
	{tok: "dddd", layout: "Monday", re: `[A-Za-z]+`},
	{tok: "ddd", layout: "Mon", re: `[A-Za-z]{3}`},
	{tok: "HH", layout: "15", re: `\d{2}`},
	{tok: "H", layout: "15", re: `\d{1,2}`},
	{tok: "hh", layout: "03", re: `\d{2}`},
	{tok: "h", layout: "3", re: `\d{1,2}`},
	{tok: "mm", layout: "04", re: `\d{2}`},
	{tok: "m", layout: "4", re: `\d{1,2}`},
	{tok: "ss", layout: "05", re: `\d{2}`},
	{tok: "s", layout: "5", re: `\d{1,2}`},
	{tok: "A", layout: "PM", re: `[AaPp][Mm]`},
	{tok: "a", layout: "pm", re: `[AaPp][Mm]`},
	{tok: "ZZZ", layout: "MST", re: `[A-Za-z]{3,5}`, native: true},
	{tok: "ZZ", layout: "-07:00", re: `[+-]\d{2}:\d{2}`, native: true},
	{tok: "Z", layout: "-0700", re: `[+-]\d{4}`, native: true},
}

// sep joins captured fields; no layout token or input field contains it.
const sep = "\x00"

type segment struct {
	lit string
	def *tokenDef
	// frac is the digit count of an S... token.
	frac int
}

// Layout is a compiled date format.
type Layout struct {
	src    string
	segs   []segment
	re     *regexp.Regexp
	layout string
}

// Compile parses an arrow-style format.
func Compile(format string) (*Layout, error) {
	if format == "" {
		return nil, fmt.Errorf("%w: empty format", ErrUnsupported)
	}
	l := &Layout{src: format}
	var (
		re     strings.Builder
		layout []string
		lit    strings.Builder
	)
	re.WriteString("^")
	flush := func() {
		if lit.Len() == 0 {
			return
		}
		l.segs = append(l.segs, segment{lit: lit.String()})
		re.WriteString(regexp.QuoteMeta(lit.String()))
		lit.Reset()
	}
	addToken := func(s segment, pattern, piece string) {
		flush()
		l.segs = append(l.segs, s)
		re.WriteString("(" + pattern + ")")
		layout = append(layout, piece)
	}

	for i := 0; i < len(format); {
		switch c := format[i]; {
		case c == '[':
			end := strings.IndexByte(format[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated literal in %q", ErrUnsupported, format)
			}
			lit.WriteString(format[i+1 : i+end])
			i += end + 1
			continue
		case c == 'S':
			n := 0
			for i+n < len(format) && format[i+n] == 'S' {
				n++
			}
			if n > 9 {
				return nil, fmt.Errorf("%w: more than 9 fractional digits in %q", ErrUnsupported, format)
			}
			addToken(segment{frac: n}, fmt.Sprintf(`\d{%d}`, n), "."+strings.Repeat("0", n))
			i += n
			continue
		}

		var def *tokenDef
		for j := range tokens {
			if strings.HasPrefix(format[i:], tokens[j].tok) {
				def = &tokens[j]
				break
			}
		}
		if def == nil {
			lit.WriteByte(format[i])
			i++
			continue
		}
		addToken(segment{def: def}, def.re, def.layout)
		i += len(def.tok)
	}
	flush()
	re.WriteString("$")

	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: no date tokens in %q", ErrUnsupported, format)
	}
	l.re = regexp.MustCompile(re.String())
	l.layout = strings.Join(layout, sep)
	return l, nil
}

// String returns the original format.
func (l *Layout) String() string { return l.src }

// Parse parses s. Values without a zone are interpreted as UTC.
func (l *Layout) Parse(s string) (time.Time, error) {
	m := l.re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q as %q", ErrMismatch, s, l.src)
	}

	fields := make([]string, 0, len(m)-1)
	k := 1
	for _, seg := range l.segs {
		switch {
		case seg.frac > 0:
			fields = append(fields, "."+m[k])
		case seg.def != nil && seg.def.tok == "A":
			fields = append(fields, strings.ToUpper(m[k]))
		case seg.def != nil && seg.def.tok == "a":
			fields = append(fields, strings.ToLower(m[k]))
		case seg.def != nil:
			fields = append(fields, m[k])
		default:
			continue
		}
		k++
	}

	t, err := time.ParseInLocation(l.layout, strings.Join(fields, sep), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q as %q: %v", ErrMismatch, s, l.src, strings.ReplaceAll(err.Error(), sep, " "))
	}
	return t, nil
}

// Format renders t.
func (l *Layout) Format(t time.Time) string {
	g, _ := goment.New(t)
	var b strings.Builder
	for _, seg := range l.segs {
		switch {
		case seg.frac > 0:
			b.WriteString(t.Format("." + strings.Repeat("0", seg.frac))[1:])
		case seg.def == nil:
			b.WriteString(seg.lit)
		case seg.def.native:
			b.WriteString(t.Format(seg.def.layout))
		default:
			b.WriteString(g.Format(seg.def.tok))
		}
	}
	return b.String()
}

// Parse compiles format and parses s with it.
func Parse(format, s string) (time.Time, error) {
	l, err := Compile(format)
	if err != nil {
		return time.Time{}, err
	}
	return l.Parse(s)
}

// Format compiles format and renders t with it.
func Format(format string, t time.Time) (string, error) {
	l, err := Compile(format)
	if err != nil {
		return "", err
	}
	return l.Format(t), nil
}
