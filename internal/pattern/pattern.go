// Package pattern wraps regexp with "match at start of string" semantics and
// capture extraction in the shape the rule library needs: positional groups
// plus a name -> group map.
package pattern

import (
	"fmt"
	"regexp"
)

// Pattern is a compiled expression anchored at the start of the input. It
// does not have to consume the whole input.
type Pattern struct {
	src string
	re  *regexp.Regexp
}

// Compile compiles src anchored at the start of the string.
func Compile(src string) (*Pattern, error) {
	re, err := regexp.Compile(`^(?:` + src + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", src, err)
	}
	return &Pattern{src: src, re: re}, nil
}

// String returns the source the pattern was compiled from.
func (p *Pattern) String() string { return p.src }

// MatchString reports whether s matches at its start.
func (p *Pattern) MatchString(s string) bool { return p.re.MatchString(s) }

// Match holds the captures of a successful match. Groups[i] is capture i+1;
// a group that did not participate is "" with Valid[i] false.
type Match struct {
	Groups []string
	Valid  []bool
	Named  map[string]string
}

// Match returns the captures of s, or nil when s does not match.
func (p *Pattern) Match(s string) *Match {
	loc := p.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil
	}
	n := len(loc)/2 - 1
	m := &Match{
		Groups: make([]string, n),
		Valid:  make([]bool, n),
		Named:  map[string]string{},
	}
	names := p.re.SubexpNames()
	for i := 0; i < n; i++ {
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		if start >= 0 {
			m.Groups[i] = s[start:end]
			m.Valid[i] = true
		}
		if name := names[i+1]; name != "" {
			m.Named[name] = m.Groups[i]
		}
	}
	return m
}
