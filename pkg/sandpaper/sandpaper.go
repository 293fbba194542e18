// Package sandpaper normalizes tabular files with a chain of rules.
//
// A SandPaper is an ordered list of rules built with chained calls:
//
//	sp := sandpaper.New().
//		Strip("").
//		Lower(sandpaper.ColumnFilter(`^email$`)).
//		TranslateDate(sandpaper.Pairs("YYYY-MM-DD", "YYYY"), sandpaper.ColumnFilter(`.*_date$`)).
//		AddColumns(sandpaper.Template("full_name", "{first} {last}"))
//	if _, err := sp.Apply(ctx, "in.csv", "out.csv"); err != nil {
//		...
//	}
//
// Value rules rewrite individual cells selected by optional filters; record
// rules restructure the whole record. Rules run in registration order for
// every record of the source. The rule list is only read during Apply, so a
// finished SandPaper may be applied to many files concurrently; registering
// rules while an Apply is running is not supported.
package sandpaper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

var (
	// ErrInvalidName is returned for an empty SandPaper name.
	ErrInvalidName = errors.New("sandpaper: name must be a non-empty string")
	// ErrInvalidRule wraps configuration errors found while registering rules.
	ErrInvalidRule = errors.New("sandpaper: invalid rule")
)

// SandPaper is an ordered rule-set. The zero value is an empty, unnamed
// rule-set ready to use.
type SandPaper struct {
	name  string
	rules []rule
	err   error
}

// New returns an empty, unnamed SandPaper.
func New() *SandPaper { return &SandPaper{} }

// NewNamed returns an empty SandPaper with a descriptive name.
func NewNamed(name string) (*SandPaper, error) {
	s := New()
	if err := s.SetName(name); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the descriptive name, or UID when none was set.
func (s *SandPaper) Name() string {
	if s.name == "" {
		return s.UID()
	}
	return s.name
}

// SetName sets the descriptive name.
func (s *SandPaper) SetName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	s.name = name
	return nil
}

// UID is a hex digest over the signatures of all registered rules. It changes
// whenever a rule is registered and does not depend on the name.
func (s *SandPaper) UID() string {
	h := s.digest()
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// Hash returns the low 64 bits of the UID digest.
func (s *SandPaper) Hash() uint64 { return s.digest().Lo }

func (s *SandPaper) digest() xxh3.Uint128 {
	var b strings.Builder
	for _, r := range s.rules {
		b.WriteString(r.signature())
		b.WriteByte('\n')
	}
	return xxh3.HashString128(b.String())
}

// Equal reports whether both rule-sets hold the same rule sequence. Names are
// not compared.
func (s *SandPaper) Equal(o *SandPaper) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.digest() == o.digest()
}

// String renders the rule-set as <SandPaper (uid) "name">.
func (s *SandPaper) String() string {
	return fmt.Sprintf("<SandPaper (%s) %q>", s.UID(), s.Name())
}

// Err returns the first configuration error recorded by a registration, if
// any. Apply refuses to run while it is set.
func (s *SandPaper) Err() error { return s.err }

// Len returns the number of registered rules.
func (s *SandPaper) Len() int { return len(s.rules) }

// RuleInfo describes one registered rule.
type RuleInfo struct {
	Index     int
	Name      string
	Kind      Kind
	Signature string
}

// Rules returns a description of every registered rule in order.
func (s *SandPaper) Rules() []RuleInfo {
	out := make([]RuleInfo, len(s.rules))
	for i, r := range s.rules {
		out[i] = RuleInfo{Index: i, Name: r.name, Kind: r.kind, Signature: r.signature()}
	}
	return out
}

func (s *SandPaper) fail(name string, err error) *SandPaper {
	if s.err == nil {
		s.err = fmt.Errorf("%w: rule %d (%s): %w", ErrInvalidRule, len(s.rules), name, err)
	}
	return s
}
