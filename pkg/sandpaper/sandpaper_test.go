package sandpaper

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbroadley/sandpaper/pkg/records"
)

func TestIdentity_SameRulesAreEqual(t *testing.T) {
	t.Parallel()

	build := func() *SandPaper {
		return New().
			Strip("").
			Lower(ColumnFilter("^email$")).
			TranslateDate(Pairs("YYYY-MM-DD", "YYYY"), ColumnFilter(".*_date$")).
			AddColumns(Literal("source", "import"), Template("full", "{first} {last}"))
	}
	a, b := build(), build()
	require.NoError(t, a.Err())

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.UID(), b.UID())
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), a.UID())
}

func TestIdentity_NameIsExcluded(t *testing.T) {
	t.Parallel()

	a, err := NewNamed("people")
	require.NoError(t, err)
	b, err := NewNamed("other")
	require.NoError(t, err)
	a.Upper()
	b.Upper()

	assert.True(t, a.Equal(b))
	assert.Equal(t, "people", a.Name())
	assert.Equal(t, a.UID(), New().Upper().Name())
}

func TestIdentity_ChangesWithRules(t *testing.T) {
	t.Parallel()

	s := New()
	empty := s.UID()
	assert.Equal(t, empty, New().UID())

	s.Lower()
	afterLower := s.UID()
	assert.NotEqual(t, empty, afterLower)

	s.Lower()
	assert.NotEqual(t, afterLower, s.UID(), "repeated registration is a new step")

	tests := []struct {
		name string
		a, b *SandPaper
	}{
		{"order", New().Lower().Upper(), New().Upper().Lower()},
		{"args", New().Strip("x"), New().Strip("y")},
		{"filter", New().Lower(ColumnFilter("a")), New().Lower(ColumnFilter("b"))},
		{"value filter", New().Lower(), New().Lower(ValueFilter("a"))},
		{"amount", New().Increment(1), New().Increment(2)},
		{"replace pairs", New().Replace(Pairs("a", "b", "c", "d")), New().Replace(Pairs("c", "d", "a", "b"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.a.Equal(tt.b))
			assert.NotEqual(t, tt.a.Hash(), tt.b.Hash())
		})
	}
}

func TestEqual_Nil(t *testing.T) {
	t.Parallel()

	var a *SandPaper
	assert.True(t, a.Equal(nil))
	assert.False(t, New().Equal(nil))
}

func TestString(t *testing.T) {
	t.Parallel()

	s, err := NewNamed("people")
	require.NoError(t, err)
	assert.Equal(t, `<SandPaper (`+s.UID()+`) "people">`, s.String())
}

func TestSetName(t *testing.T) {
	t.Parallel()

	_, err := NewNamed("")
	assert.ErrorIs(t, err, ErrInvalidName)

	s := New()
	assert.ErrorIs(t, s.SetName(""), ErrInvalidName)
	require.NoError(t, s.SetName("x"))
	assert.Equal(t, "x", s.Name())
}

func TestRules(t *testing.T) {
	t.Parallel()

	s := New().
		Strip("").
		Lower(ColumnFilter("^email$"), ValueFilter("[A-Z]")).
		RemoveColumns("tmp").
		OrderColumns([]string{"b", "a"}, true)

	got := s.Rules()
	require.Len(t, got, 4)
	assert.Equal(t, 4, s.Len())

	assert.Equal(t, RuleInfo{Index: 0, Name: "strip", Kind: ValueKind, Signature: `strip([""], {})`}, got[0])
	assert.Equal(t, `lower([], {column_filter: "^email$", value_filter: "[A-Z]"})`, got[1].Signature)
	assert.Equal(t, RecordKind, got[2].Kind)
	assert.Equal(t, `remove_columns([["tmp"]], {})`, got[2].Signature)
	assert.Equal(t, `order_columns([["b", "a"], true], {})`, got[3].Signature)
	assert.Equal(t, "record", got[3].Kind.String())
}

func TestSignature_CallableFilter(t *testing.T) {
	t.Parallel()

	s := New().Upper(CallableFilterAs("is_name", func(_ *records.Record, column string) (bool, error) {
		return column == "name", nil
	}))
	assert.Equal(t, `upper([], {callable_filter: <is_name>})`, s.Rules()[0].Signature)

	named := New().Upper(CallableFilter(func(_ *records.Record, column string) bool { return true }))
	assert.True(t, strings.HasPrefix(named.Rules()[0].Signature, "upper([], {callable_filter: <"))

	assert.Equal(t, `upper([], {})`, New().Upper(CallableFilter(nil)).Rules()[0].Signature)
}

func TestRegistrationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    *SandPaper
		want string
	}{
		{"bad translate pattern", New().TranslateText(Pairs("(", "x")), "rule 0 (translate_text)"},
		{"no translations", New().Lower().TranslateText(nil), "rule 1 (translate_text)"},
		{"no date translations", New().TranslateDate(nil), "translate_date"},
		{"bad column filter", New().Upper(ColumnFilter("[")), "rule 0 (upper)"},
		{"nil computed", New().AddColumns(ComputedAs("x", "f", nil)), "add_columns"},
		{"bad template", New().AddColumns(Template("x", "{unclosed")), "add_columns"},
		{"bad coerce type", New().Coerce("decimal", ""), "coerce"},
		{"empty rule name", New().RecordRule("", func(r *records.Record) (*records.Record, error) { return r, nil }), "empty rule name"},
		{"nil value fn", New().ValueRule("custom", nil, nil), "nil function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Err()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRule))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistrationErrors_FirstErrorWins(t *testing.T) {
	t.Parallel()

	s := New().Upper(ColumnFilter("[")).TranslateText(nil).Lower()
	assert.Contains(t, s.Err().Error(), "(upper)")
	assert.Equal(t, 1, s.Len(), "failed registrations add no step")
}
