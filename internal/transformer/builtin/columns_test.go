package builtin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbroadley/sandpaper/pkg/records"
)

func mustTemplate(t *testing.T, col, tmpl string) Addition {
	t.Helper()
	a, err := Template(col, tmpl)
	require.NoError(t, err)
	return a
}

func TestAddColumns(t *testing.T) {
	upperFirst, err := Computed("initial", "initial", func(r *records.Record) (any, error) {
		v, _ := r.Get("first")
		return records.String(v)[:1], nil
	})
	require.NoError(t, err)

	rec := records.Of("first", "Ada", "last", "Lovelace", "C", "keep")
	out, err := AddColumns(rec, []Addition{
		Literal("C", "v"),
		Literal("source", "import"),
		mustTemplate(t, "full", "{first} {last}"),
		upperFirst,
		mustTemplate(t, "label", "{full} ({initial})"),
	})
	require.NoError(t, err)

	want := records.Of(
		"first", "Ada", "last", "Lovelace", "C", "keep",
		"source", "import", "full", "Ada Lovelace", "initial", "A", "label", "Ada Lovelace (A)",
	)
	assert.True(t, want.Equal(out), out.String())
}

func TestAddColumns_NewColumn(t *testing.T) {
	out, err := AddColumns(records.Of("a", 1), []Addition{Literal("C", "v")})
	require.NoError(t, err)
	v, ok := out.Get("C")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestAddColumns_Errors(t *testing.T) {
	_, err := Template("x", "{unclosed")
	assert.Error(t, err)

	_, err = Computed("x", "nil", nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	fail, err := Computed("x", "fail", func(*records.Record) (any, error) { return nil, boom })
	require.NoError(t, err)
	_, err = AddColumns(records.New(0), []Addition{fail})
	assert.ErrorIs(t, err, boom)

	_, err = AddColumns(records.New(0), []Addition{mustTemplate(t, "y", "{nope}")})
	assert.Error(t, err)
}

func TestAddition_String(t *testing.T) {
	c, err := Computed("c", "starlark:1+1", func(*records.Record) (any, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, `"a": "x"`, Literal("a", "x").String())
	assert.Equal(t, `"n": 1`, Literal("n", 1).String())
	assert.Equal(t, `"t": "{a}"`, mustTemplate(t, "t", "{a}").String())
	assert.Equal(t, `"c": <starlark:1+1>`, c.String())
}

func TestRemoveColumns(t *testing.T) {
	out := RemoveColumns(records.Of("a", 1, "b", 2, "c", 3), []string{"b", "missing"})
	assert.Equal(t, []string{"a", "c"}, out.Keys())
}

func TestRenameColumns(t *testing.T) {
	out := RenameColumns(records.Of("a", 1, "b", 2, "c", 3), []Pair{{"b", "B"}, {"zz", "q"}})
	assert.True(t, records.Of("a", 1, "B", 2, "c", 3).Equal(out), out.String())
}

func TestOrderColumns(t *testing.T) {
	rec := records.Of("a", 1, "b", 2, "c", 3)

	tests := []struct {
		name          string
		order         []string
		ignoreMissing bool
		want          []string
	}{
		{"listed_then_rest", []string{"b", "a"}, false, []string{"b", "a", "c"}},
		{"ignore_missing_drops_rest", []string{"b", "a"}, true, []string{"b", "a"}},
		{"absent_names_skipped", []string{"z", "c"}, false, []string{"c", "a", "b"}},
		{"empty_order", nil, false, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderColumns(rec, tt.order, tt.ignoreMissing).Keys())
		})
	}
}
