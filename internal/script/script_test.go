package script

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/tbroadley/sandpaper/pkg/records"
)

func TestCompile_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Compile("bad", "record[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script bad")

	_, err = Compile("stmt", "x = 1")
	assert.Error(t, err, "statements are not expressions")
}

func TestCompute_ExpressionForms(t *testing.T) {
	t.Parallel()

	rec := records.Of("age", int64(36))
	tests := []struct {
		name, src string
		want      any
	}{
		{"conditional", `"adult" if record["age"] >= 18 else "minor"`, "adult"},
		{"lambda", `(lambda n: n * 2)(record["age"])`, int64(72)},
		{"comprehension", `[n for n in range(3) if n != 1]`, []any{int64(0), int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.name, tt.src)
			require.NoError(t, err)
			got, err := e.Compute(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicate(t *testing.T) {
	t.Parallel()

	rec := records.Of("kind", "score", "value", int64(4), "name", "ada")
	tests := []struct {
		name   string
		src    string
		column string
		want   bool
	}{
		{"column name", `column == "name"`, "name", true},
		{"column name mismatch", `column == "name"`, "kind", false},
		{"value comparison", `value > 3`, "value", true},
		{"other field", `record["kind"] == "score" and column != "kind"`, "value", true},
		{"membership", `"missing" in record`, "name", false},
		{"truthiness", `value`, "name", true},
		{"string method", `value.startswith("a")`, "name", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.name, tt.src)
			require.NoError(t, err)
			got, err := e.Predicate(rec, tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicate_RuntimeError(t *testing.T) {
	t.Parallel()

	e, err := Compile("p", `record["nope"] == 1`)
	require.NoError(t, err)
	_, err = e.Predicate(records.Of("a", int64(1)), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script p")
}

func TestCompute(t *testing.T) {
	t.Parallel()

	rec := records.Of("first", "Ada", "last", "Lovelace", "age", int64(36), "score", 1.5, "ok", true, "gone", nil)
	tests := []struct {
		src  string
		want any
	}{
		{`record["first"] + " " + record["last"]`, "Ada Lovelace"},
		{`record["age"] >= 18`, true},
		{`record["age"] + 1`, int64(37)},
		{`record["score"] * 2`, 3.0},
		{`record["gone"]`, nil},
		{`value`, nil},
		{`column`, ""},
		{`list(record.keys())[:2]`, []any{"first", "last"}},
		{`{"n": record["age"]}`, map[string]any{"n": int64(36)}},
		{`(1, "a")`, []any{int64(1), "a"}},
		{`not record["ok"]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Compile("c", tt.src)
			require.NoError(t, err)
			got, err := e.Compute(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordIsReadOnly(t *testing.T) {
	t.Parallel()

	e, err := Compile("m", `record.pop("a")`)
	require.NoError(t, err)
	rec := records.Of("a", int64(1))
	_, err = e.Compute(rec)
	require.Error(t, err)
	assert.True(t, rec.Has("a"))
}

func TestStepLimit(t *testing.T) {
	t.Parallel()

	e, err := Compile("loop", `[x for x in range(100000000)]`)
	require.NoError(t, err)
	_, err = e.Compute(records.Of())
	assert.Error(t, err)
}

func TestFromGo(t *testing.T) {
	t.Parallel()

	ts := time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)
	v, err := FromGo(ts)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("2020-05-01 10:00:00"), v)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)

	e, err := Compile("e", `1`)
	require.NoError(t, err)
	_, err = e.Compute(records.Of("bad", struct{}{}))
	assert.ErrorContains(t, err, `column "bad"`)
}
