package transformer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbroadley/sandpaper/internal/filter"
	"github.com/tbroadley/sandpaper/pkg/records"
)

/*
identityTransformer is a no-op transformer used in tests/benchmarks.
It returns the input record without allocating or modifying it.
*/
type identityTransformer struct{}

func (identityTransformer) Apply(in *records.Record) (*records.Record, error) { return in, nil }

/*
counterTransformer appends its id to *calls whenever Apply is invoked. Used to
verify that each transformer in the chain is called exactly once and in order.
*/
type counterTransformer struct {
	id    int
	calls *[]int
}

func (t counterTransformer) Apply(in *records.Record) (*records.Record, error) {
	*t.calls = append(*t.calls, t.id)
	return in, nil
}

func upperValue(rec *records.Record, col string) (any, error) {
	v, _ := rec.Get(col)
	if s, ok := v.(string); ok {
		return strings.ToUpper(s), nil
	}
	return v, nil
}

func mustFilter(t testing.TB, s filter.Spec) *filter.Filter {
	t.Helper()
	f, err := filter.Compile(s)
	require.NoError(t, err)
	return f
}

func TestChainApply_Order(t *testing.T) {
	var calls []int
	c := Chain{
		counterTransformer{id: 1, calls: &calls},
		counterTransformer{id: 2, calls: &calls},
		counterTransformer{id: 3, calls: &calls},
	}
	_, err := c.Apply(records.Of("a", 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestChainApply_NilAndEmptyChain(t *testing.T) {
	rec := records.Of("a", 1)
	for _, c := range []Chain{nil, {}} {
		out, err := c.Apply(rec)
		require.NoError(t, err)
		assert.Same(t, rec, out)
	}
}

func TestChainApply_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls []int
	c := Chain{
		RecordStep{Name: "fail", Fn: func(*records.Record) (*records.Record, error) { return nil, boom }},
		counterTransformer{id: 2, calls: &calls},
	}
	_, err := c.Apply(records.Of("a", 1))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fail")
	assert.Empty(t, calls)
}

func TestValueStep_FilterScopesColumns(t *testing.T) {
	s := ValueStep{Name: "upper", Filter: mustFilter(t, filter.Spec{Column: "^name$"}), Fn: upperValue}

	out, err := s.Apply(records.Of("name", "ada", "city", "london", "age", int64(36)))
	require.NoError(t, err)
	assert.True(t, records.Of("name", "ADA", "city", "london", "age", int64(36)).Equal(out))
}

func TestValueStep_NilFilterVisitsAll(t *testing.T) {
	s := ValueStep{Name: "upper", Fn: upperValue}
	out, err := s.Apply(records.Of("a", "x", "b", "y"))
	require.NoError(t, err)
	assert.True(t, records.Of("a", "X", "b", "Y").Equal(out))
}

func TestValueStep_FilterSeesRewrittenValues(t *testing.T) {
	// "b" is only visited once "a" has already been upper-cased by this step.
	pred := func(rec *records.Record, col string) (bool, error) {
		if col == "a" {
			return true, nil
		}
		v, _ := rec.Get("a")
		return v == "A", nil
	}
	s := ValueStep{Name: "upper", Filter: mustFilter(t, filter.Spec{Predicate: pred}), Fn: upperValue}

	out, err := s.Apply(records.Of("a", "a", "b", "b"))
	require.NoError(t, err)
	assert.True(t, records.Of("a", "A", "b", "B").Equal(out), out.String())
}

func TestValueStep_ErrorNamesColumn(t *testing.T) {
	s := ValueStep{Name: "bad", Fn: func(*records.Record, string) (any, error) { return nil, errors.New("nope") }}
	_, err := s.Apply(records.Of("col", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `bad on column "col"`)
}

func TestRecordStep_ReceivesCopy(t *testing.T) {
	in := records.Of("a", 1)
	s := RecordStep{Name: "add", Fn: func(r *records.Record) (*records.Record, error) {
		r.Set("b", 2)
		return r, nil
	}}
	out, err := s.Apply(in)
	require.NoError(t, err)
	assert.False(t, in.Has("b"))
	assert.True(t, out.Has("b"))
}

func TestRecordStep_NilResultIsEmptyRecord(t *testing.T) {
	s := RecordStep{Name: "drop", Fn: func(*records.Record) (*records.Record, error) { return nil, nil }}
	out, err := s.Apply(records.Of("a", 1))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 0, out.Len())
}

func BenchmarkChain_Identity_10(b *testing.B) {
	c := make(Chain, 10)
	for i := range c {
		c[i] = identityTransformer{}
	}
	rec := records.Of("a", 1, "b", "x")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = c.Apply(rec)
	}
}

func BenchmarkValueStep_Upper(b *testing.B) {
	s := ValueStep{Name: "upper", Fn: upperValue}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = s.Apply(records.Of("a", "x", "b", "y", "c", int64(1)))
	}
}
