package records

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetKeepsInsertionOrder(t *testing.T) {
	r := New(0)
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, r.Keys())
	v, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestRecord_Delete(t *testing.T) {
	r := Of("a", 1, "b", 2, "c", 3)
	r.Delete("b")
	r.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, r.Keys())
	assert.False(t, r.Has("b"))
	assert.Equal(t, 2, r.Len())
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := Of("a", 1)
	c := r.Clone()
	c.Set("a", 2)
	c.Set("b", 3)

	v, _ := r.Get("a")
	assert.Equal(t, 1, v)
	assert.False(t, r.Has("b"))
}

func TestRecord_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b *Record
		want bool
	}{
		{"same", Of("a", 1, "b", "x"), Of("a", 1, "b", "x"), true},
		{"order_differs", Of("a", 1, "b", 2), Of("b", 2, "a", 1), false},
		{"value_differs", Of("a", 1), Of("a", 2), false},
		{"length_differs", Of("a", 1), Of("a", 1, "b", 2), false},
		{"both_nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestRecord_MarshalJSONPreservesOrder(t *testing.T) {
	r := Of("z", "last", "a", int64(1), "m", nil)
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":1,"m":null}`, string(b))
}

func TestOf_PanicsOnOddArguments(t *testing.T) {
	assert.Panics(t, func() { Of("a") })
	assert.Panics(t, func() { Of(1, 2) })
}

func TestString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(42), "42"},
		{1.5, "1.5"},
		{2.0, "2"},
		{true, "true"},
		{time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), "2020-05-01 00:00:00"},
		{time.Date(2020, 5, 1, 8, 30, 0, 0, time.FixedZone("X", 3600)), "2020-05-01 08:30:00+01:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, String(tt.in), "String(%#v)", tt.in)
	}
}
