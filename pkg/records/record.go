// Package records defines the ordered record model shared by readers,
// transformers and writers.
//
// A Record is an ordered mapping from column name to a scalar value. Column
// order is the order in which columns were first set; replacing the value of
// an existing column keeps its position.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Record is an ordered column -> value mapping. The zero value is ready to use.
type Record struct {
	keys []string
	vals map[string]any
}

// New returns an empty Record with room for n columns.
func New(n int) *Record {
	return &Record{
		keys: make([]string, 0, n),
		vals: make(map[string]any, n),
	}
}

// Of builds a Record from alternating column/value arguments, e.g.
//
//	records.Of("name", "Ada", "age", int64(36))
//
// It panics if a key is not a string or the argument count is odd.
func Of(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("records: Of called with odd number of arguments")
	}
	r := New(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("records: Of key at %d is %T, want string", i, kv[i]))
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// Len returns the number of columns.
func (r *Record) Len() int { return len(r.keys) }

// Has reports whether column k exists.
func (r *Record) Has(k string) bool {
	_, ok := r.vals[k]
	return ok
}

// Get returns the value stored under k.
func (r *Record) Get(k string) (any, bool) {
	v, ok := r.vals[k]
	return v, ok
}

// Set stores v under k. New columns are appended; existing columns keep
// their position.
func (r *Record) Set(k string, v any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.vals[k] = v
}

// Delete removes column k. Missing columns are ignored.
func (r *Record) Delete(k string) {
	if _, ok := r.vals[k]; !ok {
		return
	}
	delete(r.vals, k)
	for i, key := range r.keys {
		if key == k {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the column names in order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in column order.
func (r *Record) Values() []any {
	out := make([]any, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.vals[k]
	}
	return out
}

// Range calls fn for every column in order until fn returns false.
func (r *Record) Range(fn func(k string, v any) bool) {
	for _, k := range r.keys {
		if !fn(k, r.vals[k]) {
			return
		}
	}
}

// Clone returns a shallow copy of r.
func (r *Record) Clone() *Record {
	c := New(len(r.keys))
	for _, k := range r.keys {
		c.Set(k, r.vals[k])
	}
	return c
}

// Equal reports whether r and o hold the same columns, in the same order,
// with deeply equal values.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k {
			return false
		}
		if !reflect.DeepEqual(r.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

// String renders the record as {k: v, ...} in column order.
func (r *Record) String() string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %#v", k, r.vals[k])
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the record as a JSON object preserving column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, fmt.Errorf("records: marshal column %q: %w", k, err)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
