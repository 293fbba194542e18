package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// fakeBackend is a minimal Backend implementation for tests.
type fakeBackend struct {
	id      int
	written []*records.Record
}

func (f *fakeBackend) Open(context.Context, *Session, Location, ReadOptions) (parser.RecordReader, error) {
	return parser.Slice(nil), nil
}

func (f *fakeBackend) Write(_ context.Context, _ *Session, _ Location, recs []*records.Record, _ WriteOptions) error {
	f.written = recs
	return nil
}

// TestRegisterAndLookup_Success verifies that registering a backend enables
// Lookup and ListKinds to see it.
func TestRegisterAndLookup_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	fb := &fakeBackend{}
	Register(kind, fb)

	b, err := Lookup(kind)
	require.NoError(t, err)
	assert.Same(t, fb, b)
	assert.Contains(t, ListKinds(), kind)
}

// TestLookup_Unsupported verifies that unsupported kinds return a helpful error.
func TestLookup_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := Lookup("does-not-exist")
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, "unsupported storage: storage.kind=does-not-exist", err.Error())
}

// TestRegister_Override verifies that re-registering a kind replaces the
// previous backend.
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	Register(kind, &fakeBackend{id: 1}, ".ovr1")
	Register(kind, &fakeBackend{id: 2}, ".ovr2")

	b, err := Lookup(kind)
	require.NoError(t, err)
	assert.Equal(t, 2, b.(*fakeBackend).id)

	// Both matchers still point at the kind, and so at the newest backend.
	for _, p := range []string{"a.ovr1", "a.ovr2"} {
		_, b, err := Locate(p)
		require.NoError(t, err, p)
		assert.Equal(t, 2, b.(*fakeBackend).id, p)
	}
}

// TestListKinds_Snapshot checks ListKinds returns a copy.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", &fakeBackend{})

	a := ListKinds()
	require.NotEmpty(t, a)
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

func TestLocate(t *testing.T) {
	t.Parallel()

	Register("locfile", &fakeBackend{}, ".locf", ".LOCG")
	Register("locdb", &fakeBackend{}, "locdb://", "locdb2://")

	tests := []struct {
		name      string
		raw       string
		wantKind  string
		wantPath  string
		wantSheet string
		wantErr   bool
	}{
		{name: "extension", raw: "dir/data.locf", wantKind: "locfile", wantPath: "dir/data.locf"},
		{name: "extension case-insensitive", raw: "DATA.LOCF", wantKind: "locfile", wantPath: "DATA.LOCF"},
		{name: "matcher normalized", raw: "x.locg", wantKind: "locfile", wantPath: "x.locg"},
		{
			name:      "scheme with table",
			raw:       "locdb://u:p@host:5432/db?sslmode=disable&table=people",
			wantKind:  "locdb",
			wantPath:  "locdb://u:p@host:5432/db?sslmode=disable",
			wantSheet: "people",
		},
		{name: "second scheme with sheet", raw: "locdb2://host/db?sheet=s1", wantKind: "locdb", wantPath: "locdb2://host/db", wantSheet: "s1"},
		{name: "unknown extension", raw: "data.unknownext", wantErr: true},
		{name: "no extension", raw: "README", wantErr: true},
		{name: "unknown scheme", raw: "nope://x", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			loc, b, err := Locate(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, b)
			assert.Equal(t, tt.raw, loc.Raw)
			assert.Equal(t, tt.wantKind, loc.Kind)
			assert.Equal(t, tt.wantPath, loc.Path)
			assert.Equal(t, tt.wantSheet, loc.Sheet)
		})
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestSession_CloseOrderAndErrors(t *testing.T) {
	t.Parallel()

	var order []int
	errA := errors.New("a failed")
	errC := errors.New("c failed")

	s := NewSession()
	s.Track(closerFunc(func() error { order = append(order, 1); return errA }))
	s.TrackFunc(func() error { order = append(order, 2); return nil })
	s.TrackFunc(func() error { order = append(order, 3); return errC })
	s.Track(nil)

	err := s.Close()
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)

	// Idempotent.
	require.NoError(t, s.Close())
	assert.Len(t, order, 3)

	// Late registrations run immediately.
	late := false
	s.TrackFunc(func() error { late = true; return nil })
	assert.True(t, late)
}

func TestSession_ZeroValue(t *testing.T) {
	t.Parallel()
	var s Session
	assert.NoError(t, s.Close())
}
