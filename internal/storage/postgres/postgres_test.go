package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

func TestRegistered(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"postgres://u:p@localhost:5432/db?sslmode=disable&table=public.people",
		"postgresql://u@localhost/db?sheet=people",
	} {
		loc, b, err := storage.Locate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "postgres", loc.Kind)
		assert.IsType(t, Backend{}, b)
		assert.NotEmpty(t, loc.Sheet)
	}
}

func TestSplitFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"people", pgx.Identifier{"people"}},
		{"public.people", pgx.Identifier{"public", "people"}},
		{" public . people ", pgx.Identifier{"public", "people"}},
		{"a..b", pgx.Identifier{"a", "b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitFQN(tt.in), tt.in)
	}
}

func TestTableRequired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := storage.NewSession()
	defer func() { _ = sess.Close() }()
	loc := storage.Location{Raw: "postgres://localhost/db", Path: "postgres://localhost/db"}

	_, err := Backend{}.Open(ctx, sess, loc, storage.ReadOptions{})
	assert.ErrorContains(t, err, "table required")

	err = Backend{}.Write(ctx, sess, loc, []*records.Record{records.Of("a", int64(1))}, storage.WriteOptions{})
	assert.ErrorContains(t, err, "table required")
}

func TestWrite_NoColumnsIsNoop(t *testing.T) {
	t.Parallel()

	// No connection is attempted: the DSN below would fail to parse.
	loc := storage.Location{Raw: "x", Path: "postgres://%zz", Sheet: "t"}
	err := Backend{}.Write(context.Background(), storage.NewSession(), loc, nil, storage.WriteOptions{})
	assert.NoError(t, err)
}

func TestWrite_BadDSN(t *testing.T) {
	t.Parallel()

	loc := storage.Location{Raw: "x", Path: "postgres://%zz", Sheet: "t"}
	err := Backend{}.Write(context.Background(), storage.NewSession(), loc, []*records.Record{records.Of("a", "x")}, storage.WriteOptions{})
	assert.ErrorContains(t, err, "postgres dsn")
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int32", int32(7), int64(7)},
		{"float32", float32(0.5), 0.5},
		{"text", "x", "x"},
		{"nil", nil, nil},
		{"uuid", [16]byte(id), id.String()},
		{"whole numeric", pgtype.Numeric{Int: big.NewInt(42), Exp: 0, Valid: true}, int64(42)},
		{"fractional numeric", pgtype.Numeric{Int: big.NewInt(125), Exp: -2, Valid: true}, 1.25},
		{"null numeric", pgtype.Numeric{}, nil},
	}
	for _, tt := range tests {
		got, err := normalize(tt.in)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
