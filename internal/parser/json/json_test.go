package json

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

func decodeAll(t *testing.T, r parser.RecordReader) []*records.Record {
	t.Helper()
	recs, err := parser.ReadAll(context.Background(), r)
	require.NoError(t, err)
	return recs
}

func TestDecoder_ArrayKeepsOrderAndTypes(t *testing.T) {
	t.Parallel()

	src := `[
	  {"z": "last-first", "n": 3, "f": 1.25, "ok": true, "none": null, "nested": {"b": 1, "a": [1, 2]}},
	  {"a": "x"}
	]`
	d, err := NewDecoder(strings.NewReader(src), "", parser.Infer{})
	require.NoError(t, err)
	recs := decodeAll(t, d)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"z", "n", "f", "ok", "none", "nested"}, recs[0].Keys())
	assert.Equal(t, []any{"last-first", int64(3), 1.25, true, nil, `{"b":1,"a":[1,2]}`}, recs[0].Values())
	assert.True(t, recs[1].Equal(records.Of("a", "x")))
}

func TestDecoder_Book(t *testing.T) {
	t.Parallel()

	src := `{"first": [{"a": 1}], "second": [{"b": "2020-05-01"}, {"b": "x"}]}`

	d, err := NewDecoder(strings.NewReader(src), "second", parser.Infer{Datetime: true})
	require.NoError(t, err)
	recs := decodeAll(t, d)
	require.Len(t, recs, 2)
	assert.Equal(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), recs[0].Values()[0])
	assert.Equal(t, "x", recs[1].Values()[0])

	d, err = NewDecoder(strings.NewReader(src), "", parser.Infer{})
	require.NoError(t, err)
	recs = decodeAll(t, d)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Equal(records.Of("a", int64(1))))

	_, err = NewDecoder(strings.NewReader(src), "third", parser.Infer{})
	assert.ErrorContains(t, err, `sheet "third" not found`)
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder(strings.NewReader(`42`), "", parser.Infer{})
	assert.Error(t, err)

	d, err := NewDecoder(strings.NewReader(`[{"a": 1}, 2]`), "", parser.Infer{})
	require.NoError(t, err)
	_, err = d.Next()
	require.NoError(t, err)
	_, err = d.Next()
	assert.ErrorContains(t, err, "read json record 2")
}

func TestDecoder_Empty(t *testing.T) {
	t.Parallel()
	for _, src := range []string{"", "[]", "{}"} {
		d, err := NewDecoder(strings.NewReader(src), "", parser.Infer{})
		require.NoError(t, err, src)
		assert.Empty(t, decodeAll(t, d), src)
	}
}

func TestLineDecoder(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder(strings.NewReader("{\"a\":1,\"b\":\"x\"}\n\n{\"a\":2}\n"), parser.Infer{})
	recs := decodeAll(t, d)
	require.Len(t, recs, 2)
	assert.Equal(t, []any{int64(1), "x"}, recs[0].Values())
	assert.Equal(t, []any{int64(2)}, recs[1].Values())
}

func TestWrite(t *testing.T) {
	t.Parallel()

	recs := []*records.Record{records.Of("b", int64(1), "a", "x")}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs, WriterOptions{}))
	assert.Equal(t, "[\n  {\n    \"b\": 1,\n    \"a\": \"x\"\n  }\n]\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, recs, WriterOptions{Sheet: "s", LineTerminator: "\r\n"}))
	assert.Equal(t, "{\r\n  \"s\": [\r\n    {\r\n      \"b\": 1,\r\n      \"a\": \"x\"\r\n    }\r\n  ]\r\n}\r\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, nil, WriterOptions{}))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteLines(&buf, append(recs, records.Of("a", "y\nz")), WriterOptions{LineTerminator: "\r\n"}))
	assert.Equal(t, "{\"b\":1,\"a\":\"x\"}\r\n{\"a\":\"y\\nz\"}\r\n", buf.String())
}

func TestBackend_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{"out.json", "out.ndjson", "out.JSONL"} {
		path := filepath.Join(dir, name)
		loc, b, err := storage.Locate(path)
		require.NoError(t, err, name)

		want := []*records.Record{records.Of("id", int64(1), "name", "Ada"), records.Of("id", int64(2), "name", "Bob")}
		sess := storage.NewSession()
		require.NoError(t, b.Write(ctx, sess, loc, want, storage.WriteOptions{}), name)

		rd, err := b.Open(ctx, sess, loc, storage.ReadOptions{})
		require.NoError(t, err, name)
		got := decodeAll(t, rd)
		require.NoError(t, sess.Close())

		require.Len(t, got, 2, name)
		for i := range want {
			assert.True(t, want[i].Equal(got[i]), "%s: %s", name, got[i])
		}
	}

	_, err := os.Stat(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
}
