package json

import (
	"context"
	"fmt"
	"io"

	"github.com/tbroadley/sandpaper/internal/datasource/file"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

func init() {
	storage.Register("json", Backend{}, ".json")
	storage.Register("ndjson", Backend{Lines: true}, ".jsonl", ".ndjson")
}

// Backend serves JSON files.
type Backend struct {
	// Lines selects newline-delimited JSON.
	Lines bool
}

// Open implements storage.Backend.
func (b Backend) Open(ctx context.Context, sess *storage.Session, loc storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	rc, err := file.NewLocal(loc.Path).Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	sess.Track(rc)
	return b.Decode(rc, loc, opts)
}

// Decode implements storage.Decoder.
func (b Backend) Decode(r io.Reader, loc storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	infer := parser.InferFrom(opts.Options)
	if b.Lines {
		return NewLineDecoder(r, infer), nil
	}
	return NewDecoder(r, loc.Sheet, infer)
}

// Write implements storage.Backend.
func (b Backend) Write(ctx context.Context, _ *storage.Session, loc storage.Location, recs []*records.Record, opts storage.WriteOptions) error {
	wo := WriterOptions{Sheet: loc.Sheet, LineTerminator: opts.LineTerminator}
	return file.NewLocal(loc.Path).Create(ctx, func(w io.Writer) error {
		if b.Lines {
			return WriteLines(w, recs, wo)
		}
		return Write(w, recs, wo)
	})
}
