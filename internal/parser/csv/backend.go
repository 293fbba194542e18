package csv

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
	storage.Register("csv", Backend{Comma: ','}, ".csv")
	storage.Register("tsv", Backend{Comma: '\t'}, ".tsv")
}

// Backend serves delimited files.
type Backend struct {
	// Comma is the default delimiter; the "delimiter" option overrides it.
	Comma rune
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
func (b Backend) Decode(r io.Reader, _ storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	return NewReader(r, FromConfigOptions(opts.Options, b.Comma))
}

// Write implements storage.Backend.
func (b Backend) Write(ctx context.Context, _ *storage.Session, loc storage.Location, recs []*records.Record, opts storage.WriteOptions) error {
	wo := WriterOptions{
		Comma:          opts.Options.Rune(OptDelimiter, b.Comma),
		LineTerminator: opts.LineTerminator,
	}
	return file.NewLocal(loc.Path).Create(ctx, func(w io.Writer) error {
		return Write(w, recs, wo)
	})
}
