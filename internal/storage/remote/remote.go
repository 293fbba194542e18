// Package remote reads tables served over HTTP. The format comes from the
// "format" reader option, else from the URL path extension, else from the
// first bytes of the body. Remote locations are read-only.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/tbroadley/sandpaper/internal/datasource/httpds"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/internal/storage"
	"github.com/tbroadley/sandpaper/pkg/records"
)

func init() {
	storage.Register("http", Backend{}, "http://", "https://")
}

// Reader option keys.
const (
	OptFormat             = "format"
	OptRetries            = "http_retries"
	OptTimeoutSeconds     = "http_timeout_seconds"
	OptInsecureSkipVerify = "insecure_skip_verify"
)

// sniffBytes is how much of the body is fetched to guess the format.
const sniffBytes = 512

// Backend serves http:// and https:// sources.
type Backend struct {
	// Transport overrides the HTTP transport; nil uses the default.
	Transport http.RoundTripper
}

// Open implements storage.Backend.
func (b Backend) Open(ctx context.Context, sess *storage.Session, loc storage.Location, opts storage.ReadOptions) (parser.RecordReader, error) {
	client := httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(opts.Options.Int(OptTimeoutSeconds, 30)) * time.Second,
		MaxRetries:         opts.Options.Int(OptRetries, 0),
		InsecureSkipVerify: opts.Options.Bool(OptInsecureSkipVerify, false),
		Transport:          b.Transport,
	})

	kind, err := formatOf(ctx, client, loc, opts)
	if err != nil {
		return nil, err
	}
	be, err := storage.Lookup(kind)
	if err != nil {
		return nil, err
	}
	dec, ok := be.(storage.Decoder)
	if !ok {
		return nil, fmt.Errorf("%w: %s tables cannot be read over http", storage.ErrUnsupported, kind)
	}

	rc, err := httpds.Source{Client: client, URL: loc.Path}.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	sess.Track(rc)
	return dec.Decode(rc, loc, opts)
}

// Write implements storage.Backend.
func (Backend) Write(_ context.Context, _ *storage.Session, loc storage.Location, _ []*records.Record, _ storage.WriteOptions) error {
	return fmt.Errorf("%w: %s is read-only", storage.ErrUnsupported, loc.Raw)
}

func formatOf(ctx context.Context, client *httpds.Client, loc storage.Location, opts storage.ReadOptions) (string, error) {
	if f := opts.Options.String(OptFormat, ""); f != "" {
		return f, nil
	}
	u, err := url.Parse(loc.Path)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", loc.Raw, err)
	}
	if base := path.Base(u.Path); path.Ext(base) != "" {
		if l, _, err := storage.Locate(base); err == nil {
			return l.Kind, nil
		}
	}
	head, err := client.Peek(ctx, loc.Path, sniffBytes)
	if err != nil {
		return "", fmt.Errorf("sniff %s: %w", loc.Raw, err)
	}
	return Sniff(head), nil
}

// Sniff guesses the format of a table from its first bytes: "xlsx", "json",
// "ndjson", "tsv" or "csv".
func Sniff(head []byte) string {
	// Zip container; the only one registered is the xlsx workbook.
	if bytes.HasPrefix(head, []byte("PK\x03\x04")) {
		return "xlsx"
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimLeft(head, " \t\r\n")
	first, rest, _ := bytes.Cut(head, []byte("\n"))
	first = bytes.TrimSpace(first)

	switch {
	case len(head) == 0:
		return "csv"
	case head[0] == '[':
		return "json"
	case head[0] == '{':
		if bytes.HasSuffix(first, []byte("}")) && len(bytes.TrimSpace(rest)) > 0 {
			return "ndjson"
		}
		return "json"
	case bytes.IndexByte(first, '\t') >= 0 && bytes.IndexByte(first, ',') < 0:
		return "tsv"
	default:
		return "csv"
	}
}
