// Package storage contains the backend-agnostic contracts for reading and
// writing tables, plus the registry that maps locations to backends.
//
// Backends (csv, json, sqlite, postgres, ...) register themselves at init
// time. Callers resolve a location with Locate and stay backend-agnostic.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tbroadley/sandpaper/internal/config"
	"github.com/tbroadley/sandpaper/internal/parser"
	"github.com/tbroadley/sandpaper/pkg/records"
)

// ErrUnsupported is returned when no backend serves a kind or location.
var ErrUnsupported = errors.New("unsupported storage")

// Location is a resolved table location.
type Location struct {
	// Raw is the location exactly as given by the caller.
	Raw string
	// Kind is the registered backend kind, e.g. "csv" or "postgres".
	Kind string
	// Path is a file path or, for URL locations, the connection string with
	// the table/sheet query parameters removed.
	Path string
	// Sheet selects a table inside multi-table sources (sqlite tables,
	// JSON books, postgres tables). Empty means the backend default.
	Sheet string
}

// ReadOptions are passed to Backend.Open.
type ReadOptions struct {
	Options config.Options
}

// WriteOptions are passed to Backend.Write.
type WriteOptions struct {
	// LineTerminator separates rows in text formats.
	LineTerminator string
	Options        config.Options
}

// Backend reads and writes tables of one kind.
type Backend interface {
	// Open returns a reader over loc. Resources that must outlive Open (file
	// handles, connections) are tracked on sess.
	Open(ctx context.Context, sess *Session, loc Location, opts ReadOptions) (parser.RecordReader, error)
	// Write replaces the table at loc with recs.
	Write(ctx context.Context, sess *Session, loc Location, recs []*records.Record, opts WriteOptions) error
}

// Decoder is implemented by backends whose tables are plain byte streams, so
// the same format can be read from a non-file source such as an HTTP URL.
type Decoder interface {
	Decode(r io.Reader, loc Location, opts ReadOptions) (parser.RecordReader, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
	// matchers maps a lowercase file extension (".csv") or URL scheme
	// ("postgres") to a kind.
	matchers = map[string]string{}
)

// Register registers (or replaces) the backend for kind. Each matcher is a
// file extension starting with "." or a URL scheme ending in "://".
func Register(kind string, b Backend, match ...string) {
	mu.Lock()
	defer mu.Unlock()
	backends[kind] = b
	for _, m := range match {
		matchers[normalizeMatcher(m)] = kind
	}
}

// Lookup returns the backend registered for kind.
func Lookup(kind string) (Backend, error) {
	mu.RLock()
	b, ok := backends[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: storage.kind=%s", ErrUnsupported, kind)
	}
	return b, nil
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Locate resolves raw to a Location and its backend.
//
// URL locations ("postgres://...") are matched by scheme; a "table" or
// "sheet" query parameter becomes Location.Sheet and is removed from Path.
// Anything else is a file path matched by extension, case-insensitively.
func Locate(raw string) (Location, Backend, error) {
	loc := Location{Raw: raw, Path: raw}

	var key string
	if i := strings.Index(raw, "://"); i > 0 {
		key = normalizeMatcher(raw[:i+3])
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, nil, fmt.Errorf("parse location %q: %w", raw, err)
		}
		q := u.Query()
		for _, p := range []string{"table", "sheet"} {
			if v := q.Get(p); v != "" && loc.Sheet == "" {
				loc.Sheet = v
			}
			q.Del(p)
		}
		u.RawQuery = q.Encode()
		loc.Path = u.String()
	} else {
		key = normalizeMatcher(filepath.Ext(raw))
	}

	mu.RLock()
	kind, ok := matchers[key]
	var b Backend
	if ok {
		b, ok = backends[kind]
	}
	mu.RUnlock()
	if !ok || key == "" {
		return Location{}, nil, fmt.Errorf("%w: no backend for %q", ErrUnsupported, raw)
	}
	loc.Kind = kind
	return loc, b, nil
}

func normalizeMatcher(m string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(m)), "://")
}
