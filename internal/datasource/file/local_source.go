// Package file implements a local filesystem-backed data source and sink.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tbroadley/sandpaper/internal/datasource"
)

var (
	_ datasource.Source = (*Local)(nil)
	_ datasource.Sink   = (*Local)(nil)
)

// Local is a filesystem location that can be opened for reading or
// atomically replaced.
type Local struct{ path string }

// NewLocal returns a new Local bound to the provided filesystem path. The
// returned value is safe for concurrent use by multiple goroutines as long as
// the underlying path location is valid for concurrent reads.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled or its deadline exceeded at the time
//     of the call, Open returns the context error immediately without touching
//     the filesystem.
//   - Any filesystem error is wrapped with the path for context, while still
//     permitting errors.Is/As checks by callers (e.g., errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Create writes the file through write and replaces the destination only
// once write has returned successfully: bytes go to a temporary file in the
// same directory which is synced and then renamed over the path. The
// destination is therefore never observed half written, and it is safe for
// the destination to be the file the data was read from.
func (l *Local) Create(ctx context.Context, write func(w io.Writer) error) (err error) {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dir, base := filepath.Split(l.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", l.path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.path, err)
	}

	// Keep the mode of an existing destination; default to 0644 otherwise.
	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(l.path); statErr == nil {
		mode = fi.Mode().Perm()
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", l.path, statErr)
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", l.path, err)
	}
	if err = os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace %s: %w", l.path, err)
	}
	return nil
}
