// Package datasource defines where table bytes come from and go to.
package datasource

import (
	"context"
	"io"
)

// Source opens a byte stream for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Sink receives a complete byte stream. Implementations must not leave a
// partially written destination behind when write returns an error.
type Sink interface {
	Create(ctx context.Context, write func(w io.Writer) error) error
}
