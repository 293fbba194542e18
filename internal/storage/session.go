package storage

import (
	"errors"
	"io"
	"sync"
)

// Session tracks resources opened while reading or writing tables and
// releases them together. The zero value is ready to use.
type Session struct {
	mu      sync.Mutex
	closers []func() error
	closed  bool
}

// NewSession returns an empty Session.
func NewSession() *Session { return &Session{} }

// Track registers c to be closed by Close.
func (s *Session) Track(c io.Closer) {
	if c == nil {
		return
	}
	s.TrackFunc(c.Close)
}

// TrackFunc registers fn to be called by Close. Registering on a closed
// session runs fn immediately.
func (s *Session) TrackFunc(fn func() error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = fn()
		return
	}
	s.closers = append(s.closers, fn)
	s.mu.Unlock()
}

// Close releases tracked resources in reverse registration order and returns
// their errors joined. Calling Close more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
