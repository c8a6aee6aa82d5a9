package camera

import (
	"context"
	"sync"
)

// Stream holds only the most recent frame pushed by a live feed.
// Frames pushed faster than they are polled overwrite each other.
type Stream struct {
	mu       sync.Mutex
	latest   *Frame
	received int
	closed   bool
	arrived  chan struct{}
}

// NewStream creates an empty live source
func NewStream() *Stream {
	return &Stream{arrived: make(chan struct{})}
}

// Push replaces the latest frame. Frames pushed after Close are dropped.
func (s *Stream) Push(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.latest == nil {
		close(s.arrived)
	}
	s.latest = &f
	s.received++
}

func (s *Stream) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Frame{}, ErrClosed
	}
	if s.latest == nil {
		return Frame{}, ErrNoFrame
	}
	return *s.latest, nil
}

// Capture returns the latest frame, waiting for the first one if none arrived yet
func (s *Stream) Capture(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-s.arrived:
	}
	return s.Frame(ctx)
}

// Close releases the stream; pending Capture calls return ErrClosed
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.latest == nil {
		close(s.arrived)
	}
	return nil
}

// Received counts frames pushed so far
func (s *Stream) Received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

var _ Source = (*Stream)(nil)
