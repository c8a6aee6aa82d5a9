package camera

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrNoFrame means the source has no frame for this instant; callers skip the tick
	ErrNoFrame = errors.New("no frame available")
	// ErrClosed means the source was released or the device went away
	ErrClosed = errors.New("camera closed")
)

// Frame is one encoded image (JPEG, PNG or WebP) from the capture device
type Frame struct {
	Data        []byte
	ContentType string
	CapturedAt  time.Time
}

// Source is an exclusively owned capture handle for one verification attempt.
// Frame is polled by the liveness sampler; Capture returns the decisive frame.
// Close must be safe to call more than once.
type Source interface {
	Frame(ctx context.Context) (Frame, error)
	Capture(ctx context.Context) (Frame, error)
	Close() error
}

// NewFrame builds a frame and sniffs its content type
func NewFrame(data []byte, at time.Time) Frame {
	return Frame{
		Data:        data,
		ContentType: http.DetectContentType(data),
		CapturedAt:  at,
	}
}

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// IsSupported reports whether the frame is an image type the detectors accept
func (f Frame) IsSupported() bool {
	return supportedTypes[f.ContentType]
}
