package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Replay serves a recorded burst: Frame returns the frames in order, one per call,
// and ErrNoFrame once they run out. Capture returns the decisive frame.
type Replay struct {
	mu      sync.Mutex
	frames  []Frame
	capture *Frame
	next    int
	closed  bool
}

// NewReplay creates a replay source. When capture is nil the last frame is used.
func NewReplay(frames []Frame, capture *Frame) *Replay {
	return &Replay{
		frames:  frames,
		capture: capture,
	}
}

func (r *Replay) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Frame{}, ErrClosed
	}
	if r.next >= len(r.frames) {
		return Frame{}, ErrNoFrame
	}

	f := r.frames[r.next]
	r.next++
	return f, nil
}

func (r *Replay) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Frame{}, ErrClosed
	}
	if r.capture != nil {
		return *r.capture, nil
	}
	if len(r.frames) == 0 {
		return Frame{}, ErrNoFrame
	}
	return r.frames[len(r.frames)-1], nil
}

func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Remaining reports how many burst frames have not been served yet
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames) - r.next
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LoadDir reads every image in dir, sorted by file name, as a replay burst.
// capturePath, when set, names the decisive frame file.
func LoadDir(dir, capturePath string) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for _, name := range names {
		f, err := readFrame(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no image frames in %s", dir)
	}

	var capture *Frame
	if capturePath != "" {
		f, err := readFrame(capturePath)
		if err != nil {
			return nil, err
		}
		capture = &f
	}

	return NewReplay(frames, capture), nil
}

func readFrame(path string) (Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("read frame %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Frame{}, fmt.Errorf("stat frame %s: %w", path, err)
	}
	return NewFrame(data, info.ModTime()), nil
}

var _ Source = (*Replay)(nil)
