package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.Set(0, 0, color.Gray{Y: 255 - shade})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewFrame_SniffsContentType(t *testing.T) {
	f := NewFrame(pngBytes(t, 10), time.Now())
	assert.Equal(t, "image/png", f.ContentType)
	assert.True(t, f.IsSupported())

	text := NewFrame([]byte("definitely not an image"), time.Now())
	assert.False(t, text.IsSupported())
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	frames := []Frame{
		{Data: []byte("a")},
		{Data: []byte("b")},
	}

	t.Run("serves frames in order then runs dry", func(t *testing.T) {
		r := NewReplay(frames, nil)

		f, err := r.Frame(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), f.Data)
		assert.Equal(t, 1, r.Remaining())

		f, err = r.Frame(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), f.Data)

		_, err = r.Frame(ctx)
		assert.ErrorIs(t, err, ErrNoFrame)
	})

	t.Run("capture defaults to last frame", func(t *testing.T) {
		r := NewReplay(frames, nil)
		f, err := r.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), f.Data)
	})

	t.Run("explicit capture frame", func(t *testing.T) {
		capture := Frame{Data: []byte("decisive")}
		r := NewReplay(frames, &capture)
		f, err := r.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("decisive"), f.Data)
	})

	t.Run("empty burst has nothing to capture", func(t *testing.T) {
		r := NewReplay(nil, nil)
		_, err := r.Capture(ctx)
		assert.ErrorIs(t, err, ErrNoFrame)
	})

	t.Run("closed source", func(t *testing.T) {
		r := NewReplay(frames, nil)
		require.NoError(t, r.Close())
		require.NoError(t, r.Close())

		_, err := r.Frame(ctx)
		assert.ErrorIs(t, err, ErrClosed)
		_, err = r.Capture(ctx)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002.png"), pngBytes(t, 20), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001.png"), pngBytes(t, 10), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))

	capturePath := filepath.Join(t.TempDir(), "capture.png")
	require.NoError(t, os.WriteFile(capturePath, pngBytes(t, 30), 0o600))

	r, err := LoadDir(dir, capturePath)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Remaining())

	first, err := r.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t, 10), first.Data)

	capture, err := r.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t, 30), capture.Data)

	_, err = LoadDir(t.TempDir(), "")
	assert.Error(t, err)
}

func TestStream(t *testing.T) {
	ctx := context.Background()

	t.Run("no frame yet", func(t *testing.T) {
		s := NewStream()
		_, err := s.Frame(ctx)
		assert.ErrorIs(t, err, ErrNoFrame)
	})

	t.Run("keeps only the latest frame", func(t *testing.T) {
		s := NewStream()
		s.Push(Frame{Data: []byte("1")})
		s.Push(Frame{Data: []byte("2")})
		s.Push(Frame{Data: []byte("3")})

		f, err := s.Frame(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), f.Data)
		assert.Equal(t, 3, s.Received())
	})

	t.Run("capture waits for first frame", func(t *testing.T) {
		s := NewStream()
		go func() {
			time.Sleep(20 * time.Millisecond)
			s.Push(Frame{Data: []byte("late")})
		}()

		f, err := s.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("late"), f.Data)
	})

	t.Run("capture honours context", func(t *testing.T) {
		s := NewStream()
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := s.Capture(cctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("close releases waiting capture", func(t *testing.T) {
		s := NewStream()
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = s.Close()
		}()

		_, err := s.Capture(ctx)
		assert.ErrorIs(t, err, ErrClosed)

		s.Push(Frame{Data: []byte("dropped")})
		assert.Equal(t, 0, s.Received())
		assert.NoError(t, s.Close())
	})
}
