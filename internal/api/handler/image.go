package handler

import (
	"io"
	"mime/multipart"
	"time"

	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

const (
	maxImageSize   = 10 * 1024 * 1024 // 10MB
	maxBurstFrames = 64
)

// readFrame reads one uploaded image and checks its bytes, not the declared Content-Type
func readFrame(file *multipart.FileHeader, at time.Time) (camera.Frame, error) {
	if file.Size == 0 || file.Size > maxImageSize {
		return camera.Frame{}, domain.ErrInvalidImage
	}

	f, err := file.Open()
	if err != nil {
		return camera.Frame{}, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize))
	if err != nil {
		return camera.Frame{}, domain.ErrInvalidImage.WithError(err)
	}

	frame := camera.NewFrame(data, at)
	if !frame.IsSupported() {
		return camera.Frame{}, domain.ErrInvalidImage
	}

	return frame, nil
}
