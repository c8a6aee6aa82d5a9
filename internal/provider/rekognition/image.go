package rekognition

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/webp"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// prepareImage validates the payload and returns bytes Rekognition accepts
// along with the pixel dimensions needed to de-normalise landmark ratios.
// Rekognition only reads JPEG and PNG, so WebP frames are re-encoded as JPEG.
func prepareImage(data []byte) ([]byte, image.Config, error) {
	if len(data) < minImageSize {
		return nil, image.Config{}, fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(data), minImageSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Config{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if format == "webp" {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, image.Config{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, image.Config{}, fmt.Errorf("transcode webp: %w", err)
		}
		data = buf.Bytes()
	}

	if len(data) > maxImageSize {
		return nil, image.Config{}, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(data), maxImageSize)
	}

	return data, cfg, nil
}
