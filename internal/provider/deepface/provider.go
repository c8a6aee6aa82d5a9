package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
)

// noseDrop places the nose tip below the eye line, as a fraction of the inter-ocular distance
const noseDrop = 0.6

// Provider implements provider.FaceDetector using the DeepFace API
type Provider struct {
	client    *Client
	normalize bool
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client:    NewClient(config),
		normalize: config.Normalize,
	}
}

// Detect returns the largest face with its embedding.
// DeepFace answers a face-less frame with a zero-confidence full-image area, which is reported as no face.
func (p *Provider) Detect(ctx context.Context, image []byte) (*provider.Detection, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}

	faces := make([]provider.Detection, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.FaceConfidence <= 0 || len(result.Embedding) == 0 {
			continue
		}

		embedding := result.Embedding
		if p.normalize {
			embedding = NormalizeEmbedding(embedding)
		}

		faces = append(faces, provider.Detection{
			BoundingBox: provider.BoundingBox{
				X:      float64(result.FacialArea.X),
				Y:      float64(result.FacialArea.Y),
				Width:  float64(result.FacialArea.W),
				Height: float64(result.FacialArea.H),
			},
			Confidence: result.FaceConfidence,
			Landmarks:  landmarks(result.FacialArea),
			Embedding:  embedding,
		})
	}

	return provider.Largest(faces), nil
}

// landmarks derives named points from the facial area.
// DeepFace only reports eye centres, so the nose tip is estimated from them,
// falling back to the box centre.
func landmarks(area FacialArea) map[string]provider.Point {
	points := make(map[string]provider.Point, 3)

	left, hasLeft := eye(area.LeftEye)
	right, hasRight := eye(area.RightEye)
	if hasLeft {
		points[provider.LandmarkLeftEye] = left
	}
	if hasRight {
		points[provider.LandmarkRightEye] = right
	}

	if hasLeft && hasRight {
		mid := provider.Point{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}
		iod := provider.Point{X: right.X - left.X, Y: right.Y - left.Y}
		dist := hypot(iod.X, iod.Y)
		points[provider.LandmarkNose] = provider.Point{X: mid.X, Y: mid.Y + dist*noseDrop}
	} else {
		points[provider.LandmarkNose] = provider.Point{
			X: float64(area.X) + float64(area.W)/2,
			Y: float64(area.Y) + float64(area.H)/2,
		}
	}

	return points
}

func eye(v []int) (provider.Point, bool) {
	if len(v) != 2 {
		return provider.Point{}, false
	}
	return provider.Point{X: float64(v[0]), Y: float64(v[1])}, true
}

var _ provider.FaceDetector = (*Provider)(nil)
