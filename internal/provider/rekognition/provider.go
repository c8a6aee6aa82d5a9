package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
)

// landmarkNames maps Rekognition landmark types to detector-neutral names
var landmarkNames = map[types.LandmarkType]string{
	types.LandmarkTypeNose:       provider.LandmarkNose,
	types.LandmarkTypeEyeLeft:    provider.LandmarkLeftEye,
	types.LandmarkTypeEyeRight:   provider.LandmarkRightEye,
	types.LandmarkTypeMouthLeft:  provider.LandmarkMouthLeft,
	types.LandmarkTypeMouthRight: provider.LandmarkMouthRight,
}

// Provider implements provider.FaceDetector using AWS Rekognition DetectFaces.
// Rekognition does not expose face embeddings, so detections carry landmarks only
// and the provider can only serve the liveness stage.
type Provider struct {
	api           API
	minConfidence float64
}

// Ensure Provider implements provider.FaceDetector interface at compile time
var _ provider.FaceDetector = (*Provider)(nil)

// NewProvider creates a new Rekognition provider
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	api, err := NewAPI(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithAPI(api, cfg), nil
}

// NewProviderWithAPI wires an existing client, used by tests
func NewProviderWithAPI(api API, cfg Config) *Provider {
	return &Provider{api: api, minConfidence: cfg.MinConfidence}
}

// Detect returns the largest face in the frame with landmarks in pixel coordinates.
// Returns (nil, nil) when no face clears MinConfidence.
func (p *Provider) Detect(ctx context.Context, image []byte) (*provider.Detection, error) {
	data, dims, err := prepareImage(image)
	if err != nil {
		return nil, err
	}

	output, err := p.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: data},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", translateError(err))
	}

	w, h := float64(dims.Width), float64(dims.Height)
	faces := make([]provider.Detection, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		confidence := float64(aws.ToFloat32(detail.Confidence))
		if confidence < p.minConfidence || detail.BoundingBox == nil {
			continue
		}

		faces = append(faces, provider.Detection{
			BoundingBox: provider.BoundingBox{
				X:      float64(aws.ToFloat32(detail.BoundingBox.Left)) * w,
				Y:      float64(aws.ToFloat32(detail.BoundingBox.Top)) * h,
				Width:  float64(aws.ToFloat32(detail.BoundingBox.Width)) * w,
				Height: float64(aws.ToFloat32(detail.BoundingBox.Height)) * h,
			},
			Confidence: confidence / 100,
			Landmarks:  toLandmarks(detail.Landmarks, w, h),
		})
	}

	return provider.Largest(faces), nil
}

func toLandmarks(in []types.Landmark, w, h float64) map[string]provider.Point {
	out := make(map[string]provider.Point, len(landmarkNames))
	for _, lm := range in {
		name, ok := landmarkNames[lm.Type]
		if !ok || lm.X == nil || lm.Y == nil {
			continue
		}
		out[name] = provider.Point{
			X: float64(*lm.X) * w,
			Y: float64(*lm.Y) * h,
		}
	}
	return out
}
