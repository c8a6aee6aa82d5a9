package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider/rekognition"
)

// ProviderType defines supported face detector types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace provider (self-hosted, embeddings + eye landmarks)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is the AWS Rekognition provider (landmarks only)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is the deterministic in-process provider for dev and tests
	ProviderTypeMock ProviderType = "mock"
)

// Providers holds the two detector roles of a verification attempt.
// Landmarks feeds the liveness sampler; Descriptors extracts the capture embedding.
// Both may be the same instance.
type Providers struct {
	Landmarks   provider.FaceDetector
	Descriptors provider.FaceDetector
}

// NewProviders builds the detectors named by PROVIDER_TYPE and LIVENESS_PROVIDER.
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface"); must yield embeddings
//   - LIVENESS_PROVIDER: "deepface", "rekognition" or "mock" (default: PROVIDER_TYPE)
//   - DEEPFACE_URL: DeepFace API URL
//   - AWS_REGION: AWS region for Rekognition (credentials via the AWS SDK chain)
func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	descriptorType := ProviderType(cfg.ProviderType)
	if descriptorType == ProviderTypeRekognition {
		return nil, fmt.Errorf("provider %s cannot extract embeddings; use it as LIVENESS_PROVIDER", descriptorType)
	}

	descriptors, err := newDetector(ctx, cfg, descriptorType)
	if err != nil {
		return nil, fmt.Errorf("descriptor provider: %w", err)
	}

	livenessType := ProviderType(cfg.LivenessProviderType())
	if livenessType == descriptorType || livenessType == "" {
		return &Providers{Landmarks: descriptors, Descriptors: descriptors}, nil
	}

	landmarks, err := newDetector(ctx, cfg, livenessType)
	if err != nil {
		return nil, fmt.Errorf("liveness provider: %w", err)
	}

	return &Providers{Landmarks: landmarks, Descriptors: descriptors}, nil
}

func newDetector(ctx context.Context, cfg *config.Config, providerType ProviderType) (provider.FaceDetector, error) {
	switch providerType {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeRekognition:
		return createRekognitionProvider(ctx, cfg)

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			providerType, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeMock)
	}
}

// createRekognitionProvider creates an AWS Rekognition provider instance
func createRekognitionProvider(ctx context.Context, cfg *config.Config) (provider.FaceDetector, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider: %w", err)
	}

	return prov, nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) provider.FaceDetector {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}

	return deepface.NewProvider(deepfaceConfig)
}
