package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
)

const (
	embeddingDimension = 128
	minImageSize       = 1000

	// synthetic frame geometry (640x480 capture)
	centerX = 320.0
	centerY = 240.0
	// max landmark jitter in pixels between two different frames
	jitter = 4.0
)

// Provider implementa provider.FaceDetector para testes e desenvolvimento.
// Identical frames produce identical landmarks and embeddings; uniform frames
// (lens covered) produce no face.
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// Detect simula detecção de face com landmarks e embedding determinísticos
func (p *Provider) Detect(ctx context.Context, image []byte) (*provider.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	if isUniform(image) {
		return nil, nil
	}

	hash := sha256.Sum256(image)
	dx := (float64(hash[0])/255.0 - 0.5) * jitter
	dy := (float64(hash[1])/255.0 - 0.5) * jitter

	nose := provider.Point{X: centerX + dx, Y: centerY + dy}

	return &provider.Detection{
		BoundingBox: provider.BoundingBox{
			X:      nose.X - 100,
			Y:      nose.Y - 120,
			Width:  200,
			Height: 240,
		},
		Confidence: 0.99,
		Landmarks: map[string]provider.Point{
			provider.LandmarkNose:     nose,
			provider.LandmarkLeftEye:  {X: nose.X - 35, Y: nose.Y - 40},
			provider.LandmarkRightEye: {X: nose.X + 35, Y: nose.Y - 40},
		},
		Embedding: generateEmbedding(hash),
		FaceCount: 1,
	}, nil
}

func isUniform(image []byte) bool {
	for _, b := range image[1:] {
		if b != image[0] {
			return false
		}
	}
	return true
}

// generateEmbedding gera embedding unitário determinístico a partir do hash da imagem
func generateEmbedding(hash [32]byte) []float64 {
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	if norm == 0 {
		return embedding
	}
	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var _ provider.FaceDetector = (*Provider)(nil)
