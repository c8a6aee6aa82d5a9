package biometric

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when two embeddings of different sizes are compared
var ErrLengthMismatch = errors.New("embedding length mismatch")

// Embedding is a fixed-length face descriptor produced by a descriptor source
type Embedding []float64

// Distance returns the Euclidean (L2) distance between a and b.
// Smaller means more similar; identical vectors have distance 0.
func Distance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum), nil
}

// Float32 converts the embedding for pgvector storage
func (e Embedding) Float32() []float32 {
	out := make([]float32, len(e))
	for i, v := range e {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32 converts a stored vector back into an Embedding
func FromFloat32(v []float32) Embedding {
	if v == nil {
		return nil
	}
	out := make(Embedding, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
