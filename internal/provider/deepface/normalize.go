package deepface

import (
	"math"
)

// NormalizeEmbedding normalizes an embedding vector to unit length.
// Zero and empty vectors are returned unchanged.
func NormalizeEmbedding(embedding []float64) []float64 {
	if len(embedding) == 0 {
		return embedding
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}

	if norm == 0 {
		return embedding
	}

	norm = math.Sqrt(norm)
	normalized := make([]float64, len(embedding))
	for i, v := range embedding {
		normalized[i] = v / norm
	}

	return normalized
}

func hypot(x, y float64) float64 {
	return math.Hypot(x, y)
}
