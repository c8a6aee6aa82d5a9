package service

import (
	"errors"

	"github.com/saturnino-fabrica-de-software/voterid/internal/biometric"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// CompareResult is the answer of the two-embedding comparison
type CompareResult struct {
	Distance   float64 `json:"distance"`
	IsMatch    bool    `json:"is_match"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
}

// Comparer matches two arbitrary embeddings with the looser compare threshold
type Comparer struct {
	threshold float64
}

func NewComparer(threshold float64) *Comparer {
	return &Comparer{threshold: threshold}
}

func (c *Comparer) Compare(a, b []float64) (*CompareResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, domain.ErrValidationFailed.WithError(errors.New("embeddings must not be empty"))
	}

	res, err := biometric.Match(a, b, c.threshold)
	if err != nil {
		if errors.Is(err, biometric.ErrLengthMismatch) {
			return nil, domain.ErrEmbeddingLengthMismatch.WithError(err)
		}
		return nil, err
	}

	return &CompareResult{
		Distance:   res.Distance,
		IsMatch:    res.IsMatch,
		Similarity: biometric.SimilarityPercent(res.Distance),
		Threshold:  c.threshold,
	}, nil
}
