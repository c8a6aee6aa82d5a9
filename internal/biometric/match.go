package biometric

import (
	"math"
	"strconv"
)

// MatchResult is the outcome of comparing a live embedding against an enrolled one
type MatchResult struct {
	IsMatch  bool    `json:"is_match"`
	Distance float64 `json:"distance"`
}

// Matcher decides whether two embeddings belong to the same person
type Matcher interface {
	Match(live, enrolled Embedding, threshold float64) (MatchResult, error)
}

// EuclideanMatcher implements Matcher with Distance
type EuclideanMatcher struct{}

// Match accepts when distance is strictly below threshold
func (EuclideanMatcher) Match(live, enrolled Embedding, threshold float64) (MatchResult, error) {
	return Match(live, enrolled, threshold)
}

// Match computes the distance between live and enrolled and thresholds it.
// Lower thresholds are stricter.
func Match(live, enrolled Embedding, threshold float64) (MatchResult, error) {
	distance, err := Distance(live, enrolled)
	if err != nil {
		return MatchResult{}, err
	}

	return MatchResult{
		IsMatch:  distance < threshold,
		Distance: distance,
	}, nil
}

// SimilarityPercent maps a distance to a display percentage, (1 - distance) * 100
// clamped to [0, 100]. It is not a calibrated probability.
func SimilarityPercent(distance float64) float64 {
	s := (1 - distance) * 100
	return math.Max(0, math.Min(100, s))
}

// FormatPercent renders a percentage with at most one decimal place ("10%", "87.5%")
func FormatPercent(p float64) string {
	rounded := math.Round(p*10) / 10
	return strconv.FormatFloat(rounded, 'f', -1, 64) + "%"
}

var _ Matcher = EuclideanMatcher{}
