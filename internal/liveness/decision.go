package liveness

import (
	"fmt"
	"math"
	"time"
)

// Point is a 2-D landmark position
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean displacement between two positions
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Sample is the tracked landmark position at one tick
type Sample struct {
	Point Point     `json:"point"`
	At    time.Time `json:"at"`
}

// Status classifies a liveness window
type Status string

const (
	StatusLive            Status = "live"
	StatusStatic          Status = "static"
	StatusExcessiveMotion Status = "excessive_motion"
	StatusInconclusive    Status = "inconclusive"
)

// Result is the decision for one sampling window
type Result struct {
	Status      Status  `json:"status"`
	Passed      bool    `json:"passed"`
	AvgMovement float64 `json:"avg_movement"`
	SampleCount int     `json:"sample_count"`
	Reason      string  `json:"reason"`
}

// Evaluate classifies the trajectory of samples.
// Bounds are exclusive: an average exactly on LowMovement or HighMovement passes.
func Evaluate(samples []Sample, cfg Config) Result {
	n := len(samples)
	if n < cfg.MinSamples || n < 2 {
		return Result{
			Status:      StatusInconclusive,
			SampleCount: n,
			Reason: fmt.Sprintf("could not detect face consistently (%d of %d required samples), keep your face in view",
				n, cfg.MinSamples),
		}
	}

	avg := AverageMovement(samples)
	result := Result{
		AvgMovement: avg,
		SampleCount: n,
	}

	switch {
	case avg < cfg.LowMovement:
		result.Status = StatusStatic
		result.Reason = fmt.Sprintf("no natural movement detected (average %.2f), possible static image", avg)
	case avg > cfg.HighMovement:
		result.Status = StatusExcessiveMotion
		result.Reason = fmt.Sprintf("excessive movement detected (average %.2f), hold still and keep the camera steady", avg)
	default:
		result.Status = StatusLive
		result.Passed = true
		result.Reason = "natural movement detected"
	}

	return result
}

// AverageMovement is the mean displacement between consecutive samples.
// Returns 0 for fewer than two samples.
func AverageMovement(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(samples); i++ {
		total += samples[i-1].Point.DistanceTo(samples[i].Point)
	}

	return total / float64(len(samples)-1)
}
