package mock

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
)

// Step is one scripted Detect response
type Step struct {
	Detection *provider.Detection
	Err       error
}

// Scripted replays a fixed sequence of responses, one per Detect call.
// Once the script is exhausted every call reports no face.
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

// NewScripted creates a scripted detector
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

func (s *Scripted) Detect(ctx context.Context, _ []byte) (*provider.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.steps) {
		return nil, nil
	}
	return s.steps[i].Detection, s.steps[i].Err
}

// Calls returns how many times Detect was invoked
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Face is a step with a nose landmark and an optional embedding
func Face(x, y float64, embedding []float64) Step {
	return Step{Detection: &provider.Detection{
		BoundingBox: provider.BoundingBox{X: x - 100, Y: y - 120, Width: 200, Height: 240},
		Confidence:  0.99,
		Landmarks:   map[string]provider.Point{provider.LandmarkNose: {X: x, Y: y}},
		Embedding:   embedding,
		FaceCount:   1,
	}}
}

// NoFace is a step where the frame has no detectable face
func NoFace() Step {
	return Step{}
}

// Fail is a step where the detector errors
func Fail(err error) Step {
	return Step{Err: err}
}

// Repeat returns step n times
func Repeat(step Step, n int) []Step {
	out := make([]Step, n)
	for i := range out {
		out[i] = step
	}
	return out
}

var _ provider.FaceDetector = (*Scripted)(nil)
