package verification

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
)

// ReasonNoFaceInCapture is reported when the decisive frame has no face
const ReasonNoFaceInCapture = "no face detected in capture"

// Config is the tuning for one orchestrator
type Config struct {
	MatchThreshold float64
	Liveness       liveness.Config
}

// DefaultConfig uses the enrolled-identity threshold and the reference liveness window
func DefaultConfig() Config {
	return Config{
		MatchThreshold: 0.45,
		Liveness:       liveness.DefaultConfig(),
	}
}

// NewConfig maps the service configuration
func NewConfig(v config.Verification) Config {
	return Config{
		MatchThreshold: v.MatchThreshold,
		Liveness: liveness.Config{
			Duration:     v.LivenessDuration,
			Interval:     v.LivenessInterval,
			MinSamples:   v.LivenessMinSamples,
			LowMovement:  v.LivenessLowMovement,
			HighMovement: v.LivenessHighMovement,
			Landmark:     v.LivenessLandmark,
		},
	}
}

func (c Config) Validate() error {
	if c.MatchThreshold <= 0 {
		return errors.New("match threshold must be positive")
	}
	if err := c.Liveness.Validate(); err != nil {
		return fmt.Errorf("liveness: %w", err)
	}
	return nil
}
