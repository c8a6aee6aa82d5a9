package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Verification holds the biometric tuning knobs. Every value is per call site
// and depends on camera resolution, so none of them is hard-coded downstream.
type Verification struct {
	MatchThreshold   float64 `envconfig:"MATCH_THRESHOLD" default:"0.45" yaml:"match_threshold"`
	CompareThreshold float64 `envconfig:"COMPARE_THRESHOLD" default:"0.6" yaml:"compare_threshold"`

	LivenessDuration     time.Duration `envconfig:"LIVENESS_DURATION" default:"2500ms" yaml:"liveness_duration"`
	LivenessInterval     time.Duration `envconfig:"LIVENESS_INTERVAL" default:"200ms" yaml:"liveness_interval"`
	LivenessMinSamples   int           `envconfig:"LIVENESS_MIN_SAMPLES" default:"5" yaml:"liveness_min_samples"`
	LivenessLowMovement  float64       `envconfig:"LIVENESS_LOW_MOVEMENT" default:"0.5" yaml:"liveness_low_movement"`
	LivenessHighMovement float64       `envconfig:"LIVENESS_HIGH_MOVEMENT" default:"50" yaml:"liveness_high_movement"`
	LivenessLandmark     string        `envconfig:"LIVENESS_LANDMARK" default:"nose" yaml:"liveness_landmark"`

	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"10m" yaml:"token_ttl"`

	// MaxAttempts per voter inside AttemptWindow; 0 disables the lockout
	MaxAttempts   int           `envconfig:"MAX_ATTEMPTS" default:"10" yaml:"max_attempts"`
	AttemptWindow time.Duration `envconfig:"ATTEMPT_WINDOW" default:"15m" yaml:"attempt_window"`

	Profile string `envconfig:"PROFILE" yaml:"-"`
}

// DefaultVerification mirrors the envconfig defaults for callers that skip Load (CLI, tests)
func DefaultVerification() Verification {
	return Verification{
		MatchThreshold:       0.45,
		CompareThreshold:     0.6,
		LivenessDuration:     2500 * time.Millisecond,
		LivenessInterval:     200 * time.Millisecond,
		LivenessMinSamples:   5,
		LivenessLowMovement:  0.5,
		LivenessHighMovement: 50,
		LivenessLandmark:     "nose",
		TokenTTL:             10 * time.Minute,
		MaxAttempts:          10,
		AttemptWindow:        15 * time.Minute,
	}
}

// profile uses pointers so absent keys leave the current value untouched
type profile struct {
	MatchThreshold       *float64       `yaml:"match_threshold"`
	CompareThreshold     *float64       `yaml:"compare_threshold"`
	LivenessDuration     *time.Duration `yaml:"liveness_duration"`
	LivenessInterval     *time.Duration `yaml:"liveness_interval"`
	LivenessMinSamples   *int           `yaml:"liveness_min_samples"`
	LivenessLowMovement  *float64       `yaml:"liveness_low_movement"`
	LivenessHighMovement *float64       `yaml:"liveness_high_movement"`
	LivenessLandmark     *string        `yaml:"liveness_landmark"`
	TokenTTL             *time.Duration `yaml:"token_ttl"`
	MaxAttempts          *int           `yaml:"max_attempts"`
	AttemptWindow        *time.Duration `yaml:"attempt_window"`
}

// ApplyProfile overlays a YAML tuning profile onto v
func (v *Verification) ApplyProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	return v.applyProfileData(data)
}

func (v *Verification) applyProfileData(data []byte) error {
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse profile: %w", err)
	}

	setFloat(&v.MatchThreshold, p.MatchThreshold)
	setFloat(&v.CompareThreshold, p.CompareThreshold)
	setDuration(&v.LivenessDuration, p.LivenessDuration)
	setDuration(&v.LivenessInterval, p.LivenessInterval)
	setInt(&v.LivenessMinSamples, p.LivenessMinSamples)
	setFloat(&v.LivenessLowMovement, p.LivenessLowMovement)
	setFloat(&v.LivenessHighMovement, p.LivenessHighMovement)
	if p.LivenessLandmark != nil {
		v.LivenessLandmark = *p.LivenessLandmark
	}
	setDuration(&v.TokenTTL, p.TokenTTL)
	setInt(&v.MaxAttempts, p.MaxAttempts)
	setDuration(&v.AttemptWindow, p.AttemptWindow)

	return nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}

// Validate rejects inconsistent tuning
func (v Verification) Validate() error {
	var errs []error

	if v.MatchThreshold <= 0 {
		errs = append(errs, errors.New("match threshold must be positive"))
	}
	if v.CompareThreshold <= 0 {
		errs = append(errs, errors.New("compare threshold must be positive"))
	}
	if v.LivenessInterval <= 0 || v.LivenessDuration <= 0 {
		errs = append(errs, errors.New("liveness duration and interval must be positive"))
	} else if v.LivenessInterval > v.LivenessDuration {
		errs = append(errs, errors.New("liveness interval exceeds duration"))
	}
	if v.LivenessMinSamples < 2 {
		errs = append(errs, errors.New("liveness needs at least 2 samples"))
	} else if v.LivenessInterval > 0 {
		// one sample per tick at most
		if capacity := int(v.LivenessDuration / v.LivenessInterval); v.LivenessMinSamples > capacity {
			errs = append(errs, fmt.Errorf("liveness min samples %d exceeds window capacity %d", v.LivenessMinSamples, capacity))
		}
	}
	if v.LivenessLowMovement < 0 || v.LivenessLowMovement >= v.LivenessHighMovement {
		errs = append(errs, errors.New("liveness low movement must be below high movement"))
	}
	if v.LivenessLandmark == "" {
		errs = append(errs, errors.New("liveness landmark is required"))
	}
	if v.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if v.MaxAttempts < 0 {
		errs = append(errs, errors.New("max attempts cannot be negative"))
	}
	if v.MaxAttempts > 0 && v.AttemptWindow <= 0 {
		errs = append(errs, errors.New("attempt window must be positive when lockout is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid verification config: %w", errors.Join(errs...))
	}
	return nil
}
