package liveness

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the sampling window and the movement bounds.
// Movement bounds are in the landmark's coordinate space (pixels for most sources),
// so they need retuning when the camera resolution changes.
type Config struct {
	Duration     time.Duration
	Interval     time.Duration
	MinSamples   int
	LowMovement  float64
	HighMovement float64
	Landmark     string
}

// DefaultConfig returns the reference tuning: 2.5s window, 200ms ticks,
// at least 5 samples, average movement within [0.5, 50].
func DefaultConfig() Config {
	return Config{
		Duration:     2500 * time.Millisecond,
		Interval:     200 * time.Millisecond,
		MinSamples:   5,
		LowMovement:  0.5,
		HighMovement: 50,
		Landmark:     "nose",
	}
}

// Capacity is the maximum number of samples a window can hold (Duration / Interval)
func (c Config) Capacity() int {
	if c.Interval <= 0 {
		return 0
	}
	return int(c.Duration / c.Interval)
}

// Validate rejects configurations that can never produce a pass
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("liveness interval must be positive")
	}
	if c.Duration < c.Interval {
		return fmt.Errorf("liveness duration %s shorter than interval %s", c.Duration, c.Interval)
	}
	if c.MinSamples < 2 {
		return errors.New("liveness min samples must be at least 2")
	}
	if c.MinSamples > c.Capacity() {
		return fmt.Errorf("liveness min samples %d exceeds window capacity %d", c.MinSamples, c.Capacity())
	}
	if c.LowMovement < 0 || c.HighMovement <= c.LowMovement {
		return fmt.Errorf("liveness movement bounds invalid: low=%v high=%v", c.LowMovement, c.HighMovement)
	}
	if c.Landmark == "" {
		return errors.New("liveness landmark is required")
	}
	return nil
}
