package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrSourceLost signals that frames can no longer be obtained (camera revoked, stream closed).
// A probe returning it aborts the window; any other probe error only skips the tick.
var ErrSourceLost = errors.New("frame source lost")

// ErrNotRunning is returned by Run when the sampler is reused before Stop
var ErrNotRunning = errors.New("sampler not running")

// Probe reads the current frame and returns the tracked landmark.
// found is false when no face (or no such landmark) is present.
type Probe func(ctx context.Context) (p Point, found bool, err error)

// Sampler collects landmark samples for one liveness window.
// The buffer is bounded by Config.Capacity; extra ticks are ignored.
type Sampler struct {
	cfg    Config
	probe  Probe
	logger *slog.Logger

	mu      sync.Mutex
	samples []Sample
	running bool
	skipped int
	failed  int
}

// NewSampler creates a sampler bound to a probe
func NewSampler(cfg Config, probe Probe, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		cfg:    cfg,
		probe:  probe,
		logger: logger.With("component", "liveness_sampler"),
	}
}

// Start resets the buffer and opens the window
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = make([]Sample, 0, s.cfg.Capacity())
	s.running = true
	s.skipped = 0
	s.failed = 0
}

// Tick polls the probe once and records a sample when a face is found.
// Misses and transient errors are skipped; only ErrSourceLost is returned.
func (s *Sampler) Tick(ctx context.Context, at time.Time) (bool, error) {
	s.mu.Lock()
	if !s.running || len(s.samples) >= cap(s.samples) {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	p, found, err := s.probe(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false, nil
	}

	if err != nil {
		if errors.Is(err, ErrSourceLost) || ctx.Err() != nil {
			return false, err
		}
		s.failed++
		s.logger.Debug("liveness tick skipped", slog.Any("error", err))
		return false, nil
	}

	if !found {
		s.skipped++
		return false, nil
	}

	s.samples = append(s.samples, Sample{Point: p, At: at})
	return true, nil
}

// Stop closes the window and returns a copy of the collected samples
func (s *Sampler) Stop() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Samples returns a copy of the samples collected so far
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Stats reports ticks without a face and ticks that errored
func (s *Sampler) Stats() (skipped, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped, s.failed
}

// Run drives one full window on sched and returns the collected samples.
// The window is always stopped on return, including on cancellation.
func (s *Sampler) Run(ctx context.Context, sched Schedule) ([]Sample, error) {
	ticks, stop := sched.Ticks(ctx, s.cfg)
	defer stop()

	s.Start()
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case at, ok := <-ticks:
			if !ok {
				return s.Stop(), nil
			}
			if _, err := s.Tick(ctx, at); err != nil {
				return nil, fmt.Errorf("liveness tick: %w", err)
			}
		}
	}
}
