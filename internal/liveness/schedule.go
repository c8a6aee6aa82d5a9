package liveness

import (
	"context"
	"sync"
	"time"
)

// Schedule produces tick times for one sampling window.
// The returned channel is closed when the window ends; stop releases the timer early.
type Schedule interface {
	Ticks(ctx context.Context, cfg Config) (ticks <-chan time.Time, stop func())
}

// Realtime ticks every cfg.Interval against the wall clock and emits at most
// cfg.Capacity() ticks. The tick due exactly at cfg.Duration gets one extra
// interval of slack before the window is closed.
// Ticks that arrive while the consumer is still busy are dropped, never queued.
type Realtime struct{}

func (Realtime) Ticks(ctx context.Context, cfg Config) (<-chan time.Time, func()) {
	out := make(chan time.Time)
	done := make(chan struct{})

	ticker := time.NewTicker(cfg.Interval)
	deadline := time.NewTimer(cfg.Duration + cfg.Interval)
	limit := cfg.Capacity()

	go func() {
		defer close(out)
		defer ticker.Stop()
		defer deadline.Stop()

		for fired := 0; fired < limit; {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-deadline.C:
				return
			case t := <-ticker.C:
				fired++
				select {
				case out <- t:
				case <-ctx.Done():
					return
				case <-done:
					return
				case <-deadline.C:
					return
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}

	return out, stop
}

// Replay emits Capacity synthetic ticks at Start + k*Interval without waiting.
// It is used for uploaded frame bursts and deterministic runs.
type Replay struct {
	Start time.Time
}

func (r Replay) Ticks(_ context.Context, cfg Config) (<-chan time.Time, func()) {
	n := cfg.Capacity()
	out := make(chan time.Time, n)

	start := r.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	for k := 1; k <= n; k++ {
		out <- start.Add(time.Duration(k) * cfg.Interval)
	}
	close(out)

	return out, func() {}
}

var (
	_ Schedule = Realtime{}
	_ Schedule = Replay{}
)
