package capture

import (
	"context"
	"log/slog"
	"time"
)

// Clock abstracts time so settle loops can run instantly under test.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

type renderSample struct {
	Mounted bool   `json:"mounted"`
	Sig     string `json:"sig"`
}

// Stabilizer waits for the chart to stop redrawing. With probing enabled it
// samples a render fingerprint and returns once StableSamples consecutive
// samples of a mounted chart match and a quarter of the budget has elapsed.
// An unmounted chart never counts as stable. Without probing, or
// when a probe fails, it sleeps out the budget.
type Stabilizer struct {
	clock    Clock
	chartCSS string
	probe    bool
	interval time.Duration
	samples  int
}

func NewStabilizer(clock Clock, opts Options) *Stabilizer {
	opts = opts.withDefaults()
	if clock == nil {
		clock = RealClock
	}
	return &Stabilizer{
		clock:    clock,
		chartCSS: opts.Selectors.ChartCSS,
		probe:    opts.ProbeRender,
		interval: opts.Timings.PollInterval,
		samples:  opts.Timings.StableSamples,
	}
}

// Sleep waits d unconditionally.
func (s *Stabilizer) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, s.clock, d)
}

// Settle blocks for at most budget.
func (s *Stabilizer) Settle(ctx context.Context, page Page, budget time.Duration) error {
	if !s.probe || budget <= 0 {
		return s.Sleep(ctx, budget)
	}
	start := s.clock.Now()
	deadline := start.Add(budget)
	minDwell := start.Add(budget / 4)
	script := jsRenderFingerprint(s.chartCSS)

	var last string
	stable := 0
	for {
		var fp renderSample
		if err := evalJSON(ctx, page, script, &fp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("render probe failed, falling back to fixed wait", "error", err)
			return s.Sleep(ctx, deadline.Sub(s.clock.Now()))
		}
		switch {
		case !fp.Mounted:
			stable, last = 0, ""
		case fp.Sig == last:
			stable++
		default:
			stable, last = 1, fp.Sig
		}
		now := s.clock.Now()
		if stable >= s.samples && !now.Before(minDwell) {
			slog.Debug("render settled", "elapsed", now.Sub(start), "fingerprint", fp.Sig)
			return nil
		}
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			if !fp.Mounted {
				slog.Warn("chart not mounted within settle budget", "budget", budget)
			}
			return nil
		}
		if err := s.Sleep(ctx, min(s.interval, remaining)); err != nil {
			return err
		}
	}
}
