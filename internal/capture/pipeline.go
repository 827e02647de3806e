package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/heatmap_agent/internal/artifact"
)

// Result is a finished capture.
type Result struct {
	Path     string
	Meta     artifact.Meta
	Message  string
	Warnings []error
}

// Pipeline runs one capture end to end: acquire a session, load the page,
// select parameters, locate and measure the chart, screenshot it, store it.
type Pipeline struct {
	sessions  SessionFactory
	opts      Options
	stab      *Stabilizer
	selector  *ParameterSelector
	finalizer *Finalizer
	recorder  RunRecorder
}

func NewPipeline(sessions SessionFactory, store ArtifactStore, prices PriceLookup, clock Clock, opts Options) *Pipeline {
	opts = opts.withDefaults()
	stab := NewStabilizer(clock, opts)
	return &Pipeline{
		sessions:  sessions,
		opts:      opts,
		stab:      stab,
		selector:  NewParameterSelector(stab, opts),
		finalizer: NewFinalizer(store, prices, clock, opts.TargetURL),
	}
}

// WithSymbolStrategies overrides the symbol selection order.
func (p *Pipeline) WithSymbolStrategies(strategies ...SymbolStrategy) *Pipeline {
	p.selector.WithStrategies(strategies...)
	return p
}

// WithRecorder journals every validated run.
func (p *Pipeline) WithRecorder(r RunRecorder) *Pipeline {
	p.recorder = r
	return p
}

// Run validates req before any browser work and returns a *CodedError on
// fatal failure.
func (p *Pipeline) Run(ctx context.Context, req CaptureRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	runID := uuid.New().String()
	log := slog.With("run_id", runID, "symbol", req.Symbol, "timeframe", req.Timeframe)
	start := time.Now()
	log.Info("capture started")

	res, err := p.run(ctx, log, req, runID)
	if err != nil {
		log.Error("capture failed", "error", err, "elapsed", time.Since(start))
	} else {
		log.Info("capture finished", "path", res.Path, "warnings", len(res.Warnings), "elapsed", time.Since(start))
	}
	if p.recorder != nil {
		if rerr := p.recorder.Record(newRunRecord(runID, req, start, time.Now(), res, err)); rerr != nil {
			log.Warn("run journal write failed", "error", rerr)
		}
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, req CaptureRequest, runID string) (Result, error) {
	raw, warnings, err := p.drive(ctx, log, req)
	if err != nil {
		return Result{Warnings: warnings}, err
	}
	meta, path, msg, err := p.finalizer.Finalize(ctx, raw, req, runID)
	if err != nil {
		return Result{Warnings: warnings}, err
	}
	return Result{Path: path, Meta: meta, Message: msg, Warnings: warnings}, nil
}

// drive holds the session for the browser stages only and releases it
// exactly once however they end.
func (p *Pipeline) drive(ctx context.Context, log *slog.Logger, req CaptureRequest) ([]byte, []error, error) {
	sess, err := p.sessions.Acquire(ctx)
	if err != nil {
		return nil, nil, newError(CodeConnection, "could not obtain browser session", err)
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := sess.Close(); err != nil {
				log.Warn("browser session close failed", "error", err)
			}
		})
	}
	defer release()

	if err := LoadAndStabilize(ctx, sess, p.stab, p.opts); err != nil {
		return nil, nil, err
	}

	warnings := p.selector.ApplyParameters(ctx, sess, req)
	for _, w := range warnings {
		log.Warn("parameter selection incomplete", "error", w)
	}

	el, err := LocateChartElement(ctx, sess, p.opts.Selectors, p.opts.Timings.ElementWait)
	if err != nil {
		return nil, warnings, err
	}
	if err := p.stab.Sleep(ctx, p.opts.Timings.PreCaptureSettle); err != nil {
		return nil, warnings, newError(CodeCapture, "interrupted before capture", err)
	}
	box, err := ReadBoundingBox(ctx, sess, el)
	if err != nil {
		return nil, warnings, err
	}
	raw, err := CaptureClip(ctx, sess, box, p.opts.Scale)
	if err != nil {
		return nil, warnings, err
	}
	return raw, warnings, nil
}
