package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dgnsrekt/heatmap_agent/internal/artifact"
	"github.com/dgnsrekt/heatmap_agent/internal/browser"
	"github.com/dgnsrekt/heatmap_agent/internal/capture"
	"github.com/dgnsrekt/heatmap_agent/internal/config"
	"github.com/dgnsrekt/heatmap_agent/internal/dispatch"
	"github.com/dgnsrekt/heatmap_agent/internal/journal"
	"github.com/dgnsrekt/heatmap_agent/internal/price"
)

// App is the capture stack shared by every binary.
type App struct {
	Config   *config.Config
	Store    *artifact.Store
	Prices   *price.Client
	Browsers *browser.Manager
	Pipeline *capture.Pipeline
	Service  *dispatch.Service
	Journal  *journal.Writer
}

// New wires the stack from configuration.
func New(cfg *config.Config) (*App, error) {
	store, err := artifact.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.CaptureOptions()
	if err != nil {
		return nil, fmt.Errorf("capture options: %w", err)
	}
	prices := price.NewClient(cfg.PriceAPIURL, cfg.PriceTimeout(), &http.Client{})
	browsers := browser.NewManager(cfg.Browser())
	pipeline := capture.NewPipeline(browsers.Factory(), store, prices, capture.RealClock, opts)
	var runs *journal.Writer
	if cfg.JournalDir != "" {
		runs = journal.NewWriter(cfg.JournalDir, 64, 25)
		pipeline.WithRecorder(runs)
	}
	svc := dispatch.NewService(pipeline, prices, store, cfg.CaptureTimeout())

	slog.Info("capture stack ready",
		"browser_url", cfg.BrowserURL(),
		"max_retries", cfg.BrowserMaxRetries,
		"local_fallback", cfg.BrowserLocalFallback,
		"output_dir", cfg.OutputDir,
		"target_url", opts.TargetURL,
		"probe_render", opts.ProbeRender,
		"capture_timeout", cfg.CaptureTimeout(),
		"journal_dir", cfg.JournalDir,
	)
	return &App{
		Config:   cfg,
		Store:    store,
		Prices:   prices,
		Browsers: browsers,
		Pipeline: pipeline,
		Service:  svc,
		Journal:  runs,
	}, nil
}

// Close flushes the run journal.
func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Close()
}
