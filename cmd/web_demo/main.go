package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/heatmap_agent/internal/api"
	"github.com/dgnsrekt/heatmap_agent/internal/app"
	"github.com/dgnsrekt/heatmap_agent/internal/config"
	"github.com/dgnsrekt/heatmap_agent/internal/logging"
	"github.com/dgnsrekt/heatmap_agent/internal/netutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	demo, err := config.LoadDemo()
	if err != nil {
		slog.Error("failed to load demo config", "error", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFile, os.Stdout); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("web demo config loaded",
		"bind_addr", demo.BindAddr,
		"port_auto_fallback", demo.PortAutoFallback,
		"port_candidates", demo.PortCandidates,
		"log_level", cfg.LogLevel,
	)

	bindAddr, err := netutil.SelectBindAddr(demo.BindAddr, demo.PortCandidates, demo.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", demo.BindAddr, "error", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to build capture stack", "error", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(a.Service), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		slog.Info("web demo listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("web demo server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("web demo shutdown failed", "error", err)
	}
}
