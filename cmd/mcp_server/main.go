package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/heatmap_agent/internal/app"
	"github.com/dgnsrekt/heatmap_agent/internal/config"
	"github.com/dgnsrekt/heatmap_agent/internal/logging"
	"github.com/dgnsrekt/heatmap_agent/internal/mcpserver"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP stream.
	if err := logging.Setup(cfg.LogLevel, cfg.LogFile, os.Stderr); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to build capture stack", "error", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("mcp server starting", "transport", "stdio", "version", version)
	if err := mcpserver.Run(ctx, mcpserver.New(a.Service, version)); err != nil && ctx.Err() == nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("mcp server stopped")
}
