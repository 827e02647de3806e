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

	"github.com/dgnsrekt/heatmap_agent/internal/app"
	"github.com/dgnsrekt/heatmap_agent/internal/chatbot"
	"github.com/dgnsrekt/heatmap_agent/internal/config"
	"github.com/dgnsrekt/heatmap_agent/internal/logging"
	"github.com/dgnsrekt/heatmap_agent/internal/notify"
	"github.com/dgnsrekt/heatmap_agent/internal/scheduler"
	"github.com/dgnsrekt/heatmap_agent/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	botCfg, err := config.LoadBot()
	if err != nil {
		slog.Error("failed to load bot config", "error", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFile, os.Stdout); err != nil {
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

	httpClient := &http.Client{Timeout: time.Duration(botCfg.PollTimeoutSec+30) * time.Second}
	tg := telegram.NewClient(botCfg.APIBaseURL, botCfg.Token, httpClient)
	bot := chatbot.New(tg, a.Service, a.Store, botCfg.PollTimeoutSec, 2)

	if botCfg.ScheduleFile != "" {
		sched, err := startScheduler(ctx, botCfg, bot)
		if err != nil {
			slog.Error("failed to start scheduler", "schedule_file", botCfg.ScheduleFile, "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	slog.Info("starting liquidation heatmap bot", "channel_id", botCfg.ChannelID, "schedule_file", botCfg.ScheduleFile)
	if err := bot.Run(ctx); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func startScheduler(ctx context.Context, botCfg *config.BotConfig, bot *chatbot.Bot) (*scheduler.Scheduler, error) {
	sched, err := config.LoadSchedule(botCfg.ScheduleFile)
	if err != nil {
		return nil, err
	}
	loc, err := scheduler.Location(sched.Timezone)
	if err != nil {
		return nil, err
	}

	var alert scheduler.AlertFunc
	if botCfg.NtfyEndpoint != "" {
		client := &http.Client{Timeout: 10 * time.Second}
		alert = func(ctx context.Context, job, symbol, timeframe string, cause error) error {
			return notify.SendCaptureFailure(ctx, client, botCfg.NtfyEndpoint, job, symbol, timeframe, cause)
		}
	}

	s := scheduler.New(ctx, bot, botCfg.ChannelID, loc, alert)
	if err := s.Register(sched.Jobs); err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}
