package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dgnsrekt/heatmap_agent/internal/config"
)

// Deliverer captures a heatmap and posts it to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID, symbol, timeframe string, replyTo int) error
}

// AlertFunc reports a failed job. It may be nil.
type AlertFunc func(ctx context.Context, job, symbol, timeframe string, cause error) error

// Scheduler runs heatmap jobs on cron expressions (seconds field included).
type Scheduler struct {
	cron        *cron.Cron
	deliver     Deliverer
	defaultChat string
	alert       AlertFunc
	ctx         context.Context
}

// New builds a scheduler in loc. Jobs without a chat id post to defaultChat.
func New(ctx context.Context, deliver Deliverer, defaultChat string, loc *time.Location, alert AlertFunc) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		deliver:     deliver,
		defaultChat: defaultChat,
		alert:       alert,
		ctx:         ctx,
	}
}

// Location resolves a schedule timezone; empty means local time.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Register adds every job. It fails on the first bad cron expression or a
// job with no destination chat.
func (s *Scheduler) Register(jobs []config.Job) error {
	for _, job := range jobs {
		if job.ChatID == "" {
			job.ChatID = s.defaultChat
		}
		if job.ChatID == "" {
			return fmt.Errorf("register job %q: no chat_id and TELEGRAM_CHANNEL_ID is empty", job.Name)
		}
		if _, err := s.cron.AddFunc(job.Cron, func() { s.RunJob(job) }); err != nil {
			return fmt.Errorf("register job %q: %w", job.Name, err)
		}
		slog.Info("scheduled heatmap job registered", "job", job.Name, "cron", job.Cron, "symbol", job.Symbol, "timeframe", job.Timeframe)
	}
	return nil
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", s.Len())
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunJob executes one job now.
func (s *Scheduler) RunJob(job config.Job) {
	chatID := job.ChatID
	if chatID == "" {
		chatID = s.defaultChat
	}
	start := time.Now()
	slog.Info("scheduled heatmap started", "job", job.Name, "symbol", job.Symbol, "timeframe", job.Timeframe)
	err := s.deliver.Deliver(s.ctx, chatID, job.Symbol, job.Timeframe, 0)
	if err == nil {
		slog.Info("scheduled heatmap posted", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Error("scheduled heatmap failed", "job", job.Name, "error", err)
	if s.alert == nil {
		return
	}
	if aerr := s.alert(s.ctx, job.Name, job.Symbol, job.Timeframe, err); aerr != nil {
		slog.Error("scheduled heatmap alert failed", "job", job.Name, "error", aerr)
	}
}
