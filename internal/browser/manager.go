package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
	"github.com/dgnsrekt/heatmap_agent/internal/netutil"
)

const (
	DefaultWindowWidth  = 5400
	DefaultWindowHeight = 2950
	DefaultScale        = 2.0
)

// ErrUnavailable is returned when no session could be established.
var ErrUnavailable = errors.New("browser unavailable")

// Config describes where sessions come from.
type Config struct {
	Host          string
	Port          int
	MaxRetries    int
	RetryDelay    time.Duration
	LocalFallback bool
	ExecPath      string
	WindowWidth   int
	WindowHeight  int
	Scale         float64
	AttachTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9222
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.WindowWidth == 0 || c.WindowHeight == 0 {
		c.WindowWidth, c.WindowHeight = DefaultWindowWidth, DefaultWindowHeight
	}
	if c.Scale <= 0 {
		c.Scale = DefaultScale
	}
	if c.AttachTimeout <= 0 {
		c.AttachTimeout = 30 * time.Second
	}
	return c
}

// HTTPBase is the remote DevTools HTTP endpoint.
func (c Config) HTTPBase() string {
	return "http://" + netutil.HostPort(c.Host, c.Port)
}

// Manager hands out browser sessions: a remote endpoint first, retried a
// fixed number of times, then optionally a local headless browser.
type Manager struct {
	cfg        Config
	httpClient *http.Client

	connect func(ctx context.Context, httpBase string) (*Session, error)
	launch  func(ctx context.Context) (*Session, error)
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewManager(cfg Config) *Manager {
	m := &Manager{cfg: cfg.withDefaults(), httpClient: &http.Client{Timeout: 5 * time.Second}}
	m.connect = m.connectRemote
	m.launch = m.launchLocal
	m.sleep = sleepCtx
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire returns a ready session. The caller must Close it.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	base := m.cfg.HTTPBase()
	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		sess, err := m.connect(ctx, base)
		if err == nil {
			slog.Info("browser session attached", "endpoint", base, "attempt", attempt)
			return sess, nil
		}
		lastErr = err
		slog.Warn("browser connect failed", "endpoint", base, "attempt", attempt, "max_attempts", m.cfg.MaxRetries, "error", err)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
		if attempt < m.cfg.MaxRetries {
			if err := m.sleep(ctx, m.cfg.RetryDelay); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
		}
	}

	if !m.cfg.LocalFallback {
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrUnavailable, base, m.cfg.MaxRetries, lastErr)
	}
	slog.Info("falling back to local headless browser")
	sess, err := m.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: remote: %v; local: %w", ErrUnavailable, lastErr, err)
	}
	return sess, nil
}

// Factory adapts the manager to capture.SessionFactory.
func (m *Manager) Factory() capture.SessionFactory {
	return capture.SessionFactoryFunc(func(ctx context.Context) (capture.Session, error) {
		sess, err := m.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	})
}

func (m *Manager) connectRemote(ctx context.Context, httpBase string) (*Session, error) {
	wsURL, err := ProbeEndpoint(ctx, m.httpClient, httpBase)
	if err != nil {
		return nil, err
	}
	return openSession(ctx, wsURL, m.cfg, nil)
}

func (m *Manager) launchLocal(ctx context.Context) (*Session, error) {
	port, err := netutil.FreePort("127.0.0.1")
	if err != nil {
		return nil, err
	}
	profile, err := os.MkdirTemp("", "heatmap-browser-")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	l := NewLauncher(LaunchConfig{
		ExecPath:     m.cfg.ExecPath,
		CDPAddress:   "127.0.0.1",
		CDPPort:      port,
		ProfileDir:   filepath.Clean(profile),
		WindowWidth:  m.cfg.WindowWidth,
		WindowHeight: m.cfg.WindowHeight,
		Scale:        m.cfg.Scale,
	})
	if err := l.Launch(ctx); err != nil {
		_ = os.RemoveAll(profile)
		return nil, err
	}
	wsURL, err := ProbeEndpoint(ctx, m.httpClient, l.HTTPBase())
	if err != nil {
		l.Stop()
		return nil, err
	}
	return openSession(ctx, wsURL, m.cfg, l)
}
