package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgnsrekt/heatmap_agent/internal/browser"
	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

// Config holds the settings shared by every binary: where the browser is,
// how the capture pipeline paces itself, where images go and how to log.
type Config struct {
	// Browser endpoint and acquisition policy
	BrowserHost          string
	BrowserPort          int
	BrowserMaxRetries    int
	BrowserRetryDelayMS  int
	BrowserLocalFallback bool
	BrowserExecPath      string

	// Capture behavior
	HeatmapURL         string
	OutputDir          string
	CaptureTimeoutMS   int
	ElementWaitMS      int
	PageSettleMS       int
	UISettleMS         int
	ChartSettleMS      int
	TimeframeSettleMS  int
	PreCaptureSettleMS int
	ProbeRender        bool
	SelectorsFile      string
	JournalDir         string

	// Price lookup
	PriceAPIURL    string
	PriceTimeoutMS int

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BrowserHost:          getEnvOrDefault("BROWSER_HOST", "localhost"),
		BrowserPort:          getEnvIntOrDefault("BROWSER_PORT", 9222),
		BrowserMaxRetries:    getEnvIntOrDefault("BROWSER_MAX_RETRIES", 5),
		BrowserRetryDelayMS:  getEnvIntOrDefault("BROWSER_RETRY_DELAY_MS", 2000),
		BrowserLocalFallback: getEnvBoolOrDefault("BROWSER_LOCAL_FALLBACK", false),
		BrowserExecPath:      getEnvOrDefault("BROWSER_EXEC_PATH", ""),
		HeatmapURL:           getEnvOrDefault("HEATMAP_URL", capture.DefaultTargetURL),
		OutputDir:            getEnvOrDefault("HEATMAP_OUTPUT_DIR", "output"),
		CaptureTimeoutMS:     getEnvIntOrDefault("CAPTURE_TIMEOUT_MS", 120000),
		ElementWaitMS:        getEnvIntOrDefault("ELEMENT_WAIT_MS", 20000),
		PageSettleMS:         getEnvIntOrDefault("PAGE_SETTLE_MS", 5000),
		UISettleMS:           getEnvIntOrDefault("UI_SETTLE_MS", 2000),
		ChartSettleMS:        getEnvIntOrDefault("CHART_SETTLE_MS", 15000),
		TimeframeSettleMS:    getEnvIntOrDefault("TIMEFRAME_SETTLE_MS", 3000),
		PreCaptureSettleMS:   getEnvIntOrDefault("PRE_CAPTURE_SETTLE_MS", 3000),
		ProbeRender:          getEnvBoolOrDefault("HEATMAP_PROBE_RENDER", true),
		SelectorsFile:        getEnvOrDefault("HEATMAP_SELECTORS_FILE", ""),
		JournalDir:           getEnvOrDefault("HEATMAP_JOURNAL_DIR", "logs/journal"),
		PriceAPIURL:          getEnvOrDefault("PRICE_API_URL", "https://api.coingecko.com/api/v3/simple/price"),
		PriceTimeoutMS:       getEnvIntOrDefault("PRICE_TIMEOUT_MS", 10000),
		LogLevel:             strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFile:              getEnvOrDefault("LOG_FILE", ""),
	}
	if cfg.BrowserMaxRetries < 1 {
		cfg.BrowserMaxRetries = 1
	}
	if cfg.CaptureTimeoutMS < 10000 {
		cfg.CaptureTimeoutMS = 10000
	}
	return cfg, nil
}

// BrowserURL returns the DevTools HTTP endpoint.
func (c *Config) BrowserURL() string {
	return fmt.Sprintf("http://%s:%d", c.BrowserHost, c.BrowserPort)
}

// Browser converts the settings for the session manager.
func (c *Config) Browser() browser.Config {
	return browser.Config{
		Host:          c.BrowserHost,
		Port:          c.BrowserPort,
		MaxRetries:    c.BrowserMaxRetries,
		RetryDelay:    ms(c.BrowserRetryDelayMS),
		LocalFallback: c.BrowserLocalFallback,
		ExecPath:      c.BrowserExecPath,
	}
}

// CaptureOptions builds pipeline options, applying the selector override
// file when one is configured.
func (c *Config) CaptureOptions() (capture.Options, error) {
	opts := capture.DefaultOptions()
	opts.TargetURL = c.HeatmapURL
	opts.ProbeRender = c.ProbeRender
	opts.Timings.ElementWait = ms(c.ElementWaitMS)
	opts.Timings.PageSettle = ms(c.PageSettleMS)
	opts.Timings.UISettle = ms(c.UISettleMS)
	opts.Timings.ChartSettle = ms(c.ChartSettleMS)
	opts.Timings.TimeframeSettle = ms(c.TimeframeSettleMS)
	opts.Timings.PreCaptureSettle = ms(c.PreCaptureSettleMS)
	if c.SelectorsFile != "" {
		sel, err := LoadSelectors(c.SelectorsFile)
		if err != nil {
			return capture.Options{}, err
		}
		opts.Selectors = sel
	}
	return opts, nil
}

func (c *Config) CaptureTimeout() time.Duration { return ms(c.CaptureTimeoutMS) }
func (c *Config) PriceTimeout() time.Duration   { return ms(c.PriceTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
