package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"BROWSER_HOST", "BROWSER_PORT", "BROWSER_MAX_RETRIES", "BROWSER_RETRY_DELAY_MS", "HEATMAP_OUTPUT_DIR", "CAPTURE_TIMEOUT_MS", "HEATMAP_SELECTORS_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.BrowserURL(), "http://localhost:9222"; got != want {
		t.Fatalf("BrowserURL() = %q; want %q", got, want)
	}
	b := cfg.Browser()
	if b.MaxRetries != 5 || b.RetryDelay != 2*time.Second {
		t.Fatalf("Browser() = %+v; want 5 retries, 2s delay", b)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("OutputDir = %q; want output", cfg.OutputDir)
	}
	if cfg.CaptureTimeout() != 2*time.Minute {
		t.Fatalf("CaptureTimeout() = %s; want 2m", cfg.CaptureTimeout())
	}
}

func TestLoadOverridesAndClamps(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BROWSER_HOST", "selenium")
	t.Setenv("BROWSER_PORT", "4444")
	t.Setenv("BROWSER_MAX_RETRIES", "0")
	t.Setenv("CAPTURE_TIMEOUT_MS", "5")
	t.Setenv("CHART_SETTLE_MS", "1234")
	t.Setenv("BROWSER_LOCAL_FALLBACK", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BrowserURL() != "http://selenium:4444" {
		t.Fatalf("BrowserURL() = %q", cfg.BrowserURL())
	}
	if cfg.BrowserMaxRetries != 1 {
		t.Fatalf("BrowserMaxRetries = %d; want clamp to 1", cfg.BrowserMaxRetries)
	}
	if cfg.CaptureTimeoutMS != 10000 {
		t.Fatalf("CaptureTimeoutMS = %d; want clamp to 10000", cfg.CaptureTimeoutMS)
	}
	if !cfg.Browser().LocalFallback {
		t.Fatal("LocalFallback = false; want true")
	}
	opts, err := cfg.CaptureOptions()
	if err != nil {
		t.Fatalf("CaptureOptions() error = %v", err)
	}
	if opts.Timings.ChartSettle != 1234*time.Millisecond {
		t.Fatalf("ChartSettle = %s", opts.Timings.ChartSettle)
	}
}

func TestLoadSelectorsMergesDefaults(t *testing.T) {
	path := writeFile(t, "selectors.yaml", "chart_css: div.heatmap-canvas\noption_exact_xpath: \"//li[text()='%s']\"\n")

	sel, err := LoadSelectors(path)
	if err != nil {
		t.Fatalf("LoadSelectors() error = %v", err)
	}
	if sel.ChartCSS != "div.heatmap-canvas" {
		t.Fatalf("ChartCSS = %q", sel.ChartCSS)
	}
	if sel.OptionExactXPath != "//li[text()='%s']" {
		t.Fatalf("OptionExactXPath = %q", sel.OptionExactXPath)
	}
	if sel.TimeframeTrigger != "div.MuiSelect-root button.MuiSelect-button" {
		t.Fatalf("TimeframeTrigger = %q; want default", sel.TimeframeTrigger)
	}
}

func TestLoadSelectorsRejectsBadTemplate(t *testing.T) {
	path := writeFile(t, "selectors.yaml", "option_exact_xpath: \"//li\"\n")
	if _, err := LoadSelectors(path); err == nil {
		t.Fatal("LoadSelectors() error = nil; want error")
	}
}

func TestLoadSchedule(t *testing.T) {
	path := writeFile(t, "schedule.yaml", `
timezone: UTC
jobs:
  - name: btc-morning
    cron: "0 0 8 * * *"
    symbol: btc
  - cron: "0 30 20 * * *"
    symbol: ETH
    timeframe: 1 Month
`)
	s, err := LoadSchedule(path)
	if err != nil {
		t.Fatalf("LoadSchedule() error = %v", err)
	}
	if len(s.Jobs) != 2 {
		t.Fatalf("jobs = %d; want 2", len(s.Jobs))
	}
	if s.Jobs[0].Symbol != "BTC" || s.Jobs[0].Timeframe != "24 hour" {
		t.Fatalf("job 0 = %+v", s.Jobs[0])
	}
	if s.Jobs[1].Name != "job-2" || s.Jobs[1].Timeframe != "1 month" {
		t.Fatalf("job 1 = %+v", s.Jobs[1])
	}
}

func TestLoadScheduleRejectsUnsupportedSymbol(t *testing.T) {
	path := writeFile(t, "schedule.yaml", "jobs:\n  - cron: \"@hourly\"\n    symbol: PEPE\n")
	_, err := LoadSchedule(path)
	if err == nil || !strings.Contains(err.Error(), "Unsupported symbol 'PEPE'") {
		t.Fatalf("LoadSchedule() error = %v; want unsupported symbol", err)
	}
}

func TestLoadBotRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := LoadBot(); err == nil {
		t.Fatal("LoadBot() error = nil; want error")
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err := LoadBot()
	if err != nil || cfg.Token != "123:abc" {
		t.Fatalf("LoadBot() = %+v, %v", cfg, err)
	}
}

func TestLoadDemoCandidates(t *testing.T) {
	t.Setenv("DEMO_PORT_CANDIDATES", " 127.0.0.1:9001, ,127.0.0.1:9002")
	cfg, err := LoadDemo()
	if err != nil {
		t.Fatalf("LoadDemo() error = %v", err)
	}
	if len(cfg.PortCandidates) != 2 || cfg.PortCandidates[1] != "127.0.0.1:9002" {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
}
