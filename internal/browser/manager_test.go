package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type connectRecorder struct {
	calls    int
	failFor  int
	sleeps   []time.Duration
	launched int
}

func newTestManager(cfg Config, rec *connectRecorder) *Manager {
	m := NewManager(cfg)
	m.connect = func(context.Context, string) (*Session, error) {
		rec.calls++
		if rec.calls <= rec.failFor {
			return nil, errors.New("connection refused")
		}
		return &Session{}, nil
	}
	m.launch = func(context.Context) (*Session, error) {
		rec.launched++
		return &Session{}, nil
	}
	m.sleep = func(_ context.Context, d time.Duration) error {
		rec.sleeps = append(rec.sleeps, d)
		return nil
	}
	return m
}

func TestAcquireGivesUpAfterMaxRetries(t *testing.T) {
	rec := &connectRecorder{failFor: 100}
	m := newTestManager(Config{MaxRetries: 5, RetryDelay: 2 * time.Second}, rec)

	_, err := m.Acquire(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Acquire() = %v; want ErrUnavailable", err)
	}
	if rec.calls != 5 {
		t.Fatalf("connect calls = %d; want 5", rec.calls)
	}
	if len(rec.sleeps) != 4 {
		t.Fatalf("sleeps = %v; want 4", rec.sleeps)
	}
	for _, d := range rec.sleeps {
		if d != 2*time.Second {
			t.Fatalf("sleep = %s; want 2s", d)
		}
	}
	if rec.launched != 0 {
		t.Fatalf("local launch = %d; want 0 without fallback", rec.launched)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("Acquire() error = %q; want cause", err)
	}
}

func TestAcquireSucceedsOnRetry(t *testing.T) {
	rec := &connectRecorder{failFor: 2}
	m := newTestManager(Config{MaxRetries: 5, RetryDelay: time.Second}, rec)

	sess, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() = %v; want nil", err)
	}
	if sess == nil || rec.calls != 3 || len(rec.sleeps) != 2 {
		t.Fatalf("calls = %d, sleeps = %d", rec.calls, len(rec.sleeps))
	}
}

func TestAcquireFallsBackToLocal(t *testing.T) {
	rec := &connectRecorder{failFor: 100}
	m := newTestManager(Config{MaxRetries: 3, LocalFallback: true}, rec)

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() = %v; want nil", err)
	}
	if rec.calls != 3 || rec.launched != 1 {
		t.Fatalf("calls = %d, launched = %d; want 3, 1", rec.calls, rec.launched)
	}
}

func TestAcquireStopsOnCancel(t *testing.T) {
	rec := &connectRecorder{failFor: 100}
	m := newTestManager(Config{MaxRetries: 5}, rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() = %v; want context.Canceled", err)
	}
	if rec.calls != 1 {
		t.Fatalf("connect calls = %d; want 1", rec.calls)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	cancels := 0
	s := &Session{allocCancel: func() { cancels++ }}
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("Close() = %v; want nil", err)
		}
	}
	if cancels != 1 {
		t.Fatalf("allocator cancelled %d times; want 1", cancels)
	}
}

func TestFactoryReturnsNilSessionOnError(t *testing.T) {
	rec := &connectRecorder{failFor: 100}
	m := newTestManager(Config{MaxRetries: 1}, rec)

	sess, err := m.Factory().Acquire(context.Background())
	if err == nil {
		t.Fatal("Acquire() error = nil; want error")
	}
	if sess != nil {
		t.Fatalf("Acquire() session = %#v; want nil interface", sess)
	}
}

func TestBrowserWSURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"Browser":"HeadlessChrome/120","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/abc"}`)
	}))
	defer srv.Close()

	got, err := browserWSURL(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("browserWSURL() = %v; want nil", err)
	}
	if got != "ws://127.0.0.1:9222/devtools/browser/abc" {
		t.Fatalf("browserWSURL() = %q", got)
	}
}

func TestProbeEndpointRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := ProbeEndpoint(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatal("ProbeEndpoint() error = nil; want error")
	}
}

func TestLauncherArgsCarryHeadlessFlags(t *testing.T) {
	l := NewLauncher(LaunchConfig{CDPPort: 9333, ProfileDir: "/tmp/p"})
	args := strings.Join(l.Args(), " ")
	for _, want := range []string{"--headless=new", "--no-sandbox", "--window-size=5400,2950", "--force-device-scale-factor=2", "--remote-debugging-port=9333", "--disable-gpu"} {
		if !strings.Contains(args, want) {
			t.Fatalf("Args() = %q; missing %q", args, want)
		}
	}
}
