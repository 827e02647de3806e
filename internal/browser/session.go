package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

// Session is one tab on a remote or locally launched browser. It is not
// shared between captures.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	launcher    *Launcher

	closeOnce sync.Once
	closeErr  error
}

var _ capture.Session = (*Session)(nil)

// openSession attaches a fresh tab to the browser at wsURL and applies the
// device metrics override.
func openSession(ctx context.Context, wsURL string, cfg Config, launcher *Launcher) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), wsURL, chromedp.NoModifyURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s := &Session{ctx: tabCtx, cancel: tabCancel, allocCancel: allocCancel, launcher: launcher}

	// The first Run allocates the tab and binds it to tabCtx, so it must not
	// run under a derived deadline.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()
	select {
	case err := <-done:
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("attach tab: %w", err)
		}
	case <-time.After(cfg.AttachTimeout):
		_ = s.Close()
		return nil, fmt.Errorf("attach tab: timed out after %s", cfg.AttachTimeout)
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}

	metrics := emulation.SetDeviceMetricsOverride(int64(cfg.WindowWidth), int64(cfg.WindowHeight), cfg.Scale, false)
	if err := s.run(ctx, metrics); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set device metrics: %w", err)
	}
	return s, nil
}

// run executes actions on the tab, bounded by the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		runCtx, cancelDL = context.WithDeadline(runCtx, dl)
		defer cancelDL()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func by(q capture.Query) chromedp.QueryOption {
	if q.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Evaluate(ctx context.Context, expr string, out any) error {
	return s.run(ctx, chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (s *Session) WaitPresent(ctx context.Context, q capture.Query) error {
	return s.run(ctx, chromedp.WaitReady(q.Expr, by(q)))
}

func (s *Session) Click(ctx context.Context, q capture.Query) error {
	return s.run(ctx, chromedp.Click(q.Expr, by(q), chromedp.NodeVisible))
}

func (s *Session) TypeKeys(ctx context.Context, text string) error {
	return s.run(ctx, chromedp.KeyEvent(text))
}

func (s *Session) SelectAll(ctx context.Context) error {
	return s.run(ctx, chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)))
}

func (s *Session) PressEnter(ctx context.Context) error {
	return s.run(ctx, chromedp.KeyEvent(kb.Enter))
}

func (s *Session) CaptureScreenshot(ctx context.Context, clip capture.Clip) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{X: clip.X, Y: clip.Y, Width: clip.Width, Height: clip.Height, Scale: clip.Scale}).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			Do(ctx)
		return err
	}))
	return buf, err
}

// Close closes the tab, drops the allocator and stops a locally launched
// browser. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.ctx != nil {
			s.closeErr = chromedp.Cancel(s.ctx)
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		if s.launcher != nil {
			s.launcher.Stop()
		}
	})
	return s.closeErr
}
