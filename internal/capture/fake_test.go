package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"
)

func envelope(data any) string {
	b, _ := json.Marshal(map[string]any{"ok": true, "data": data})
	return string(b)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.Bytes()
}

// fakePage simulates the widget page. The symbol input ignores direct
// writes unless acceptDirect is set or a React onChange prop is attached
// (reactInput) and the script calls it; keyboard entry always lands.
type fakePage struct {
	mu  sync.Mutex
	sel Selectors

	navErr       error
	waitErr      map[string]error
	clickErr     map[string]error
	acceptDirect bool
	reactInput   bool
	symbolValue  string
	typed        string
	triggerText  string
	triggerFound bool
	optionFound  bool
	box          BoundingBox
	boxErr       error
	fingerprints []string
	shot         []byte
	shotErr      error

	calls    []string
	lastClip Clip
	closes   int
}

func newFakePage(t *testing.T) *fakePage {
	return &fakePage{
		sel:          DefaultSelectors(),
		waitErr:      map[string]error{},
		clickErr:     map[string]error{},
		symbolValue:  "BTC",
		triggerText:  "24 hour",
		triggerFound: true,
		optionFound:  true,
		box:          BoundingBox{X: 10, Y: 20, Width: 800, Height: 400},
		shot:         testPNG(t, 8, 4),
	}
}

func (p *fakePage) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePage) called(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate " + url)
	return p.navErr
}

func (p *fakePage) Evaluate(_ context.Context, expr string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if expr == jsStabilizeRendering {
		p.record("eval stabilize")
		if b, ok := out.(*bool); ok {
			*b = true
		}
		return nil
	}
	raw, err := p.script(expr)
	if err != nil {
		return err
	}
	*(out.(*string)) = raw
	return nil
}

func (p *fakePage) script(expr string) (string, error) {
	switch {
	case expr == jsRenderFingerprint(p.sel.ChartCSS):
		p.record("eval fingerprint")
		fp := "steady"
		if len(p.fingerprints) > 0 {
			fp = p.fingerprints[0]
			p.fingerprints = p.fingerprints[1:]
		}
		switch fp {
		case "!":
			return `{"ok":false,"error_message":"probe broke"}`, nil
		case "absent":
			return envelope(map[string]any{"mounted": false, "sig": "complete|0"}), nil
		}
		return envelope(map[string]any{"mounted": true, "sig": fp}), nil
	case strings.Contains(expr, "setter.call"):
		p.record("eval set-symbol")
		handler := p.reactInput && strings.Contains(expr, "__reactProps$") && strings.Contains(expr, "props.onChange(")
		if p.acceptDirect || handler {
			var v string
			for _, s := range Symbols {
				if strings.Contains(expr, jsString(s)) {
					v = s
				}
			}
			p.symbolValue = v
		}
		return envelope(map[string]any{"found": true, "value": p.symbolValue, "handler": handler}), nil
	case expr == jsReadInputValue(p.sel.SymbolInputCSS):
		p.record("eval read-symbol")
		return envelope(map[string]any{"found": true, "value": p.symbolValue}), nil
	case expr == jsReadText(p.sel.TimeframeTrigger):
		p.record("eval read-timeframe")
		return envelope(map[string]any{"found": p.triggerFound, "text": p.triggerText}), nil
	case strings.Contains(expr, "clicked:true"):
		p.record("eval pick-timeframe")
		if !p.optionFound {
			return envelope(map[string]any{"clicked": false, "count": 0}), nil
		}
		for _, tf := range Timeframes {
			if strings.Contains(expr, jsString(tf)) {
				p.triggerText = tf
			}
		}
		return envelope(map[string]any{"clicked": true, "text": p.triggerText}), nil
	case strings.Contains(expr, "getBoundingClientRect"):
		p.record("eval bbox")
		if p.boxErr != nil {
			return "", p.boxErr
		}
		return envelope(map[string]any{"found": true, "x": p.box.X, "y": p.box.Y, "width": p.box.Width, "height": p.box.Height}), nil
	}
	p.record("eval unknown")
	return `{"ok":false,"error_message":"unknown script"}`, nil
}

func (p *fakePage) WaitPresent(_ context.Context, q Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait " + q.String())
	return p.waitErr[q.String()]
}

func (p *fakePage) Click(_ context.Context, q Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click " + q.String())
	if err := p.clickErr[q.String()]; err != nil {
		return err
	}
	if q.XPath && strings.Contains(q.Expr, "@role='option'") && p.typed != "" {
		p.symbolValue = p.typed
	}
	return nil
}

func (p *fakePage) TypeKeys(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("type " + text)
	p.typed = text
	return nil
}

func (p *fakePage) SelectAll(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("select-all")
	return nil
}

func (p *fakePage) PressEnter(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("enter")
	p.symbolValue = p.typed
	return nil
}

func (p *fakePage) CaptureScreenshot(_ context.Context, clip Clip) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("screenshot")
	p.lastClip = clip
	return p.shot, p.shotErr
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum time.Duration
	for _, d := range c.slept {
		sum += d
	}
	return sum
}

type priceFunc func(ctx context.Context, symbol string) (string, bool)

func (f priceFunc) Lookup(ctx context.Context, symbol string) (string, bool) { return f(ctx, symbol) }
