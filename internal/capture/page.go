package capture

import (
	"context"
	"encoding/json"
)

// Query addresses DOM nodes either by CSS selector or by XPath.
type Query struct {
	Expr  string
	XPath bool
}

func CSS(expr string) Query   { return Query{Expr: expr} }
func XPath(expr string) Query { return Query{Expr: expr, XPath: true} }

func (q Query) String() string {
	if q.XPath {
		return "xpath:" + q.Expr
	}
	return "css:" + q.Expr
}

// Clip is a page-coordinate rectangle handed to the screenshot call.
type Clip struct {
	X, Y, Width, Height float64
	Scale               float64
}

// Page is the set of browser primitives the pipeline stages drive.
// Implementations bound every call by the supplied context.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, expr string, out any) error
	WaitPresent(ctx context.Context, q Query) error
	Click(ctx context.Context, q Query) error
	TypeKeys(ctx context.Context, text string) error
	SelectAll(ctx context.Context) error
	PressEnter(ctx context.Context) error
	CaptureScreenshot(ctx context.Context, clip Clip) ([]byte, error)
}

// Session is an exclusive page handle. Close must be safe to call twice.
type Session interface {
	Page
	Close() error
}

// SessionFactory hands out one Session per pipeline run.
type SessionFactory interface {
	Acquire(ctx context.Context) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (Session, error)

func (f SessionFactoryFunc) Acquire(ctx context.Context) (Session, error) { return f(ctx) }

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// evalJSON runs a script built with wrapJSEval and decodes its envelope.
func evalJSON(ctx context.Context, p Page, script string, out any) error {
	var raw string
	if err := p.Evaluate(ctx, script, &raw); err != nil {
		return err
	}
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeCapture, "invalid evaluation envelope", err)
	}
	if !env.OK {
		return &scriptError{msg: env.ErrorMessage}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

type scriptError struct{ msg string }

func (e *scriptError) Error() string { return "script error: " + e.msg }
