package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

const (
	ToolLiquidationMap = "get_liquidation_map"
	ToolCryptoPrice    = "get_crypto_price"
	ToolListAssets     = "list_supported_assets"
)

// Capturer runs one heatmap capture.
type Capturer interface {
	Run(ctx context.Context, req capture.CaptureRequest) (capture.Result, error)
}

// Quoter returns a formatted price, ok=false on failure.
type Quoter interface {
	Lookup(ctx context.Context, symbol string) (string, bool)
}

// ArtifactTaker reads an artifact and removes it from disk.
type ArtifactTaker interface {
	Take(path string) ([]byte, error)
}

// Content is one block of a tool result.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type,omitempty"`
}

func textContent(s string) []Content { return []Content{{Type: "text", Text: s}} }

// Service is the single entry point every front end goes through.
type Service struct {
	capturer  Capturer
	prices    Quoter
	artifacts ArtifactTaker
	timeout   time.Duration
}

// NewService wires the dispatcher. timeout bounds each capture run; zero
// leaves the caller's context alone.
func NewService(c Capturer, p Quoter, a ArtifactTaker, timeout time.Duration) *Service {
	return &Service{capturer: c, prices: p, artifacts: a, timeout: timeout}
}

func errorText(err error) string {
	var coded *capture.CodedError
	if errors.As(err, &coded) && coded.Code == capture.CodeValidation {
		return "Error: " + coded.Message
	}
	return fmt.Sprintf("Error capturing heatmap: %v", err)
}

// Heatmap is a finished capture as seen by the frontends. Price is the
// quote taken while finalizing, empty when the lookup failed.
type Heatmap struct {
	Path    string
	Message string
	Price   string
}

// CaptureMap validates input and runs the pipeline. On failure Path is
// empty, Message is the user-facing error text and err carries the cause.
func (s *Service) CaptureMap(ctx context.Context, symbol, timeframe string) (Heatmap, error) {
	req := capture.NewRequest(symbol, timeframe)
	if err := req.Validate(); err != nil {
		return Heatmap{Message: errorText(err)}, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.capturer.Run(ctx, req)
	if err != nil {
		return Heatmap{Message: errorText(err)}, err
	}
	return Heatmap{Path: res.Path, Message: res.Message, Price: res.Meta.Price}, nil
}

// Price returns "Current SYM price: $x" or the failure text.
func (s *Service) Price(ctx context.Context, symbol string) (string, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "Error: Symbol is required", false
	}
	if err := capture.ValidateSymbol(symbol); err != nil {
		return errorText(err), false
	}
	if p, ok := s.prices.Lookup(ctx, symbol); ok {
		return fmt.Sprintf("Current %s price: %s", symbol, p), true
	}
	return fmt.Sprintf("Failed to fetch price for %s", symbol), false
}

// Assets describes the supported sets with usage examples.
func (s *Service) Assets() string {
	return fmt.Sprintf(`Supported Cryptocurrency Symbols:
%s

Supported Timeframes:
%s

Usage Examples:
- get_liquidation_map(symbol="BTC", timeframe="24 hour")
- get_liquidation_map(symbol="ETH", timeframe="1 month")
- get_crypto_price(symbol="BTC")`, strings.Join(capture.Symbols, ", "), strings.Join(capture.Timeframes, ", "))
}

func stringArg(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}

// Call executes a tool by name. Tool-level failures come back as text
// content; err is reserved for failures the caller should surface itself.
func (s *Service) Call(ctx context.Context, name string, args map[string]any) ([]Content, error) {
	if args == nil {
		args = map[string]any{}
	}
	slog.Info("tool call", "tool", name)
	switch name {
	case ToolLiquidationMap:
		return s.callLiquidationMap(ctx, args)
	case ToolCryptoPrice:
		text, _ := s.Price(ctx, stringArg(args, "symbol", ""))
		return textContent(text), nil
	case ToolListAssets:
		return textContent(s.Assets()), nil
	}
	return textContent(fmt.Sprintf("Error: Unknown tool '%s'", name)), nil
}

func (s *Service) callLiquidationMap(ctx context.Context, args map[string]any) ([]Content, error) {
	symbol := stringArg(args, "symbol", capture.DefaultSymbol)
	timeframe := stringArg(args, "timeframe", capture.DefaultTimeframe)
	hm, err := s.CaptureMap(ctx, symbol, timeframe)
	if err != nil {
		return textContent(hm.Message), nil
	}
	data, err := s.artifacts.Take(hm.Path)
	if err != nil {
		slog.Error("reading heatmap artifact failed", "path", hm.Path, "error", err)
		return textContent(hm.Message), nil
	}
	return []Content{
		{Type: "text", Text: hm.Message},
		{Type: "image", Data: data, MIMEType: "image/png"},
	}, nil
}
