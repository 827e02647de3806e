package capture

import (
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultSymbol    = "BTC"
	DefaultTimeframe = "24 hour"
)

// Symbols is the closed set of tickers the heatmap widget is driven with.
var Symbols = []string{"BTC", "ETH", "BNB", "ADA", "SOL", "XRP", "DOT", "DOGE", "AVAX", "MATIC"}

// Timeframes is the closed set of widget time windows.
var Timeframes = []string{"12 hour", "24 hour", "1 month", "3 month"}

// CaptureRequest names one heatmap to render.
type CaptureRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// NewRequest normalizes raw user input into a request: the symbol is
// uppercased, inner whitespace in the timeframe is collapsed, and empty
// fields take the defaults.
func NewRequest(symbol, timeframe string) CaptureRequest {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = DefaultSymbol
	}
	timeframe = strings.Join(strings.Fields(strings.ToLower(timeframe)), " ")
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	return CaptureRequest{Symbol: symbol, Timeframe: timeframe}
}

// Validate checks both fields against the supported sets.
func (r CaptureRequest) Validate() error {
	if err := ValidateSymbol(r.Symbol); err != nil {
		return err
	}
	if !slices.Contains(Timeframes, r.Timeframe) {
		return newFieldError("timeframe", fmt.Sprintf("Unsupported timeframe '%s'. Supported timeframes: %s", r.Timeframe, strings.Join(Timeframes, ", ")))
	}
	return nil
}

// ValidateSymbol checks a single ticker against Symbols.
func ValidateSymbol(symbol string) error {
	if !slices.Contains(Symbols, symbol) {
		return newFieldError("symbol", fmt.Sprintf("Unsupported symbol '%s'. Supported symbols: %s", symbol, strings.Join(Symbols, ", ")))
	}
	return nil
}

// timeframeSlug turns "24 hour" into "24_hour" for file names.
func timeframeSlug(tf string) string {
	return strings.ReplaceAll(tf, " ", "_")
}
