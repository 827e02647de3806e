package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SymbolStrategy is one way of switching the widget's asset.
type SymbolStrategy interface {
	Name() string
	Apply(ctx context.Context, page Page, symbol string) error
}

type inputValue struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// DirectState writes the symbol into the autocomplete input, invokes the
// React onChange handler if present and fires the events the widget
// listens to.
type DirectState struct {
	Selectors Selectors
	Stab      *Stabilizer
	Settle    time.Duration
}

func (DirectState) Name() string { return "direct_state" }

func (d DirectState) Apply(ctx context.Context, page Page, symbol string) error {
	var res struct {
		inputValue
		Handler bool `json:"handler"`
	}
	if err := evalJSON(ctx, page, jsSetInputValue(d.Selectors.SymbolInputCSS, symbol), &res); err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("symbol input %q not found", d.Selectors.SymbolInputCSS)
	}
	slog.Debug("symbol written to input", "symbol", symbol, "react_handler", res.Handler)
	return d.Stab.Sleep(ctx, d.Settle)
}

// KeyboardSimulation opens the symbol tab when there is one and types into
// the search box the way a user would.
type KeyboardSimulation struct {
	Selectors  Selectors
	Stab       *Stabilizer
	Settle     time.Duration
	ClickWait  time.Duration
	OptionWait time.Duration
}

func (KeyboardSimulation) Name() string { return "keyboard_simulation" }

func (k KeyboardSimulation) Apply(ctx context.Context, page Page, symbol string) error {
	if err := k.click(ctx, page, XPath(k.Selectors.SymbolTabXPath), k.ClickWait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("symbol tab not clickable, using input directly", "error", err)
	}
	if err := k.Stab.Sleep(ctx, k.Settle); err != nil {
		return err
	}
	if err := k.click(ctx, page, CSS(k.Selectors.SymbolInputCSS), k.ClickWait); err != nil {
		return fmt.Errorf("focus symbol input: %w", err)
	}
	if err := page.SelectAll(ctx); err != nil {
		return fmt.Errorf("select input text: %w", err)
	}
	if err := page.TypeKeys(ctx, symbol); err != nil {
		return fmt.Errorf("type symbol: %w", err)
	}
	if err := k.Stab.Sleep(ctx, k.Settle); err != nil {
		return err
	}
	option := XPath(fmt.Sprintf(k.Selectors.OptionExactXPath, symbol))
	if err := k.click(ctx, page, option, k.OptionWait); err != nil {
		slog.Debug("symbol option not clickable, pressing enter", "symbol", symbol, "error", err)
		if err := page.PressEnter(ctx); err != nil {
			return fmt.Errorf("confirm symbol: %w", err)
		}
	}
	return nil
}

func (k KeyboardSimulation) click(ctx context.Context, page Page, q Query, wait time.Duration) error {
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	return page.Click(ctx, q)
}

// ParameterSelector drives the widget to the requested symbol and timeframe.
// Failures are collected, never returned as fatal, so capture can continue
// with whatever the widget currently shows.
type ParameterSelector struct {
	sel        Selectors
	timings    Timings
	stab       *Stabilizer
	strategies []SymbolStrategy
}

// NewParameterSelector tries DirectState first and falls back to
// KeyboardSimulation when the read-back does not match.
func NewParameterSelector(stab *Stabilizer, opts Options) *ParameterSelector {
	opts = opts.withDefaults()
	t := opts.Timings
	return &ParameterSelector{
		sel:     opts.Selectors,
		timings: t,
		stab:    stab,
		strategies: []SymbolStrategy{
			DirectState{Selectors: opts.Selectors, Stab: stab, Settle: t.TimeframeSettle},
			KeyboardSimulation{Selectors: opts.Selectors, Stab: stab, Settle: t.UISettle, ClickWait: t.ElementWait / 2, OptionWait: t.UISettle},
		},
	}
}

// WithStrategies replaces the symbol strategies, in order.
func (s *ParameterSelector) WithStrategies(strategies ...SymbolStrategy) *ParameterSelector {
	s.strategies = strategies
	return s
}

// ApplyParameters returns every non-fatal SELECTION error it hit.
func (s *ParameterSelector) ApplyParameters(ctx context.Context, page Page, req CaptureRequest) []error {
	var errs []error
	if req.Symbol != DefaultSymbol {
		if err := s.selectSymbol(ctx, page, req.Symbol); err != nil {
			errs = append(errs, err)
		}
	}
	if ctx.Err() != nil {
		return errs
	}
	if err := s.selectTimeframe(ctx, page, req.Timeframe); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (s *ParameterSelector) selectSymbol(ctx context.Context, page Page, symbol string) error {
	var failures []string
	for _, strategy := range s.strategies {
		err := strategy.Apply(ctx, page, symbol)
		if err == nil {
			err = s.verifySymbol(ctx, page, symbol)
		}
		if err == nil {
			slog.Info("symbol selected", "symbol", symbol, "strategy", strategy.Name())
			if err := s.stab.Settle(ctx, page, s.timings.ChartSettle); err != nil {
				return newError(CodeSelection, "chart did not settle after symbol change", err)
			}
			return nil
		}
		slog.Warn("symbol strategy failed", "symbol", symbol, "strategy", strategy.Name(), "error", err)
		failures = append(failures, strategy.Name()+": "+err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	return &CodedError{
		Code:    CodeSelection,
		Field:   "symbol",
		Message: fmt.Sprintf("could not select symbol %s (%s)", symbol, strings.Join(failures, "; ")),
	}
}

func (s *ParameterSelector) verifySymbol(ctx context.Context, page Page, symbol string) error {
	var res inputValue
	if err := evalJSON(ctx, page, jsReadInputValue(s.sel.SymbolInputCSS), &res); err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("symbol input %q not found", s.sel.SymbolInputCSS)
	}
	if !strings.EqualFold(strings.TrimSpace(res.Value), symbol) {
		return fmt.Errorf("symbol input shows %q", res.Value)
	}
	return nil
}

type textValue struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

type optionClick struct {
	Clicked bool   `json:"clicked"`
	Text    string `json:"text"`
	Count   int    `json:"count"`
}

func (s *ParameterSelector) selectTimeframe(ctx context.Context, page Page, timeframe string) error {
	fail := func(msg string, cause error) error {
		return &CodedError{Code: CodeSelection, Field: "timeframe", Message: msg, Cause: cause}
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.timings.ElementWait)
	err := page.WaitPresent(waitCtx, CSS(s.sel.TimeframeTrigger))
	cancel()
	if err != nil {
		return fail("timeframe control not found", err)
	}
	var current textValue
	if err := evalJSON(ctx, page, jsReadText(s.sel.TimeframeTrigger), &current); err != nil {
		return fail("could not read timeframe control", err)
	}
	if !current.Found {
		return fail("timeframe control not found", nil)
	}
	if strings.EqualFold(current.Text, timeframe) {
		slog.Debug("timeframe already selected", "timeframe", timeframe)
		return nil
	}
	clickCtx, cancel := context.WithTimeout(ctx, s.timings.ElementWait/2)
	err = page.Click(clickCtx, CSS(s.sel.TimeframeTrigger))
	cancel()
	if err != nil {
		return fail("could not open timeframe menu", err)
	}
	if err := s.stab.Sleep(ctx, s.timings.UISettle); err != nil {
		return fail("interrupted", err)
	}
	var click optionClick
	if err := evalJSON(ctx, page, jsClickOptionContaining(s.sel.OptionCSS, timeframe), &click); err != nil {
		return fail("could not choose timeframe option", err)
	}
	if !click.Clicked {
		return fail(fmt.Sprintf("no option matching %q among %d", timeframe, click.Count), nil)
	}
	slog.Info("timeframe selected", "timeframe", timeframe, "option", click.Text)
	if err := s.stab.Settle(ctx, page, s.timings.TimeframeSettle); err != nil {
		return fail("chart did not settle after timeframe change", err)
	}
	return nil
}
