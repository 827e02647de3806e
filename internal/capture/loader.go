package capture

import (
	"context"
	"log/slog"
)

// LoadAndStabilize opens the widget page, disables animations, pins the
// device pixel ratio and waits out the initial render.
func LoadAndStabilize(ctx context.Context, page Page, stab *Stabilizer, opts Options) error {
	opts = opts.withDefaults()
	slog.Info("navigating to heatmap page", "url", opts.TargetURL)
	if err := page.Navigate(ctx, opts.TargetURL); err != nil {
		return newError(CodeNavigation, "failed to load heatmap page", err)
	}
	var injected bool
	if err := page.Evaluate(ctx, jsStabilizeRendering, &injected); err != nil {
		return newError(CodeNavigation, "failed to apply rendering overrides", err)
	}
	if err := stab.Settle(ctx, page, opts.Timings.PageSettle); err != nil {
		return newError(CodeNavigation, "page did not settle", err)
	}
	return nil
}
