package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ChartElement is a handle on the located chart container. It carries the
// query that matched, so later stages look the node up fresh.
type ChartElement struct {
	Query Query
}

// LocateChartElement waits for the chart container, trying the CSS locator
// first and the XPath locator second. The two attempts share wait.
func LocateChartElement(ctx context.Context, page Page, sel Selectors, wait time.Duration) (ChartElement, error) {
	attempts := []struct {
		q      Query
		budget time.Duration
	}{
		{CSS(sel.ChartCSS), wait * 3 / 4},
		{XPath(sel.ChartXPath), wait - wait*3/4},
	}
	var errs []error
	for _, a := range attempts {
		if a.q.Expr == "" {
			continue
		}
		waitCtx, cancel := context.WithTimeout(ctx, a.budget)
		err := page.WaitPresent(waitCtx, a.q)
		cancel()
		if err == nil {
			slog.Debug("chart element located", "query", a.q.String())
			return ChartElement{Query: a.q}, nil
		}
		slog.Debug("chart locator missed", "query", a.q.String(), "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return ChartElement{}, newError(CodeNotFound, "chart element not found", errors.Join(errs...))
}
