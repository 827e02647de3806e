package capture

import (
	"context"
	"fmt"
)

// BoundingBox is a page-coordinate rectangle in CSS pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type boxResult struct {
	Found bool `json:"found"`
	BoundingBox
}

// ReadBoundingBox measures the element. A zero-area box is an error.
func ReadBoundingBox(ctx context.Context, page Page, el ChartElement) (BoundingBox, error) {
	var res boxResult
	if err := evalJSON(ctx, page, jsBoundingBox(el.Query), &res); err != nil {
		return BoundingBox{}, newError(CodeCapture, "failed to read chart geometry", err)
	}
	if !res.Found {
		return BoundingBox{}, newError(CodeCapture, "chart element detached before measurement", nil)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return BoundingBox{}, newError(CodeCapture, fmt.Sprintf("chart element has empty area %.0fx%.0f", res.Width, res.Height), nil)
	}
	return res.BoundingBox, nil
}

// Clip converts the box to a screenshot clip at the given scale.
func (b BoundingBox) Clip(scale float64) Clip {
	return Clip{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, Scale: scale}
}
