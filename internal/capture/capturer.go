package capture

import (
	"context"
	"log/slog"
)

// CaptureClip screenshots exactly the box, beyond the viewport if needed.
func CaptureClip(ctx context.Context, page Page, box BoundingBox, scale float64) ([]byte, error) {
	clip := box.Clip(scale)
	data, err := page.CaptureScreenshot(ctx, clip)
	if err != nil {
		return nil, newError(CodeCapture, "screenshot failed", err)
	}
	if len(data) == 0 {
		return nil, newError(CodeCapture, "screenshot returned no data", nil)
	}
	slog.Debug("clip captured", "x", clip.X, "y", clip.Y, "width", clip.Width, "height", clip.Height, "scale", clip.Scale, "bytes", len(data))
	return data, nil
}
