package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/heatmap_agent/internal/artifact"
)

const maxNameAttempts = 100

// ArtifactStore persists finished images.
type ArtifactStore interface {
	Save(meta artifact.Meta, imageData []byte) (string, error)
}

// PriceLookup returns a display-formatted spot price. ok is false on any
// failure; a missing price never fails a capture.
type PriceLookup interface {
	Lookup(ctx context.Context, symbol string) (price string, ok bool)
}

// Finalizer decodes the raw screenshot, stores it under a unique name and
// composes the user-facing message.
type Finalizer struct {
	store     ArtifactStore
	prices    PriceLookup
	clock     Clock
	sourceURL string
}

func NewFinalizer(store ArtifactStore, prices PriceLookup, clock Clock, sourceURL string) *Finalizer {
	if clock == nil {
		clock = RealClock
	}
	return &Finalizer{store: store, prices: prices, clock: clock, sourceURL: sourceURL}
}

// ArtifactName builds the file name for a capture taken at t. attempt > 1
// appends a collision suffix to the timestamp.
func ArtifactName(req CaptureRequest, t time.Time, attempt int) string {
	stamp := t.Format("20060102_150405")
	if attempt > 1 {
		stamp = fmt.Sprintf("%s-%d", stamp, attempt)
	}
	return fmt.Sprintf("%s_liquidation_heatmap_%s_%s.png", strings.ToLower(req.Symbol), stamp, timeframeSlug(req.Timeframe))
}

// SuccessMessage is the text returned with a finished capture.
func SuccessMessage(req CaptureRequest, price string) string {
	msg := fmt.Sprintf("Successfully captured %s liquidation heatmap for %s timeframe.", req.Symbol, req.Timeframe)
	if price != "" {
		msg += fmt.Sprintf(" Current %s price: %s", req.Symbol, price)
	}
	return msg
}

// Finalize returns the stored artifact metadata, its path and the message.
func (f *Finalizer) Finalize(ctx context.Context, raw []byte, req CaptureRequest, runID string) (artifact.Meta, string, string, error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return artifact.Meta{}, "", "", newError(CodeCapture, "screenshot is not a valid PNG", err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return artifact.Meta{}, "", "", newError(CodeCapture, "failed to encode image", err)
	}

	price := ""
	if f.prices != nil {
		if p, ok := f.prices.Lookup(ctx, req.Symbol); ok {
			price = p
		}
	}

	now := f.clock.Now()
	bounds := img.Bounds()
	meta := artifact.Meta{
		RunID:      runID,
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		SizeBytes:  buf.Len(),
		CapturedAt: now,
		Price:      price,
		SourceURL:  f.sourceURL,
	}
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		meta.Name = ArtifactName(req, now, attempt)
		path, err := f.store.Save(meta, buf.Bytes())
		if errors.Is(err, artifact.ErrExists) {
			continue
		}
		if err != nil {
			return artifact.Meta{}, "", "", newError(CodeCapture, "failed to store image", err)
		}
		slog.Info("heatmap stored", "path", path, "width", meta.Width, "height", meta.Height, "bytes", meta.SizeBytes)
		return meta, path, SuccessMessage(req, price), nil
	}
	return artifact.Meta{}, "", "", newError(CodeCapture, "no free artifact name", artifact.ErrExists)
}
