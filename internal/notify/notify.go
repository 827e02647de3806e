package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CaptureFailureMessage is the alert text for a scheduled capture that failed.
func CaptureFailureMessage(job, symbol, timeframe string, cause error) string {
	return fmt.Sprintf("Scheduled heatmap %q (%s, %s) failed: %v", job, symbol, timeframe, cause)
}

// SendCaptureFailure posts a failure alert to an ntfy topic.
func SendCaptureFailure(ctx context.Context, client *http.Client, endpoint, job, symbol, timeframe string, cause error) error {
	return Send(ctx, client, endpoint, CaptureFailureMessage(job, symbol, timeframe, cause))
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "heatmap capture failed")
	req.Header.Set("Tags", "warning")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
