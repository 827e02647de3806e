package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gobwas/ws"
)

// ProbeEndpoint resolves the browser-level WebSocket URL from /json/version
// and checks that the WebSocket handshake succeeds. Both steps are capped at
// 5s, so an unreachable endpoint fails an acquisition attempt before the
// chromedp attach timeout comes into play.
func ProbeEndpoint(ctx context.Context, client *http.Client, httpBase string) (string, error) {
	wsURL, err := browserWSURL(ctx, client, httpBase)
	if err != nil {
		return "", err
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, _, _, err := ws.Dial(dialCtx, wsURL)
	if err != nil {
		return "", fmt.Errorf("websocket handshake %s: %w", wsURL, err)
	}
	_ = conn.Close()
	return wsURL, nil
}

func browserWSURL(ctx context.Context, client *http.Client, httpBase string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(httpBase, "/")+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("/json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}
