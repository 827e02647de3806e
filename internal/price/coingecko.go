package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3/simple/price"
	DefaultTimeout = 10 * time.Second
)

// CoinIDs maps supported tickers to CoinGecko asset ids.
var CoinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"SOL":   "solana",
	"XRP":   "ripple",
	"DOT":   "polkadot",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
}

// Quote is a USD spot price.
type Quote struct {
	Symbol string
	CoinID string
	USD    decimal.Decimal
}

// Formatted renders the price as $1,234.56.
func (q Quote) Formatted() string {
	return "$" + humanize.FormatFloat("#,###.##", q.USD.Round(2).InexactFloat64())
}

// Client queries the CoinGecko simple price endpoint.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, timeout: timeout, http: client}
}

// Quote fetches the current USD price for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	id, ok := CoinIDs[symbol]
	if !ok {
		id = strings.ToLower(symbol)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("price request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Quote{}, fmt.Errorf("price request: status=%d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Quote{}, fmt.Errorf("price response: %w", err)
	}
	raw, err := jsonpath.Get(fmt.Sprintf("$[%q].usd", id), doc)
	if err != nil {
		return Quote{}, fmt.Errorf("price for %s missing: %w", id, err)
	}
	usd, err := toDecimal(raw)
	if err != nil {
		return Quote{}, fmt.Errorf("price for %s: %w", id, err)
	}
	return Quote{Symbol: symbol, CoinID: id, USD: usd}, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected price type %T", v)
}

// Lookup is the best-effort form used when composing messages.
func (c *Client) Lookup(ctx context.Context, symbol string) (string, bool) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		slog.Warn("price lookup failed", "symbol", symbol, "error", err)
		return "", false
	}
	return q.Formatted(), true
}
