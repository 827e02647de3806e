package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/heatmap_agent/internal/dispatch"
)

// Service executes heatmap tools by name.
type Service interface {
	Call(ctx context.Context, name string, args map[string]any) ([]dispatch.Content, error)
}

type toolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type toolsOutput struct {
	Body struct {
		Success bool          `json:"success"`
		Tools   []toolSummary `json:"tools,omitempty"`
		Error   string        `json:"error,omitempty"`
	}
}

type priceInput struct {
	Symbol string `path:"symbol" doc:"Ticker, e.g. BTC"`
}

type priceOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Result  string `json:"result,omitempty"`
		Error   string `json:"error,omitempty"`
	}
}

type mapInput struct {
	Symbol    string `path:"symbol" doc:"Ticker, e.g. BTC"`
	Timeframe string `path:"timeframe" doc:"One of 12 hour, 24 hour, 1 month, 3 month (URL-encoded)"`
}

type mapOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Image   string `json:"image,omitempty" doc:"Base64 PNG"`
		Error   string `json:"error,omitempty"`
	}
}

type healthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// NewServer builds the demo HTTP handler.
func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Liquidation Heatmap Demo API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write(docsHTML); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(homeHTML); err != nil {
			slog.Debug("home response write failed", "error", err)
		}
	})

	registerHandlers(api, svc)
	return router
}

func registerHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "list-tools", Method: http.MethodGet, Path: "/api/tools", Summary: "List available tools", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct{}) (*toolsOutput, error) {
			out := &toolsOutput{}
			out.Body.Success = true
			for _, t := range dispatch.Tools() {
				out.Body.Tools = append(out.Body.Tools, toolSummary{Name: t.Name, Description: t.Description})
			}
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-price", Method: http.MethodGet, Path: "/api/price/{symbol}", Summary: "Current USD price", Tags: []string{"Tools"}},
		func(ctx context.Context, input *priceInput) (*priceOutput, error) {
			out := &priceOutput{}
			contents, err := svc.Call(ctx, dispatch.ToolCryptoPrice, map[string]any{"symbol": input.Symbol})
			if err != nil {
				out.Body.Error = err.Error()
				return out, nil
			}
			out.Body.Success = true
			out.Body.Result = firstText(contents)
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-map", Method: http.MethodGet, Path: "/api/map/{symbol}/{timeframe}", Summary: "Capture a liquidation heatmap", Tags: []string{"Tools"}},
		func(ctx context.Context, input *mapInput) (*mapOutput, error) {
			out := &mapOutput{}
			timeframe := input.Timeframe
			if unescaped, err := url.PathUnescape(timeframe); err == nil {
				timeframe = unescaped
			}
			contents, err := svc.Call(ctx, dispatch.ToolLiquidationMap, map[string]any{"symbol": input.Symbol, "timeframe": timeframe})
			if err != nil {
				out.Body.Error = err.Error()
				return out, nil
			}
			out.Body.Success = true
			out.Body.Message = firstText(contents)
			for _, c := range contents {
				if c.Type == "image" {
					out.Body.Image = base64.StdEncoding.EncodeToString(c.Data)
				}
			}
			return out, nil
		})
}

func firstText(contents []dispatch.Content) string {
	for _, c := range contents {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}
