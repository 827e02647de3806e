package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgnsrekt/heatmap_agent/internal/dispatch"
)

const serverName = "liquidation-map"

// Dispatcher executes a named tool.
type Dispatcher interface {
	Call(ctx context.Context, name string, args map[string]any) ([]dispatch.Content, error)
}

type MapInput struct {
	Symbol    string `json:"symbol,omitempty" jsonschema:"Cryptocurrency symbol. Supported: BTC, ETH, BNB, ADA, SOL, XRP, DOT, DOGE, AVAX, MATIC. Defaults to BTC"`
	Timeframe string `json:"timeframe,omitempty" jsonschema:"Time period for the heatmap. Supported: 12 hour, 24 hour, 1 month, 3 month. Defaults to 24 hour"`
}

type PriceInput struct {
	Symbol string `json:"symbol" jsonschema:"Cryptocurrency symbol. Supported: BTC, ETH, BNB, ADA, SOL, XRP, DOT, DOGE, AVAX, MATIC"`
}

type AssetsInput struct{}

// New builds the MCP server with the three heatmap tools registered.
func New(d Dispatcher, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	h := &handlers{d: d}

	descriptions := map[string]string{}
	for _, t := range dispatch.Tools() {
		descriptions[t.Name] = t.Description
	}

	mcp.AddTool(server, &mcp.Tool{Name: dispatch.ToolLiquidationMap, Description: descriptions[dispatch.ToolLiquidationMap]}, h.liquidationMap)
	mcp.AddTool(server, &mcp.Tool{Name: dispatch.ToolCryptoPrice, Description: descriptions[dispatch.ToolCryptoPrice]}, h.cryptoPrice)
	mcp.AddTool(server, &mcp.Tool{Name: dispatch.ToolListAssets, Description: descriptions[dispatch.ToolListAssets]}, h.listAssets)
	return server
}

// Run serves on stdio until the client disconnects or ctx ends.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

type handlers struct {
	d Dispatcher
}

func (h *handlers) liquidationMap(ctx context.Context, _ *mcp.CallToolRequest, in MapInput) (*mcp.CallToolResult, any, error) {
	return h.call(ctx, dispatch.ToolLiquidationMap, map[string]any{"symbol": in.Symbol, "timeframe": in.Timeframe})
}

func (h *handlers) cryptoPrice(ctx context.Context, _ *mcp.CallToolRequest, in PriceInput) (*mcp.CallToolResult, any, error) {
	return h.call(ctx, dispatch.ToolCryptoPrice, map[string]any{"symbol": in.Symbol})
}

func (h *handlers) listAssets(ctx context.Context, _ *mcp.CallToolRequest, _ AssetsInput) (*mcp.CallToolResult, any, error) {
	return h.call(ctx, dispatch.ToolListAssets, nil)
}

func (h *handlers) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, any, error) {
	contents, err := h.d.Call(ctx, name, args)
	if err != nil {
		slog.Error("tool call failed", "tool", name, "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, nil, nil
	}
	return &mcp.CallToolResult{Content: toMCP(contents)}, nil, nil
}

func toMCP(contents []dispatch.Content) []mcp.Content {
	out := make([]mcp.Content, 0, len(contents))
	for _, c := range contents {
		switch c.Type {
		case "image":
			out = append(out, &mcp.ImageContent{Data: c.Data, MIMEType: c.MIMEType})
		default:
			out = append(out, &mcp.TextContent{Text: c.Text})
		}
	}
	return out
}
