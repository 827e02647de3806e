package dispatch

import (
	"strings"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

// Tool describes one callable operation and its JSON input schema.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

func symbolDescription() string {
	return "Cryptocurrency symbol. Supported: " + joinComma(capture.Symbols)
}

func joinComma(items []string) string { return strings.Join(items, ", ") }

// Tools is the catalogue advertised by the MCP server and the demo API.
func Tools() []Tool {
	return []Tool{
		{
			Name:        ToolLiquidationMap,
			Description: "Retrieve a cryptocurrency liquidation heatmap from Coinglass",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": symbolDescription(),
						"enum":        capture.Symbols,
						"default":     capture.DefaultSymbol,
					},
					"timeframe": map[string]any{
						"type":        "string",
						"description": "Time period for the heatmap. Supported: " + joinComma(capture.Timeframes),
						"enum":        capture.Timeframes,
						"default":     capture.DefaultTimeframe,
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        ToolCryptoPrice,
			Description: "Get the current price of a cryptocurrency",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": symbolDescription(),
						"enum":        capture.Symbols,
					},
				},
				"required": []string{"symbol"},
			},
		},
		{
			Name:        ToolListAssets,
			Description: "List all supported cryptocurrency symbols and timeframes",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
	}
}
