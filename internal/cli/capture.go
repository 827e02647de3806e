package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

func captureCmd(st *state) *cobra.Command {
	var symbol, timeframe string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a heatmap into the output directory",
		Example: `  heatmap capture
  heatmap capture -s ETH -t "1 month"`,
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := st.stack()
			if err != nil {
				return err
			}
			hm, err := a.Service.CaptureMap(c.Context(), symbol, timeframe)
			if err != nil {
				return fmt.Errorf("%s", hm.Message)
			}
			fmt.Fprintln(c.OutOrStdout(), hm.Message)
			fmt.Fprintln(c.OutOrStdout(), hm.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", capture.DefaultSymbol, "asset symbol")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", capture.DefaultTimeframe, "time window ("+strings.Join(capture.Timeframes, ", ")+")")
	return cmd
}

func priceCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "price SYMBOL",
		Short: "Print the current USD price",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			a, err := st.stack()
			if err != nil {
				return err
			}
			text, ok := a.Service.Price(c.Context(), args[0])
			if !ok {
				return fmt.Errorf("%s", text)
			}
			fmt.Fprintln(c.OutOrStdout(), text)
			return nil
		},
	}
}

func assetsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List supported symbols and timeframes",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := st.stack()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), a.Service.Assets())
			return nil
		},
	}
}
