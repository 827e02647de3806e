package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func listCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved heatmaps, newest first",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := st.stack()
			if err != nil {
				return err
			}
			metas, err := a.Store.List()
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			if len(metas) == 0 {
				fmt.Fprintln(out, "(no heatmaps found)")
				return nil
			}
			for _, m := range metas {
				line := fmt.Sprintf("- %s  %s %s  %dx%d  %s", m.Name, m.Symbol, m.Timeframe, m.Width, m.Height, humanize.Bytes(uint64(m.SizeBytes)))
				if m.Price != "" {
					line += "  " + m.Price
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func pruneCmd(st *state) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete saved heatmaps older than a duration",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := st.stack()
			if err != nil {
				return err
			}
			n, err := a.Store.Prune(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "removed %d heatmap(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age threshold")
	return cmd
}
