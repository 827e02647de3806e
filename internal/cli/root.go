package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/heatmap_agent/internal/app"
	"github.com/dgnsrekt/heatmap_agent/internal/config"
	"github.com/dgnsrekt/heatmap_agent/internal/logging"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type state struct {
	logLevel string
	app      *app.App
}

// stack builds the capture stack on first use.
func (s *state) stack() (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if s.logLevel != "" {
		level = s.logLevel
	}
	if err := logging.Setup(level, cfg.LogFile, os.Stderr); err != nil {
		return nil, err
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func newRootCmd() *cobra.Command {
	st := &state{}
	cmd := &cobra.Command{
		Use:          "heatmap",
		Short:        "Capture Coinglass liquidation heatmaps",
		SilenceUsage: true,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if st.app == nil {
				return nil
			}
			return st.app.Close()
		},
	}
	cmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(captureCmd(st), priceCmd(st), assetsCmd(st), listCmd(st), pruneCmd(st))
	return cmd
}
