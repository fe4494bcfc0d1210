package main

import (
	"log/slog"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/config"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
	"github.com/spf13/cobra"
)

// commandContext loads configuration once and shares it across subcommands.
type commandContext struct {
	zonesFlag string
	cfg       *config.Config
	logger    *slog.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.zonesFlag != "" {
		zones, err := config.ParseZones(c.zonesFlag)
		if err != nil {
			return nil, err
		}
		cfg.Zones = zones
	}
	c.cfg = cfg
	c.logger = observability.NewLogger(cfg)
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "Avalanche forecast ETL",
		Long:          "Fetches avalanche forecasts from avalanche.org, normalizes them, and publishes the batch downstream.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.zonesFlag, "zones", "", "Comma-separated CENTER:ZONE_ID list, overrides ZONES and ZONES_FILE")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newZonesCommand(ctx))

	return rootCmd
}
