package main

import (
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/runlock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, normalize, and publish forecasts once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := resolveOutput(cmd, output)
			if err != nil {
				return err
			}
			cfg, logger := ctx.cfg, ctx.logger

			lock, err := runlock.Acquire(cfg.LockFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("release run lock failed", "error", err)
				}
			}()

			registry := prometheus.NewRegistry()
			metrics := observability.NewMetricsWith(registry)
			p, closeMirror := buildPipeline(cfg, logger, metrics)
			defer closeMirror()

			report, runErr := p.RunOnce(cmd.Context())

			if cfg.PushgatewayURL != "" {
				if err := observability.PushMetrics(cfg.PushgatewayURL, registry); err != nil {
					logger.Warn("push metrics failed", "error", err)
				}
			}

			if format == outputJSON {
				if err := writeJSON(cmd, runOutput{Report: report, Forecasts: report.Forecasts}); err != nil {
					return err
				}
			} else {
				renderReport(cmd, report)
			}
			return runErr
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}
