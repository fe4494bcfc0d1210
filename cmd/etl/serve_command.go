package main

import (
	"context"
	"errors"
	"net/http"

	httpadapter "github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/http"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/runlock"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on a schedule and serve health, readiness, and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.cfg
			// serve prints no report, so logs go to stdout.
			logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

			lock, err := runlock.Acquire(cfg.LockFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("release run lock failed", "error", err)
				}
			}()

			metrics := observability.NewMetrics()
			p, closeMirror := buildPipeline(cfg, logger, metrics)
			defer closeMirror()

			srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

			runCtx := cmd.Context()

			// Start HTTP server.
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			// Start scheduler.
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := p.Run(runCtx, cfg.RunInterval); err != nil {
					logger.Error("scheduler error", "error", err)
				}
			}()

			<-runCtx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			select {
			case <-done:
			case <-shutdownCtx.Done():
				logger.Warn("scheduler did not stop before shutdown timeout")
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
}
