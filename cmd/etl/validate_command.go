package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/spf13/cobra"
)

type validateOutput struct {
	Forecasts   []domain.CanonicalForecast `json:"forecasts"`
	Diagnostics domain.Diagnostics         `json:"diagnostics"`
	Errors      []string                   `json:"errors,omitempty"`
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Normalize saved upstream forecast documents without publishing",
		Long: "Reads forecast JSON documents as returned by the avalanche.org product endpoint, " +
			"normalizes each one, and prints the canonical records and any diagnostics.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveOutput(cmd, output)
			if err != nil {
				return err
			}
			opts := domain.NormalizeOptions{SizeFallback: ctx.cfg.SizeFallback}

			result, errs := validateFiles(args, opts)
			result.Diagnostics.Log(cmd.Context(), ctx.logger)

			if format == outputJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if len(result.Forecasts) > 0 {
					fmt.Fprintln(out, renderForecasts(result.Forecasts))
				}
				if len(result.Diagnostics) > 0 {
					fmt.Fprintln(out, renderDiagnostics(result.Diagnostics))
				}
				fmt.Fprintf(out, "%d of %d documents valid\n", len(result.Forecasts), len(args))
			}
			return errors.Join(errs...)
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}

// validateFiles normalizes every file and keeps going past failures so one
// invocation reports all of them.
func validateFiles(paths []string, opts domain.NormalizeOptions) (validateOutput, []error) {
	result := validateOutput{Forecasts: []domain.CanonicalForecast{}}
	var errs []error

	for _, path := range paths {
		forecast, err := validateFile(path, opts, &result.Diagnostics)
		if err != nil {
			errs = append(errs, err)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Forecasts = append(result.Forecasts, forecast)
	}
	return result, errs
}

func validateFile(path string, opts domain.NormalizeOptions, diags *domain.Diagnostics) (domain.CanonicalForecast, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CanonicalForecast{}, fmt.Errorf("read %s: %w", path, err)
	}

	var raw domain.RawForecast
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.CanonicalForecast{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return domain.Normalize(filepath.Base(path), raw, opts, diags)
}
