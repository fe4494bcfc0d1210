package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/pipeline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", outputAuto, "Output format: auto, table, or json")
}

// resolveOutput picks table output for terminals and JSON otherwise when the
// format is auto.
func resolveOutput(cmd *cobra.Command, format string) (string, error) {
	switch strings.ToLower(format) {
	case outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	case outputAuto, "":
		if f, ok := cmd.OutOrStdout().(*os.File); ok && isTerminal(f.Fd()) {
			return outputTable, nil
		}
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runOutput is the JSON shape of the run command.
type runOutput struct {
	*pipeline.Report
	Forecasts []domain.CanonicalForecast `json:"forecasts"`
}

func renderForecasts(forecasts []domain.CanonicalForecast) string {
	headers := []string{"Zone", "Date", "Overall", "Above", "At", "Below", "Problems"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(forecasts))
	for _, f := range forecasts {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(f.ZoneID), 10),
			f.ForecastDate.String(),
			strconv.FormatUint(uint64(f.OverallDanger), 10),
			strconv.FormatUint(uint64(f.DangerAboveTreeline), 10),
			strconv.FormatUint(uint64(f.DangerAtTreeline), 10),
			strconv.FormatUint(uint64(f.DangerBelowTreeline), 10),
			problemSummary(f.Problems),
		})
	}
	return renderTable(headers, rows, aligns)
}

func problemSummary(problems []domain.CanonicalProblem) string {
	if len(problems) == 0 {
		return "-"
	}
	parts := make([]string, len(problems))
	for i, p := range problems {
		parts[i] = fmt.Sprintf("%s (%s, %s)", p.ProblemType, p.Likelihood, p.Size)
	}
	return strings.Join(parts, "; ")
}

func renderDiagnostics(diags domain.Diagnostics) string {
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, []string{d.Level.String(), d.Zone, d.Field, d.Message})
	}
	return renderTable([]string{"Level", "Zone", "Field", "Message"}, rows, nil)
}

func renderReport(cmd *cobra.Command, report *pipeline.Report) {
	out := cmd.OutOrStdout()
	if len(report.Forecasts) > 0 {
		fmt.Fprintln(out, renderForecasts(report.Forecasts))
	}
	if len(report.Diagnostics) > 0 {
		fmt.Fprintln(out, renderDiagnostics(report.Diagnostics))
	}
	fmt.Fprintf(out, "run %s: %s, fetched %d, skipped %d, dropped %d, published %d",
		report.RunID, report.Outcome, report.Fetched, report.Skipped, report.Dropped, report.Published)
	if report.StatusCode != 0 {
		fmt.Fprintf(out, " (HTTP %d)", report.StatusCode)
	}
	fmt.Fprintf(out, " in %s\n", report.Duration().Round(time.Millisecond))
}
