package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// Diagnostic codes.
const (
	DiagParseFailure     = "parse_failure"
	DiagUnknownAspect    = "unknown_aspect"
	DiagUnknownElevation = "unknown_elevation"
	DiagDangerOutOfScale = "danger_out_of_scale"
	DiagSizeFallback     = "size_fallback"
	DiagForecastDropped  = "forecast_dropped"
	DiagMirrorFailed     = "mirror_failed"
)

// Diagnostic is a leveled finding attached to the zone and field it concerns.
type Diagnostic struct {
	Level   slog.Level `json:"level"`
	Code    string     `json:"code"`
	Zone    string     `json:"zone"`
	Field   string     `json:"field,omitempty"`
	Message string     `json:"message"`
}

// Diagnostics accumulates findings over a run so they can be reported once.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(level slog.Level, code, zone, field, format string, args ...any) {
	*d = append(*d, Diagnostic{
		Level:   level,
		Code:    code,
		Zone:    zone,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (d *Diagnostics) Warn(code, zone, field, format string, args ...any) {
	d.add(slog.LevelWarn, code, zone, field, format, args...)
}

func (d *Diagnostics) Error(code, zone, field, format string, args ...any) {
	d.add(slog.LevelError, code, zone, field, format, args...)
}

// Count returns the number of diagnostics at exactly level.
func (d Diagnostics) Count(level slog.Level) int {
	n := 0
	for _, diag := range d {
		if diag.Level == level {
			n++
		}
	}
	return n
}

// CountCode returns the number of diagnostics with code.
func (d Diagnostics) CountCode(code string) int {
	n := 0
	for _, diag := range d {
		if diag.Code == code {
			n++
		}
	}
	return n
}

// Log writes every diagnostic to logger at its own level.
func (d Diagnostics) Log(ctx context.Context, logger *slog.Logger) {
	for _, diag := range d {
		logger.Log(ctx, diag.Level, diag.Message,
			"code", diag.Code,
			"zone", diag.Zone,
			"field", diag.Field,
		)
	}
}
