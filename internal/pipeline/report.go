package pipeline

import (
	"time"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
)

// Run outcomes, also used as the runs_total metric label.
const (
	OutcomeSuccess        = "success"
	OutcomeTransportError = "transport_error"
	OutcomeNormalizeError = "normalize_error"
	OutcomePublishError   = "publish_error"
)

// Report summarizes a single run.
type Report struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Zones       int                `json:"zones"`
	Fetched     int                `json:"fetched"`
	Skipped     int                `json:"skipped"`
	Normalized  int                `json:"normalized"`
	Dropped     int                `json:"dropped"`
	Published   int                `json:"published"`
	StatusCode  int                `json:"status_code,omitempty"`
	Outcome     string             `json:"outcome"`
	Error       string             `json:"error,omitempty"`
	Diagnostics domain.Diagnostics `json:"diagnostics"`

	// Forecasts holds the canonical records sent downstream.
	Forecasts []domain.CanonicalForecast `json:"-"`
}

// Duration is the wall time between start and finish.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run reached publish without a transport
// error. The downstream status may still be a non-success code.
func (r *Report) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
