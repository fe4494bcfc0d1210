package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw forecast documents for a list of zones.
type Fetcher interface {
	FetchForecasts(ctx context.Context, zones []domain.Zone, diags *domain.Diagnostics) ([]domain.FetchedForecast, error)
}

// Transformer converts a fetched document into a canonical forecast.
type Transformer interface {
	Transform(ctx context.Context, fetched domain.FetchedForecast, diags *domain.Diagnostics) (domain.CanonicalForecast, error)
}

// Publisher sends the canonical batch downstream and returns the HTTP status.
type Publisher interface {
	Publish(ctx context.Context, forecasts []domain.CanonicalForecast) (int, error)
}

// Mirror receives a copy of every published batch. Failures are reported but
// never fail the run.
type Mirror interface {
	MirrorBatch(ctx context.Context, runID string, forecasts []domain.CanonicalForecast) error
}

// Options controls how a run treats its zones and failures.
type Options struct {
	Zones []domain.Zone

	// IsolateFailures drops a forecast that fails normalization instead of
	// aborting the whole run.
	IsolateFailures bool
}

// Pipeline orchestrates the fetch-normalize-publish run.
type Pipeline struct {
	fetcher     Fetcher
	transformer Transformer
	publisher   Publisher
	mirror      Mirror
	opts        Options
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	ready       atomic.Bool
	last        atomic.Pointer[Report]
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, t Transformer, p Publisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:     f,
		transformer: t,
		publisher:   p,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
	}
}

// WithMirror attaches a secondary sink for published batches.
func (p *Pipeline) WithMirror(m Mirror) *Pipeline {
	p.mirror = m
	return p
}

// WithClock replaces the wall clock, used by tests to drive the scheduler.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a successful run yet")
	}
	return nil
}

// LastReport returns the report of the most recent run, if any.
func (p *Pipeline) LastReport() (Report, bool) {
	r := p.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// RunOnce performs one fetch-normalize-publish cycle. The report is returned
// even when the run fails.
func (p *Pipeline) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: p.clock.Now(),
		Zones:     len(p.opts.Zones),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("run started", "zones", len(p.opts.Zones))

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	err := p.run(ctx, logger, report)
	p.finish(ctx, logger, report, err)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	fetched, err := p.fetcher.FetchForecasts(ctx, p.opts.Zones, &report.Diagnostics)
	if err != nil {
		report.Outcome = OutcomeTransportError
		return fmt.Errorf("fetch forecasts: %w", err)
	}
	report.Fetched = len(fetched)
	report.Skipped = report.Diagnostics.CountCode(domain.DiagParseFailure)
	p.metrics.ForecastsFetched.Add(float64(report.Fetched))
	p.metrics.ForecastsSkipped.Add(float64(report.Skipped))

	forecasts, err := p.transformAll(ctx, fetched, report)
	if err != nil {
		report.Outcome = OutcomeNormalizeError
		return err
	}
	report.Normalized = len(forecasts)
	report.Forecasts = forecasts

	status, err := p.publisher.Publish(ctx, forecasts)
	if err != nil {
		report.Outcome = OutcomePublishError
		return fmt.Errorf("publish forecasts: %w", err)
	}
	report.StatusCode = status
	report.Published = len(forecasts)
	report.Outcome = OutcomeSuccess
	p.metrics.PublishStatusCode.Set(float64(status))
	p.metrics.ForecastsPublished.Add(float64(len(forecasts)))

	if p.mirror != nil {
		if err := p.mirror.MirrorBatch(ctx, report.RunID, forecasts); err != nil {
			report.Diagnostics.Warn(domain.DiagMirrorFailed, "*", "", "mirror batch: %v", err)
		}
	}
	return nil
}

// transformAll normalizes every fetched document in order. Without isolation
// the first failure aborts the run before anything is published.
func (p *Pipeline) transformAll(ctx context.Context, fetched []domain.FetchedForecast, report *Report) ([]domain.CanonicalForecast, error) {
	forecasts := make([]domain.CanonicalForecast, 0, len(fetched))
	for _, f := range fetched {
		canonical, err := p.transformer.Transform(ctx, f, &report.Diagnostics)
		if err != nil {
			p.metrics.NormalizeErrors.WithLabelValues(errorKind(err)).Inc()
			if !p.opts.IsolateFailures {
				return nil, err
			}
			report.Dropped++
			report.Diagnostics.Error(domain.DiagForecastDropped, f.Zone.String(), errorField(err), "forecast dropped: %v", err)
			continue
		}
		forecasts = append(forecasts, canonical)
	}
	return forecasts, nil
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, report *Report, err error) {
	report.FinishedAt = p.clock.Now()
	if err != nil {
		report.Error = err.Error()
	}

	report.Diagnostics.Log(ctx, logger)

	p.metrics.Runs.WithLabelValues(report.Outcome).Inc()
	p.metrics.RunDuration.Observe(report.Duration().Seconds())
	if report.Succeeded() {
		p.metrics.LastSuccessUnixTime.Set(float64(report.FinishedAt.Unix()))
		p.ready.Store(true)
	}
	p.last.Store(report)

	attrs := []any{
		"outcome", report.Outcome,
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"published", report.Published,
		"dropped", report.Dropped,
		"status", report.StatusCode,
		"duration", report.Duration(),
	}
	if err != nil {
		logger.Error("run failed", append(attrs, "error", err)...)
		return
	}
	logger.Info("run finished", attrs...)
}

// Run executes RunOnce every interval until the context is cancelled. A
// failed run is logged and retried on the next tick.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("scheduler started", "interval", interval, "zones", len(p.opts.Zones))

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() != nil {
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
		if !sleepWithContext(ctx, p.clock, interval) {
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func errorKind(err error) string {
	var nerr *domain.NormalizeError
	if errors.As(err, &nerr) {
		return nerr.Kind()
	}
	return "other"
}

func errorField(err error) string {
	var nerr *domain.NormalizeError
	if errors.As(err, &nerr) {
		return nerr.Field
	}
	return ""
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
