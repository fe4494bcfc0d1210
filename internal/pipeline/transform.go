package pipeline

import (
	"context"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
)

// ForecastTransformer implements Transformer by normalizing each fetched
// document into the canonical record.
type ForecastTransformer struct {
	opts    domain.NormalizeOptions
	metrics *observability.Metrics
}

// NewTransformer creates a ForecastTransformer. Set opts.SizeFallback to map
// unrecognized size codes to the smallest range instead of failing.
func NewTransformer(opts domain.NormalizeOptions, metrics *observability.Metrics) *ForecastTransformer {
	return &ForecastTransformer{
		opts:    opts,
		metrics: metrics,
	}
}

func (t *ForecastTransformer) Transform(_ context.Context, fetched domain.FetchedForecast, diags *domain.Diagnostics) (domain.CanonicalForecast, error) {
	if diags == nil {
		diags = &domain.Diagnostics{}
	}
	before := diags.CountCode(domain.DiagSizeFallback)

	canonical, err := domain.Normalize(fetched.Zone.String(), fetched.Forecast, t.opts, diags)
	if err != nil {
		return domain.CanonicalForecast{}, err
	}

	if n := diags.CountCode(domain.DiagSizeFallback) - before; n > 0 {
		t.metrics.SizeFallbacks.Add(float64(n))
	}
	return canonical, nil
}
