package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJob = "avalanche_forecast_etl"

// PushMetrics sends the metrics of gatherer to a Prometheus Pushgateway. It is
// used after one-shot runs, which exit before they could be scraped.
func PushMetrics(url string, gatherer prometheus.Gatherer) error {
	err := push.New(url, pushJob).
		Gatherer(gatherer).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
