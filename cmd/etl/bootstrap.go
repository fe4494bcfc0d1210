package main

import (
	"log/slog"
	"net/http"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/avalanche"
	kafkaadapter "github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/publisher"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/config"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/pipeline"
)

// buildPipeline wires the upstream client, normalizer, publisher, and the
// optional Kafka mirror. The returned func closes the mirror.
func buildPipeline(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, func()) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	fetcher := avalanche.NewClient(cfg.UpstreamBaseURL, httpClient, logger)
	transformer := pipeline.NewTransformer(domain.NormalizeOptions{SizeFallback: cfg.SizeFallback}, metrics)
	pub := publisher.NewClient(cfg.PublishURL, httpClient, logger)

	p := pipeline.New(fetcher, transformer, pub, pipeline.Options{
		Zones:           cfg.Zones,
		IsolateFailures: cfg.IsolateForecastFailures,
	}, logger, metrics)

	if !cfg.KafkaEnabled() {
		logger.Info("kafka mirror disabled")
		return p, func() {}
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	p.WithMirror(writer)
	logger.Info("kafka mirror enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)

	return p, func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}
