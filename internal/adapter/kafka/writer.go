package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/config"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer mirrors published canonical forecasts to a Kafka topic.
// It implements pipeline.Mirror.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured mirror topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// MirrorBatch publishes one message per forecast, keyed by zone id, in a
// single WriteMessages call.
func (w *Writer) MirrorBatch(ctx context.Context, runID string, forecasts []domain.CanonicalForecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(forecasts))
	for i := range forecasts {
		msg, err := serializeToMessage(runID, forecasts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write kafka messages: %w", err)
	}
	w.logger.Debug("forecasts mirrored to kafka", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CanonicalForecast into a Kafka message.
func serializeToMessage(runID string, forecast domain.CanonicalForecast) (kafkago.Message, error) {
	data, err := json.Marshal(forecast)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize canonical forecast: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatUint(uint64(forecast.ZoneID), 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "forecast_date", Value: []byte(forecast.ForecastDate.String())},
		},
	}, nil
}
