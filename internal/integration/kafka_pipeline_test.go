//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/avalanche"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/publisher"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/config"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/observability"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testMirrorTopic = "test-avalanche-forecasts"

var testZones = []domain.Zone{
	{Center: "COAA", ID: 1619, Name: "Central Oregon"},
	{Center: "MSAC", ID: 1432, Name: "Mount Shasta"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("avalanche-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func upstreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zoneID := r.URL.Query().Get("zone_id")
		_, _ = fmt.Fprintf(w, `{
			"created_at": "2024-01-15 06:00:00",
			"bottom_line": "Bottom line for %[1]s",
			"danger": [{"lower": 1, "middle": 2, "upper": 3, "valid_day": "current"}],
			"forecast_zone": [{"id": %[1]s}],
			"forecast_avalanche_problems": [{
				"name": "Storm Slab",
				"likelihood": "possible",
				"size": ["2", "3"],
				"location": ["west upper", "west middle"]
			}]
		}`, zoneID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func downstreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type mirroredMessage struct {
	Forecast domain.CanonicalForecast
	Key      string
	Headers  map[string]string
}

func readMirrored(ctx context.Context, t *testing.T, consumer *kafkago.Reader) mirroredMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from mirror topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var forecast domain.CanonicalForecast
	require.NoError(t, json.Unmarshal(msg.Value, &forecast), "unmarshal mirrored forecast")

	return mirroredMessage{Forecast: forecast, Key: string(msg.Key), Headers: headers}
}

// TestPipelineMirrorsPublishedBatch runs a full fetch-normalize-publish cycle
// against stub HTTP endpoints and reads the mirrored batch back from Kafka.
func TestPipelineMirrorsPublishedBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testMirrorTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testMirrorTopic,
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(
		avalanche.NewClient(upstreamServer(t).URL, httpClient, discardLogger()),
		pipeline.NewTransformer(domain.NormalizeOptions{}, metrics),
		publisher.NewClient(downstreamServer(t).URL, httpClient, discardLogger()),
		pipeline.Options{Zones: testZones},
		discardLogger(),
		metrics,
	).WithMirror(writer)

	report, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeSuccess, report.Outcome)
	require.Zero(t, report.Diagnostics.CountCode(domain.DiagMirrorFailed))
	require.Len(t, report.Forecasts, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testMirrorTopic,
		GroupID:     fmt.Sprintf("test-mirror-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range report.Forecasts {
		got := readMirrored(ctx, t, consumer)
		assert.Equal(t, strconv.Itoa(testZones[i].ID), got.Key)
		assert.Equal(t, report.RunID, got.Headers["run_id"])
		assert.Equal(t, "2024-01-15T06:00:00", got.Headers["forecast_date"])
		assert.Empty(t, cmp.Diff(want, got.Forecast))
	}
}

// TestPipelineNormalizeFailureMirrorsNothing verifies that an aborted run
// neither publishes nor mirrors.
func TestPipelineNormalizeFailureMirrorsNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testMirrorTopic)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"created_at": "2024-01-15 06:00:00", "bottom_line": "x", "danger": [], "forecast_zone": []}`)
	}))
	t.Cleanup(upstream.Close)

	var published int
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		published++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(downstream.Close)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testMirrorTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	httpClient := &http.Client{Timeout: 10 * time.Second}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(
		avalanche.NewClient(upstream.URL, httpClient, discardLogger()),
		pipeline.NewTransformer(domain.NormalizeOptions{}, metrics),
		publisher.NewClient(downstream.URL, httpClient, discardLogger()),
		pipeline.Options{Zones: testZones},
		discardLogger(),
		metrics,
	).WithMirror(writer)

	report, err := p.RunOnce(ctx)
	require.ErrorIs(t, err, domain.ErrMissingField)
	assert.Equal(t, pipeline.OutcomeNormalizeError, report.Outcome)
	assert.Zero(t, published)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testMirrorTopic,
		GroupID:     fmt.Sprintf("test-empty-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message on mirror topic")
}
