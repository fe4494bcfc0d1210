package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
)

// PublishError is a failure to deliver the batch. A response with a
// non-success status is not a PublishError; its code is returned as data.
type PublishError struct {
	URL string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.URL, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Client posts canonical forecasts to the downstream ingestion endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

// NewClient creates a publisher for url.
func NewClient(url string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		url:        url,
		logger:     logger,
	}
}

// Publish sends forecasts as one JSON array and returns the endpoint's status
// code verbatim. The status is neither interpreted nor retried.
func (c *Client) Publish(ctx context.Context, forecasts []domain.CanonicalForecast) (int, error) {
	if forecasts == nil {
		forecasts = []domain.CanonicalForecast{}
	}
	body, err := json.Marshal(forecasts)
	if err != nil {
		return 0, fmt.Errorf("serialize forecasts: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, &PublishError{URL: c.url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &PublishError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("forecasts published",
		"url", c.url,
		"count", len(forecasts),
		"status", resp.StatusCode,
		"bytes", len(body),
	)
	return resp.StatusCode, nil
}
