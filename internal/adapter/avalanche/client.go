package avalanche

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
)

// ErrTransport matches every *TransportError via errors.Is.
var ErrTransport = errors.New("upstream transport failure")

// TransportError is a network failure or a non-success status from the
// upstream API. It aborts the run.
type TransportError struct {
	Zone       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Zone, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Zone, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Client fetches forecast products from the avalanche.org public API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an upstream client. The http.Client is shared with the
// publisher and never mutated.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// URL returns the forecast product query for zone.
func (c *Client) URL(zone domain.Zone) string {
	params := url.Values{
		"type":      {"forecast"},
		"center_id": {zone.Center},
		"zone_id":   {strconv.Itoa(zone.ID)},
	}
	return c.baseURL + "?" + params.Encode()
}

// FetchForecasts issues one GET per zone, in order. Bodies that do not decode
// as a forecast are recorded in diags and skipped. The first transport failure
// stops the loop and is returned as a *TransportError; forecasts fetched before
// it are discarded.
func (c *Client) FetchForecasts(ctx context.Context, zones []domain.Zone, diags *domain.Diagnostics) ([]domain.FetchedForecast, error) {
	if diags == nil {
		diags = &domain.Diagnostics{}
	}
	forecasts := make([]domain.FetchedForecast, 0, len(zones))
	for _, zone := range zones {
		raw, ok, err := c.fetch(ctx, zone, diags)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		forecasts = append(forecasts, domain.FetchedForecast{Zone: zone, Forecast: raw})
	}
	return forecasts, nil
}

func (c *Client) fetch(ctx context.Context, zone domain.Zone, diags *domain.Diagnostics) (domain.RawForecast, bool, error) {
	label := zone.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(zone), nil)
	if err != nil {
		return domain.RawForecast{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching forecast", "zone", label, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawForecast{}, false, &TransportError{Zone: label, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawForecast{}, false, &TransportError{
			Zone:       label,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RawForecast{}, false, &TransportError{Zone: label, Err: fmt.Errorf("read body: %w", err)}
	}

	var raw domain.RawForecast
	if err := json.Unmarshal(body, &raw); err != nil {
		diags.Warn(domain.DiagParseFailure, label, "body", "response did not match the forecast schema: %v", err)
		return domain.RawForecast{}, false, nil
	}
	return raw, true, nil
}
