package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/avalanche"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/publisher"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/runlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstreamDocument(zoneID int) string {
	return fmt.Sprintf(`{
		"created_at": "2024-01-15 06:00:00",
		"bottom_line": "Wind slabs near ridgelines",
		"danger": [{"lower": 1, "middle": 2, "upper": 3, "valid_day": "current"}],
		"forecast_zone": [{"id": %d, "name": "Zone %d"}],
		"forecast_avalanche_problems": [{
			"name": "Wind Slab",
			"likelihood": "likely",
			"size": ["1", "2"],
			"location": ["north upper", "northeast middle"],
			"discussion": "Fresh drifts."
		}]
	}`, zoneID, zoneID)
}

// executeCLI runs the root command with args and returns stdout.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"usage", errors.New("unknown flag: --bogus"), exitUsage},
		{"transport", fmt.Errorf("fetch forecasts: %w", &avalanche.TransportError{Zone: "COAA/1619", StatusCode: 500}), exitTransport},
		{"normalize", &domain.NormalizeError{Zone: "COAA/1619", Field: "forecast_zone", Err: domain.ErrMissingField}, exitNormalize},
		{"normalize joined", errors.Join(errors.New("parse a.json"), &domain.NormalizeError{Err: domain.ErrUnknownSize}), exitNormalize},
		{"publish", fmt.Errorf("publish forecasts: %w", &publisher.PublishError{URL: "http://x", Err: errors.New("refused")}), exitPublish},
		{"locked", fmt.Errorf("%w: /tmp/etl.lock", runlock.ErrAlreadyRunning), exitLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestZonesCommand_JSON(t *testing.T) {
	t.Setenv("ZONES", "coaa:1619")
	t.Setenv("UPSTREAM_BASE_URL", "https://api.avalanche.org/v2/public/product")

	out, err := executeCLI(t, "zones", "--output", "json")
	require.NoError(t, err)

	var zones []zoneOutput
	require.NoError(t, json.Unmarshal([]byte(out), &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, "COAA", zones[0].Center)
	assert.Equal(t, 1619, zones[0].ZoneID)
	assert.Equal(t, "https://api.avalanche.org/v2/public/product?center_id=COAA&type=forecast&zone_id=1619", zones[0].URL)
}

func TestZonesCommand_FlagOverridesEnv(t *testing.T) {
	t.Setenv("ZONES", "COAA:1619")

	out, err := executeCLI(t, "--zones", "BAC:1350,SAC:1605", "zones", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "BAC")
	assert.Contains(t, out, "1605")
	assert.NotContains(t, out, "COAA")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "coaa.json", upstreamDocument(1619))

	out, err := executeCLI(t, "validate", "-o", "json", good)
	require.NoError(t, err)

	var result validateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Forecasts, 1)
	f := result.Forecasts[0]
	assert.Equal(t, uint32(1619), f.ZoneID)
	assert.Equal(t, uint32(6), f.OverallDanger)
	assert.Equal(t, domain.ProblemWindSlab, f.Problems[0].ProblemType)
	assert.Equal(t, domain.AspectNorth|domain.AspectNortheast, f.Problems[0].Aspects)
	assert.Equal(t, domain.ElevationAboveTreeline|domain.ElevationAtTreeline, f.Problems[0].Elevations)
	assert.Empty(t, result.Errors)
}

func TestValidateCommand_ReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", upstreamDocument(1619))
	missingZone := writeFile(t, dir, "nozone.json", strings.Replace(upstreamDocument(1350), `"forecast_zone": [{"id": 1350, "name": "Zone 1350"}],`, "", 1))
	garbage := writeFile(t, dir, "garbage.json", `{"danger": "high"`)

	out, err := executeCLI(t, "validate", "-o", "json", good, missingZone, garbage)
	require.Error(t, err)
	assert.Equal(t, exitNormalize, exitCode(err))

	var result validateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Forecasts, 1)
	assert.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "forecast_zone")
}

func TestValidateCommand_RequiresFiles(t *testing.T) {
	_, err := executeCLI(t, "validate")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestRunCommand_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int
		_, _ = fmt.Sscan(r.URL.Query().Get("zone_id"), &id)
		_, _ = io.WriteString(w, upstreamDocument(id))
	}))
	defer upstream.Close()

	bodies := make(chan []map[string]any, 1)
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var batch []map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		bodies <- batch
		w.WriteHeader(http.StatusCreated)
	}))
	defer downstream.Close()

	t.Setenv("UPSTREAM_BASE_URL", upstream.URL)
	t.Setenv("PUBLISH_URL", downstream.URL)
	t.Setenv("ZONES", "COAA:1619,BAC:1350")
	t.Setenv("LOCK_FILE", filepath.Join(t.TempDir(), "etl.lock"))

	out, err := executeCLI(t, "run", "-o", "json")
	require.NoError(t, err)

	published := <-bodies
	require.Len(t, published, 2)
	assert.InDelta(t, 1619, published[0]["zone_id"], 0)
	assert.InDelta(t, 1350, published[1]["zone_id"], 0)
	assert.Equal(t, "2024-01-15T06:00:00", published[0]["forecast_date"])

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "success", report["outcome"])
	assert.InDelta(t, 201, report["status_code"], 0)
	assert.Len(t, report["forecasts"], 2)
}

func TestRunCommand_UpstreamFailureSkipsPublish(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	var publishCalls atomic.Int32
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		publishCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer downstream.Close()

	t.Setenv("UPSTREAM_BASE_URL", upstream.URL)
	t.Setenv("PUBLISH_URL", downstream.URL)
	t.Setenv("ZONES", "COAA:1619")
	t.Setenv("LOCK_FILE", filepath.Join(t.TempDir(), "etl.lock"))

	_, err := executeCLI(t, "run", "-o", "json")
	require.Error(t, err)
	assert.Equal(t, exitTransport, exitCode(err))
	assert.Zero(t, publishCalls.Load())
}

func TestRunCommand_LockHeld(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "etl.lock")
	held, err := runlock.Acquire(lockPath)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	t.Setenv("LOCK_FILE", lockPath)

	_, err = executeCLI(t, "run")
	require.Error(t, err)
	assert.Equal(t, exitLocked, exitCode(err))
}

func TestRenderForecasts(t *testing.T) {
	date, err := domain.ParseCreatedAt("2024-01-15 06:00:00")
	require.NoError(t, err)

	out := renderForecasts([]domain.CanonicalForecast{{
		ZoneID:              1619,
		ForecastDate:        date,
		OverallDanger:       6,
		DangerAboveTreeline: 3,
		DangerAtTreeline:    2,
		DangerBelowTreeline: 1,
		Problems: []domain.CanonicalProblem{{
			ProblemType: domain.ProblemWindSlab,
			Likelihood:  domain.LikelihoodLikely,
			Size:        domain.SizeSmallLarge,
		}},
	}})

	assert.Contains(t, out, "1619")
	assert.Contains(t, out, "2024-01-15T06:00:00")
	assert.Contains(t, out, domain.ProblemWindSlab.String())
}
