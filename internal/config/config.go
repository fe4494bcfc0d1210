package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultUpstreamBaseURL = "https://api.avalanche.org/v2/public/product"
	defaultPublishURL      = "http://localhost:8000/avalanche/forecast"
	defaultZones           = "COAA:1619,BAC:1350,MSAC:1432,SAC:1605"
)

// knownZoneNames labels the zones monitored by default.
var knownZoneNames = map[string]string{
	"COAA/1619": "Central Oregon",
	"BAC/1350":  "Bridgeport",
	"MSAC/1432": "Mount Shasta",
	"SAC/1605":  "Central Sierra",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	UpstreamBaseURL string
	PublishURL      string
	Zones           []domain.Zone
	HTTPTimeout     time.Duration

	// Normalization policy.
	IsolateForecastFailures bool
	SizeFallback            bool

	// Scheduled mode.
	RunInterval     time.Duration
	HTTPAddr        string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	// Optional sinks.
	KafkaBrokers   []string
	KafkaTopic     string
	PushgatewayURL string

	LockFile string
}

// zoneFile is the TOML layout of ZONES_FILE.
type zoneFile struct {
	Zones []domain.Zone `toml:"zones"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "0s", true)
	if err != nil {
		return nil, err
	}

	runInterval, err := parseDuration("RUN_INTERVAL", "1h", false)
	if err != nil {
		return nil, err
	}

	isolate, err := parseBool("ISOLATE_FORECAST_FAILURES")
	if err != nil {
		return nil, err
	}

	sizeFallback, err := parseBool("SIZE_FALLBACK")
	if err != nil {
		return nil, err
	}

	zones, err := loadZones()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		UpstreamBaseURL:         sharedcfg.EnvOrDefault("UPSTREAM_BASE_URL", defaultUpstreamBaseURL),
		PublishURL:              sharedcfg.EnvOrDefault("PUBLISH_URL", defaultPublishURL),
		Zones:                   zones,
		HTTPTimeout:             httpTimeout,
		IsolateForecastFailures: isolate,
		SizeFallback:            sizeFallback,
		RunInterval:             runInterval,
		HTTPAddr:                sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout:         shutdownTimeout,
		LogLevel:                sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:               sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		KafkaBrokers:            sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:              sharedcfg.EnvOrDefault("KAFKA_TOPIC", "avalanche-forecasts"),
		PushgatewayURL:          os.Getenv("PUSHGATEWAY_URL"),
		LockFile:                sharedcfg.EnvOrDefault("LOCK_FILE", filepath.Join(os.TempDir(), "avalanche-etl.lock")),
	}

	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}
	if cfg.PublishURL == "" {
		return nil, errors.New("PUBLISH_URL is required")
	}
	if len(cfg.Zones) == 0 {
		return nil, errors.New("ZONES is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the Kafka mirror sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func loadZones() ([]domain.Zone, error) {
	if path := os.Getenv("ZONES_FILE"); path != "" {
		return LoadZonesFile(path)
	}
	return ParseZones(sharedcfg.EnvOrDefault("ZONES", defaultZones))
}

// ParseZones parses comma-separated "CENTER:ZONE_ID" pairs, e.g. "COAA:1619,BAC:1350".
func ParseZones(s string) ([]domain.Zone, error) {
	var zones []domain.Zone
	for _, pair := range sharedcfg.ParseBrokers(s) {
		center, id, ok := strings.Cut(pair, ":")
		center = strings.ToUpper(strings.TrimSpace(center))
		if !ok || center == "" {
			return nil, fmt.Errorf("invalid ZONES entry %q: want CENTER:ZONE_ID", pair)
		}
		zoneID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil || zoneID <= 0 {
			return nil, fmt.Errorf("invalid ZONES entry %q: zone id must be a positive integer", pair)
		}
		zones = append(zones, withKnownName(domain.Zone{Center: center, ID: zoneID}))
	}
	return zones, nil
}

// LoadZonesFile reads a TOML file of [[zones]] tables.
func LoadZonesFile(path string) ([]domain.Zone, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zones file: %w", err)
	}
	defer file.Close()

	var zf zoneFile
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&zf); err != nil {
		return nil, fmt.Errorf("parse zones file: %w", err)
	}

	for i, z := range zf.Zones {
		z.Center = strings.ToUpper(strings.TrimSpace(z.Center))
		if z.Center == "" {
			return nil, fmt.Errorf("zones file %s: zone %d: center is required", path, i)
		}
		if z.ID <= 0 {
			return nil, fmt.Errorf("zones file %s: zone %d: zone_id must be a positive integer", path, i)
		}
		zf.Zones[i] = withKnownName(z)
	}
	return zf.Zones, nil
}

func withKnownName(z domain.Zone) domain.Zone {
	if z.Name == "" {
		z.Name = knownZoneNames[z.String()]
	}
	return z
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
