package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Upstream API and polling.
	MarineAPIURL    string
	Locations       []domain.Location
	Timezone        string
	WeatherModel    string
	FetchInterval   time.Duration
	FetchTimeout    time.Duration
	ForecastEnabled bool
	ForecastDays    int

	// Health monitoring.
	ProbeInterval     time.Duration
	ProbeTimeout      time.Duration
	ProbeCooldown     time.Duration
	FailureThreshold  int
	RecoveryThreshold int
	SlowProbeCutoff   time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka event publishing configuration.
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaEnabled     bool

	// SQLite history store configuration.
	HistoryDBPath  string
	HistoryEnabled bool

	// SkippedLocations lists LOCATIONS entries dropped during parsing so
	// the caller can log them; Load itself stays logger-free.
	SkippedLocations []string
}

// DefaultLocations covers the Sunshine Coast beaches monitored when
// LOCATIONS is unset.
const DefaultLocations = "Alexandra Headlands,-26.6715,153.1006;" +
	"Kings Beach,-26.8017,153.1426;" +
	"Moffat Beach,-26.7905,153.1400"

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first if
// present, without overriding variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchInterval, err := parseDuration("FETCH_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	probeInterval, err := parseDuration("PROBE_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	probeTimeout, err := parseDuration("PROBE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	probeCooldown, err := parseDuration("PROBE_COOLDOWN", "60s")
	if err != nil {
		return nil, err
	}
	slowProbeCutoff, err := parseDuration("SLOW_PROBE_CUTOFF", "5s")
	if err != nil {
		return nil, err
	}

	failureThreshold, err := parsePositiveInt("FAILURE_THRESHOLD", 3)
	if err != nil {
		return nil, err
	}
	recoveryThreshold, err := parsePositiveInt("RECOVERY_THRESHOLD", 2)
	if err != nil {
		return nil, err
	}
	forecastDays, err := parsePositiveInt("FORECAST_DAYS", 5)
	if err != nil {
		return nil, err
	}
	if forecastDays > 7 {
		return nil, errors.New("invalid FORECAST_DAYS (must be 1-7)")
	}

	forecastEnabled := true
	if v := os.Getenv("FORECAST_ENABLED"); v != "" {
		forecastEnabled = v == "true"
	}

	kafkaBrokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	historyDBPath := os.Getenv("HISTORY_DB_PATH")
	historyEnabled := historyDBPath != ""
	if v := os.Getenv("HISTORY_ENABLED"); v != "" {
		historyEnabled = v == "true"
	}

	locations, skipped := parseLocations(sharedcfg.EnvOrDefault("LOCATIONS", DefaultLocations))

	cfg := &Config{
		MarineAPIURL:    sharedcfg.EnvOrDefault("MARINE_API_URL", "https://marine-api.open-meteo.com/v1/marine"),
		Locations:       locations,
		Timezone:        sharedcfg.EnvOrDefault("TIMEZONE", "auto"),
		WeatherModel:    sharedcfg.EnvOrDefault("WEATHER_MODEL", "best_match"),
		FetchInterval:   fetchInterval,
		FetchTimeout:    fetchTimeout,
		ForecastEnabled: forecastEnabled,
		ForecastDays:    forecastDays,

		ProbeInterval:     probeInterval,
		ProbeTimeout:      probeTimeout,
		ProbeCooldown:     probeCooldown,
		FailureThreshold:  failureThreshold,
		RecoveryThreshold: recoveryThreshold,
		SlowProbeCutoff:   slowProbeCutoff,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8090"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     kafkaBrokers,
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "marine-weather-events"),
		KafkaEnabled:     kafkaEnabled,

		HistoryDBPath:  historyDBPath,
		HistoryEnabled: historyEnabled,

		SkippedLocations: skipped,
	}

	if len(cfg.Locations) == 0 {
		return nil, errors.New("LOCATIONS has no valid entries")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.HistoryEnabled && cfg.HistoryDBPath == "" {
		return nil, errors.New("HISTORY_ENABLED is true but HISTORY_DB_PATH is not set")
	}

	return cfg, nil
}

// Thresholds bundles the health classification settings.
func (c *Config) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		FailureThreshold:  c.FailureThreshold,
		RecoveryThreshold: c.RecoveryThreshold,
		SlowProbeCutoff:   c.SlowProbeCutoff,
	}
}

// parseLocations reads the "Name,lat,lon;Name,lat,lon" list. Malformed or
// out-of-range entries are skipped, not fatal; the raw text of each skipped
// entry is returned for logging.
func parseLocations(raw string) ([]domain.Location, []string) {
	var locations []domain.Location
	var skipped []string
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			skipped = append(skipped, entry)
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if latErr != nil || lonErr != nil {
			skipped = append(skipped, entry)
			continue
		}
		loc := domain.Location{
			Name:      strings.TrimSpace(parts[0]),
			Latitude:  lat,
			Longitude: lon,
		}
		if err := loc.Validate(); err != nil {
			skipped = append(skipped, entry)
			continue
		}
		locations = append(locations, loc)
	}
	return locations, skipped
}

func parseDuration(name, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name string, fallback int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
