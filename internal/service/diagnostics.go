package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/marine-weather-service/internal/adapter/sqlite"
	"github.com/couchcryptid/marine-weather-service/internal/config"
	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/sensor"
)

const historyLimit = 10

// Diagnostics is the support-bundle export served on /api/v1/diagnostics.
type Diagnostics struct {
	Instance   InstanceInfo          `json:"instance"`
	Config     ConfigSummary         `json:"config"`
	APIHealth  domain.HealthSnapshot `json:"api_health"`
	Sensors    []SensorSummary       `json:"sensors"`
	Statistics Statistics            `json:"statistics"`
	Resources  ResourceInfo          `json:"resources"`
	History    *HistorySummary       `json:"history,omitempty"`
}

type InstanceInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`
}

// ConfigSummary is the non-secret slice of the configuration.
type ConfigSummary struct {
	Locations         []string `json:"locations"`
	WeatherModel      string   `json:"weather_model"`
	FetchInterval     string   `json:"fetch_interval"`
	ProbeInterval     string   `json:"probe_interval"`
	FailureThreshold  int      `json:"failure_threshold"`
	RecoveryThreshold int      `json:"recovery_threshold"`
	SlowProbeCutoff   string   `json:"slow_probe_cutoff"`
	ForecastEnabled   bool     `json:"forecast_enabled"`
	ForecastDays      int      `json:"forecast_days"`
	KafkaEnabled      bool     `json:"kafka_enabled"`
	HistoryEnabled    bool     `json:"history_enabled"`
}

type SensorSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Statistics struct {
	TotalSensors  int   `json:"total_sensors"`
	ActiveSensors int   `json:"active_sensors"`
	TotalFetches  int64 `json:"total_fetches"`
	FailedFetches int64 `json:"failed_fetches"`
}

type ResourceInfo struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

type HistorySummary struct {
	RecentTransitions []sqlite.TransitionRecord `json:"recent_transitions"`
}

// SnapshotSource is the monitor surface diagnostics reads.
type SnapshotSource interface {
	Snapshot() domain.HealthSnapshot
}

// FetchStats is the poller surface diagnostics reads.
type FetchStats interface {
	Stats() (total, failed int64)
}

// HistoryReader is the optional history surface diagnostics reads.
type HistoryReader interface {
	RecentTransitions(ctx context.Context, limit int) ([]sqlite.TransitionRecord, error)
}

// Collector assembles the diagnostics export from the live service parts.
type Collector struct {
	instance *Instance
	cfg      *config.Config
	monitor  SnapshotSource
	registry *sensor.Registry
	poller   FetchStats
	history  HistoryReader // nil when the history store is disabled
	logger   *slog.Logger
}

func NewCollector(instance *Instance, cfg *config.Config, monitor SnapshotSource, registry *sensor.Registry, poller FetchStats, history HistoryReader, logger *slog.Logger) *Collector {
	return &Collector{
		instance: instance,
		cfg:      cfg,
		monitor:  monitor,
		registry: registry,
		poller:   poller,
		history:  history,
		logger:   logger,
	}
}

// Collect builds a point-in-time diagnostics export.
func (c *Collector) Collect(ctx context.Context) Diagnostics {
	entities := c.registry.List()
	sensors := make([]SensorSummary, 0, len(entities))
	active := 0
	for _, e := range entities {
		if e.Available {
			active++
		}
		sensors = append(sensors, SensorSummary{
			ID:        e.ID,
			Name:      e.Name,
			Available: e.Available,
			UpdatedAt: e.UpdatedAt,
		})
	}

	total, failed := c.poller.Stats()

	locations := make([]string, 0, len(c.cfg.Locations))
	for _, loc := range c.cfg.Locations {
		locations = append(locations, loc.Name)
	}

	d := Diagnostics{
		Instance: InstanceInfo{
			ID:        c.instance.ID,
			StartedAt: c.instance.StartedAt,
			Uptime:    c.instance.Uptime().Round(time.Second).String(),
			Version:   c.instance.Version,
		},
		Config: ConfigSummary{
			Locations:         locations,
			WeatherModel:      c.cfg.WeatherModel,
			FetchInterval:     c.cfg.FetchInterval.String(),
			ProbeInterval:     c.cfg.ProbeInterval.String(),
			FailureThreshold:  c.cfg.FailureThreshold,
			RecoveryThreshold: c.cfg.RecoveryThreshold,
			SlowProbeCutoff:   c.cfg.SlowProbeCutoff.String(),
			ForecastEnabled:   c.cfg.ForecastEnabled,
			ForecastDays:      c.cfg.ForecastDays,
			KafkaEnabled:      c.cfg.KafkaEnabled,
			HistoryEnabled:    c.cfg.HistoryEnabled,
		},
		APIHealth: c.monitor.Snapshot(),
		Sensors:   sensors,
		Statistics: Statistics{
			TotalSensors:  len(entities),
			ActiveSensors: active,
			TotalFetches:  total,
			FailedFetches: failed,
		},
		Resources: ResourceInfo{
			Count: c.instance.Resources.Len(),
			Names: c.instance.Resources.Names(),
		},
	}

	if c.history != nil {
		transitions, err := c.history.RecentTransitions(ctx, historyLimit)
		if err != nil {
			c.logger.Warn("diagnostics history query failed", "error", err)
		} else {
			d.History = &HistorySummary{RecentTransitions: transitions}
		}
	}
	return d
}
