package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/marine-weather-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/marine-weather-service/internal/adapter/kafka"
	"github.com/couchcryptid/marine-weather-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/marine-weather-service/internal/adapter/sqlite"
	"github.com/couchcryptid/marine-weather-service/internal/config"
	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/health"
	"github.com/couchcryptid/marine-weather-service/internal/observability"
	"github.com/couchcryptid/marine-weather-service/internal/poller"
	"github.com/couchcryptid/marine-weather-service/internal/sensor"
	"github.com/couchcryptid/marine-weather-service/internal/service"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	for _, entry := range cfg.SkippedLocations {
		logger.Warn("skipping malformed location entry", "entry", entry)
	}

	instance := service.NewInstance(version)
	logger.Info("marine weather service starting",
		"instance_id", instance.ID,
		"version", instance.Version,
		"locations", len(cfg.Locations),
	)

	clk := clockwork.NewRealClock()
	client := openmeteo.NewClient(cfg.MarineAPIURL, cfg.Timezone, cfg.WeatherModel, cfg.FetchTimeout, logger)
	registry := sensor.NewRegistry(metrics)

	// Probes target the first configured location; one probe loop covers
	// the shared upstream regardless of how many locations are polled.
	probeLoc := cfg.Locations[0]
	monitor := health.New(
		health.ProberFunc(func(ctx context.Context) error { return client.Probe(ctx, probeLoc) }),
		health.Config{
			Interval:   cfg.ProbeInterval,
			Timeout:    cfg.ProbeTimeout,
			Cooldown:   cfg.ProbeCooldown,
			Thresholds: cfg.Thresholds(),
		},
		clk, logger, metrics,
	)

	// Event publishing and the history store are feature-flagged. The
	// interface variables stay nil when disabled so downstream code can
	// skip the corresponding writes.
	var (
		publisher           poller.Publisher
		historian           poller.Historian
		transitionPublisher service.TransitionPublisher
		transitionRecorder  service.TransitionRecorder
		historyReader       service.HistoryReader
	)
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, instance.ID, logger)
		instance.Resources.AddCloser("kafka publisher", kp)
		publisher, transitionPublisher = kp, kp
		logger.Info("kafka event publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("kafka event publishing disabled")
	}
	if cfg.HistoryEnabled {
		store, err := sqlite.NewStore(cfg.HistoryDBPath, logger)
		if err != nil {
			logger.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		instance.Resources.AddCloser("history store", store)
		historian, transitionRecorder, historyReader = store, store, store
		logger.Info("history store enabled", "path", cfg.HistoryDBPath)
	} else {
		logger.Info("history store disabled")
	}

	sink := service.NewTransitionSink(registry, transitionPublisher, transitionRecorder, logger, metrics)
	monitor.OnTransition(sink.Handle)

	// Seed the health entity so the API surface is complete before the
	// first probe lands.
	registry.Upsert(sensor.NewHealthEntity(monitor.Snapshot()))

	p := poller.New(client, monitor, registry, publisher, historian, poller.Config{
		Locations:       cfg.Locations,
		Interval:        cfg.FetchInterval,
		Timeout:         cfg.FetchTimeout,
		Model:           cfg.WeatherModel,
		ForecastEnabled: cfg.ForecastEnabled,
		ForecastDays:    cfg.ForecastDays,
	}, clk, logger, metrics)

	collector := service.NewCollector(instance, cfg, monitor, registry, p, historyReader, logger)

	srv := httpadapter.NewServer(
		cfg.HTTPAddr,
		httpadapter.ReadyAll(monitor, p),
		monitor,
		cfg.Thresholds(),
		registry,
		collector,
		logger,
	)
	// Registered last so CloseAll drains the server before the sinks close.
	instance.Resources.Add("http server", srv.Shutdown)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootstrapCheck(ctx, client, probeLoc, cfg.ProbeTimeout, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start health monitor and poller.
	go func() {
		if err := monitor.Run(ctx); err != nil {
			logger.Error("health monitor error", "error", err)
		}
	}()
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("poller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	instance.Resources.CloseAll(shutdownCtx, logger)

	logger.Info("shutdown complete")
}

// bootstrapCheck verifies upstream connectivity once at startup, retrying
// with bounded backoff. Failure is logged, not fatal: the monitor owns
// recovery from there.
func bootstrapCheck(ctx context.Context, client *openmeteo.Client, loc domain.Location, timeout time.Duration, logger *slog.Logger) {
	delay := time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := client.Probe(probeCtx, loc)
		cancel()
		if err == nil {
			logger.Info("upstream connectivity verified", "location", loc.Name)
			return
		}
		logger.Warn("startup connectivity check failed", "attempt", attempt, "error", err)
		if attempt == 3 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
	logger.Warn("starting without verified upstream connectivity")
}
