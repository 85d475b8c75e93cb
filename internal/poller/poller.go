// Package poller drives the per-location fetch cadence: it pulls current
// marine conditions (and hourly forecasts when enabled) for every configured
// location, maintains the sensor registry, and hands successful observations
// to the event publisher and history store.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/observability"
	"github.com/couchcryptid/marine-weather-service/internal/sensor"
)

// Fetcher retrieves marine data for a single location.
type Fetcher interface {
	FetchCurrent(ctx context.Context, loc domain.Location) (domain.Observation, error)
	FetchForecast(ctx context.Context, loc domain.Location, days int) (domain.ForecastSeries, error)
}

// HealthGate is the slice of the health monitor the poller consults: the
// current status decides whether a tick runs at all, and every failed fetch
// asks the monitor to re-probe.
type HealthGate interface {
	Status() domain.Status
	Snapshot() domain.HealthSnapshot
	TriggerCheck()
}

// Publisher emits observation events for downstream consumers.
type Publisher interface {
	PublishObservation(ctx context.Context, loc domain.Location, obs domain.Observation) error
}

// Historian persists observations for later inspection.
type Historian interface {
	RecordObservation(ctx context.Context, loc domain.Location, obs domain.Observation) error
}

// Config carries the polling cadence and forecast settings.
type Config struct {
	Locations       []domain.Location
	Interval        time.Duration
	Timeout         time.Duration
	Model           string
	ForecastEnabled bool
	ForecastDays    int
}

// Poller owns one polling loop per configured location.
type Poller struct {
	fetcher    Fetcher
	monitor    HealthGate
	registry   *sensor.Registry
	publisher  Publisher // nil when event publishing is disabled
	history    Historian // nil when the history store is disabled
	cfg        Config
	clk        clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	firstTicks atomic.Int32
	states     []*locationState

	totalFetches  atomic.Int64
	failedFetches atomic.Int64
}

// locationState holds what the last polls produced for one location. It is
// confined to that location's poll goroutine.
type locationState struct {
	loc         domain.Location
	id          string
	obs         domain.Observation
	hasData     bool
	forecast    domain.ForecastSeries
	hasForecast bool
}

// New creates a Poller for the locations in cfg. publisher and history may be
// nil; the corresponding steps are then skipped.
func New(fetcher Fetcher, monitor HealthGate, registry *sensor.Registry, publisher Publisher, history Historian, cfg Config, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	states := make([]*locationState, 0, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		states = append(states, &locationState{
			loc: loc,
			id:  loc.ID(),
			obs: domain.ClearedObservation(cfg.Model),
		})
	}
	return &Poller{
		fetcher:   fetcher,
		monitor:   monitor,
		registry:  registry,
		publisher: publisher,
		history:   history,
		cfg:       cfg,
		clk:       clk,
		logger:    logger,
		metrics:   metrics,
		states:    states,
	}
}

// Stats reports cumulative fetch attempts and failures across all locations.
// Skipped ticks count as neither.
func (p *Poller) Stats() (total, failed int64) {
	return p.totalFetches.Load(), p.failedFetches.Load()
}

// CheckReadiness returns nil once every location has attempted its first
// fetch, regardless of outcome.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if int(p.firstTicks.Load()) < len(p.states) {
		return errors.New("not all locations have attempted a first fetch")
	}
	return nil
}

// Run polls every location immediately, then on each interval tick, until the
// context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		"locations", len(p.states),
		"interval", p.cfg.Interval,
		"forecast_enabled", p.cfg.ForecastEnabled,
	)

	var wg sync.WaitGroup
	for _, st := range p.states {
		wg.Add(1)
		go func(st *locationState) {
			defer wg.Done()
			p.pollLoop(ctx, st)
		}(st)
	}
	wg.Wait()

	p.logger.Info("poller stopped", "reason", ctx.Err())
	return nil
}

func (p *Poller) pollLoop(ctx context.Context, st *locationState) {
	p.pollOnce(ctx, st)
	p.firstTicks.Add(1)

	ticker := p.clk.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.pollOnce(ctx, st)
		}
	}
}

// pollOnce runs one fetch cycle for a location and applies the failure policy
// for whatever comes back.
func (p *Poller) pollOnce(ctx context.Context, st *locationState) {
	switch p.monitor.Status() {
	case domain.StatusUnhealthy:
		p.logger.Warn("skipping poll, upstream unhealthy", "location", st.loc.Name)
		p.metrics.FetchesTotal.WithLabelValues(st.id, "skipped_unhealthy").Inc()
		return
	case domain.StatusDegraded:
		p.logger.Debug("upstream degraded, polling anyway", "location", st.loc.Name)
	}

	obs, duration, err := p.fetchCurrent(ctx, st.loc)
	if ctx.Err() != nil {
		return
	}
	p.metrics.FetchDuration.WithLabelValues(st.id).Observe(duration.Seconds())
	p.metrics.FetchesTotal.WithLabelValues(st.id, domain.OutcomeLabel(err)).Inc()
	p.totalFetches.Add(1)

	if err != nil {
		p.failedFetches.Add(1)
		p.handleFailure(st, err)
		return
	}

	st.obs = obs
	st.hasData = true
	p.logger.Info("marine data updated", "location", st.loc.Name, "duration", duration)

	if p.cfg.ForecastEnabled {
		p.pollForecast(ctx, st)
	}
	p.refresh(st)
	p.deliver(ctx, st)
}

func (p *Poller) fetchCurrent(ctx context.Context, loc domain.Location) (domain.Observation, time.Duration, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := p.clk.Now()
	obs, err := p.fetcher.FetchCurrent(fetchCtx, loc)
	return obs, p.clk.Since(start), err
}

// handleFailure applies the per-error policy: an undecodable body clears the
// held observation and republishes the entity as unavailable; every other
// failure leaves the last published entity untouched. All failures ask the
// health monitor to re-probe.
func (p *Poller) handleFailure(st *locationState, err error) {
	var decodeErr *domain.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		p.logger.Error("marine response undecodable, clearing observation",
			"location", st.loc.Name, "error", err)
		st.obs = domain.ClearedObservation(p.cfg.Model)
		st.hasData = false
		p.refresh(st)
	case errors.Is(err, domain.ErrMissingCurrent):
		p.logger.Warn("marine response missing current conditions, keeping last observation",
			"location", st.loc.Name)
	default:
		p.logger.Warn("marine fetch failed, keeping last observation",
			"location", st.loc.Name,
			"reason", domain.FailureReason(err),
			"error", err)
	}

	p.monitor.TriggerCheck()
}

func (p *Poller) pollForecast(ctx context.Context, st *locationState) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	series, err := p.fetcher.FetchForecast(fetchCtx, st.loc, p.cfg.ForecastDays)
	if ctx.Err() != nil {
		return
	}
	p.metrics.ForecastFetchesTotal.WithLabelValues(st.id, domain.OutcomeLabel(err)).Inc()
	if err != nil {
		p.logger.Warn("forecast fetch failed, keeping previous forecast",
			"location", st.loc.Name,
			"reason", domain.FailureReason(err),
			"error", err)
		if domain.IsConnectivityError(err) {
			p.monitor.TriggerCheck()
		}
		return
	}
	st.forecast = series
	st.hasForecast = true
}

// refresh publishes this location's entities from the held state, together
// with the shared health entity.
func (p *Poller) refresh(st *locationState) {
	snap := p.monitor.Snapshot()
	p.registry.Upsert(sensor.NewCurrentEntity(st.loc, st.obs, snap, st.hasData))
	if st.hasForecast {
		for offset, day := range st.forecast.Days() {
			if offset >= p.cfg.ForecastDays {
				break
			}
			p.registry.Upsert(sensor.NewForecastEntity(st.loc, st.forecast, day, offset, true))
		}
	}
	p.registry.Upsert(sensor.NewHealthEntity(snap))
}

// deliver hands a fresh observation to the publisher and history store.
// Failures are counted and logged but do not fail the poll.
func (p *Poller) deliver(ctx context.Context, st *locationState) {
	if p.publisher != nil {
		if err := p.publisher.PublishObservation(ctx, st.loc, st.obs); err != nil {
			p.logger.Error("publish observation failed", "location", st.loc.Name, "error", err)
			p.metrics.EventPublishErrors.Inc()
		} else {
			p.metrics.EventsPublished.WithLabelValues("observation").Inc()
		}
	}
	if p.history != nil {
		if err := p.history.RecordObservation(ctx, st.loc, st.obs); err != nil {
			p.logger.Error("history write failed", "location", st.loc.Name, "error", err)
			p.metrics.HistoryWriteErrors.Inc()
		} else {
			p.metrics.HistoryWrites.WithLabelValues("observation").Inc()
		}
	}
}
