// Package health runs the shared upstream health monitor: one probe loop
// for the whole service, regardless of how many locations are polled.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/observability"
)

// Prober issues one connectivity check against the upstream API.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Config tunes the monitor's probe loop.
type Config struct {
	// Interval between scheduled probes.
	Interval time.Duration
	// Timeout bounds a single probe; exceeding it is a Timeout failure.
	Timeout time.Duration
	// Cooldown drops re-check requests arriving within this window of the
	// last completed probe, so a burst of poll failures triggers one
	// probe, not one per location.
	Cooldown   time.Duration
	Thresholds domain.Thresholds
}

// Monitor probes the upstream on a fixed cadence, classifies every outcome
// through the domain rules, and notifies listeners on status transitions.
// All state access is behind a lock; listeners are invoked outside it.
type Monitor struct {
	prober  Prober
	cfg     Config
	clk     clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.RWMutex
	status    domain.Status
	record    domain.HealthMetrics
	listeners []func(domain.HealthTransition)

	trigger   chan struct{}
	lastCheck time.Time // accessed only from Run
}

// New creates a Monitor in the unknown state. Nothing is probed until Run.
func New(prober Prober, cfg Config, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Monitor {
	return &Monitor{
		prober:  prober,
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		metrics: metrics,
		status:  domain.StatusUnknown,
		trigger: make(chan struct{}, 1),
	}
}

// OnTransition registers a listener for status transitions. Listeners run
// synchronously on the monitor goroutine, in registration order, after the
// state change is committed.
func (m *Monitor) OnTransition(fn func(domain.HealthTransition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Status returns the current classification.
func (m *Monitor) Status() domain.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Snapshot returns a point-in-time copy of the monitor state, safe to
// retain and serialize.
func (m *Monitor) Snapshot() domain.HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.HealthSnapshot{Status: m.status, Metrics: m.record.Clone()}
}

// TriggerCheck requests an out-of-cycle probe. It never blocks: at most
// one request is queued, and requests landing inside the cooldown window
// are dropped when dequeued.
func (m *Monitor) TriggerCheck() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// CheckReadiness returns nil once at least one probe has completed, or an
// error describing why the service is not yet ready.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record.TotalChecks == 0 {
		return errors.New("no health probe has completed yet")
	}
	return nil
}

// Run probes immediately, then on every interval tick or accepted trigger,
// until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("health monitor started",
		"interval", m.cfg.Interval,
		"probe_timeout", m.cfg.Timeout,
		"failure_threshold", m.cfg.Thresholds.FailureThreshold,
		"recovery_threshold", m.cfg.Thresholds.RecoveryThreshold,
	)

	m.check(ctx)

	ticker := m.clk.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			m.check(ctx)
		case <-m.trigger:
			if m.clk.Since(m.lastCheck) < m.cfg.Cooldown {
				m.logger.Debug("re-check request dropped inside cooldown")
				continue
			}
			m.check(ctx)
		}
	}
}

// check runs one probe and folds the outcome into the state.
func (m *Monitor) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	start := m.clk.Now()
	err := m.prober.Probe(probeCtx)
	duration := m.clk.Since(start)
	cancel()
	m.lastCheck = m.clk.Now()

	outcome := domain.ProbeOutcome{
		Success:  err == nil,
		Duration: duration,
		Reason:   domain.FailureReason(err),
	}

	m.metrics.ProbeDuration.Observe(duration.Seconds())
	m.metrics.ProbesTotal.WithLabelValues(probeLabel(err, duration > m.cfg.Thresholds.SlowProbeCutoff)).Inc()

	transition, changed := m.apply(outcome)

	if err != nil {
		m.logger.Warn("health probe failed",
			"reason", outcome.Reason, "error", err, "duration", duration)
	} else {
		m.logger.Debug("health probe succeeded", "duration", duration)
	}

	if changed {
		m.logger.Info("health status changed",
			"from", transition.From,
			"to", transition.To,
			"consecutive_failures", transition.Metrics.ConsecutiveFailures,
			"success_rate", transition.Metrics.SuccessRate(),
		)
		m.notify(transition)
	}
}

// apply commits one outcome under the lock and reports the transition, if
// any. Gauges are updated on every probe, transition or not.
func (m *Monitor) apply(outcome domain.ProbeOutcome) (domain.HealthTransition, bool) {
	m.mu.Lock()
	prev := m.status
	m.status = m.record.Record(outcome, m.cfg.Thresholds)
	status := m.status
	snapshot := m.record.Clone()
	m.mu.Unlock()

	m.metrics.HealthStatus.Set(status.Rank())
	m.metrics.HealthConsecutiveFailures.Set(float64(snapshot.ConsecutiveFailures))
	m.metrics.HealthSuccessRate.Set(snapshot.SuccessRate())

	if status == prev {
		return domain.HealthTransition{}, false
	}
	return domain.HealthTransition{
		From:    prev,
		To:      status,
		Metrics: snapshot,
		At:      m.clk.Now(),
	}, true
}

func (m *Monitor) notify(tr domain.HealthTransition) {
	m.mu.RLock()
	listeners := append(([]func(domain.HealthTransition))(nil), m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(tr)
	}
}

func probeLabel(err error, slow bool) string {
	if err == nil {
		if slow {
			return "slow"
		}
		return "ok"
	}
	return domain.OutcomeLabel(err)
}
