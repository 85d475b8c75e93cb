package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/observability"
)

var errProbe = errors.New("connection refused")

type countingProber struct {
	mu sync.Mutex
	n  int
	fn func(ctx context.Context) error
}

func (p *countingProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	p.n++
	fn := p.fn
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (p *countingProber) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  10 * time.Second,
		Cooldown: time.Minute,
		Thresholds: domain.Thresholds{
			FailureThreshold:  3,
			RecoveryThreshold: 2,
			SlowProbeCutoff:   5 * time.Second,
		},
	}
}

func newTestMonitor(p Prober, clk clockwork.Clock) *Monitor {
	return New(p, testConfig(), clk, discardLogger(), observability.NewMetricsForTesting())
}

func TestMonitor_InitialState(t *testing.T) {
	m := newTestMonitor(&countingProber{}, clockwork.NewFakeClock())

	assert.Equal(t, domain.StatusUnknown, m.Status())

	snap := m.Snapshot()
	assert.Equal(t, domain.StatusUnknown, snap.Status)
	assert.Equal(t, 0, snap.Metrics.TotalChecks)
	assert.Error(t, m.CheckReadiness(context.Background()))
}

func TestMonitor_Check_SuccessPath(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := newTestMonitor(&countingProber{}, clk)

	m.check(context.Background())
	assert.Equal(t, domain.StatusDegraded, m.Status())

	m.check(context.Background())
	assert.Equal(t, domain.StatusHealthy, m.Status())

	snap := m.Snapshot()
	assert.Equal(t, 2, snap.Metrics.TotalChecks)
	assert.Equal(t, 2, snap.Metrics.ConsecutiveSuccesses)
	assert.NoError(t, m.CheckReadiness(context.Background()))
}

func TestMonitor_Check_FailurePath(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := newTestMonitor(&countingProber{fn: func(context.Context) error { return errProbe }}, clk)

	for i := 0; i < 2; i++ {
		m.check(context.Background())
		assert.Equal(t, domain.StatusDegraded, m.Status())
	}

	m.check(context.Background())
	assert.Equal(t, domain.StatusUnhealthy, m.Status())

	snap := m.Snapshot()
	assert.Equal(t, 3, snap.Metrics.ConsecutiveFailures)
	assert.Equal(t, 3, snap.Metrics.ErrorCount)
}

func TestMonitor_Check_SlowProbe(t *testing.T) {
	clk := clockwork.NewFakeClock()
	slow := &countingProber{fn: func(context.Context) error {
		clk.Advance(6 * time.Second)
		return nil
	}}
	m := newTestMonitor(slow, clk)

	m.check(context.Background())
	m.check(context.Background())

	// Two successes meet the recovery threshold, but the slow latency
	// keeps the status pinned at degraded.
	assert.Equal(t, domain.StatusDegraded, m.Status())
}

func TestMonitor_Transitions(t *testing.T) {
	fixed := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(fixed)
	prober := &countingProber{}
	failing := false
	prober.fn = func(context.Context) error {
		if failing {
			return errProbe
		}
		return nil
	}
	m := newTestMonitor(prober, clk)

	var events []domain.HealthTransition
	m.OnTransition(func(tr domain.HealthTransition) { events = append(events, tr) })

	failing = true
	m.check(context.Background()) // unknown -> degraded
	m.check(context.Background()) // degraded -> degraded, no event
	m.check(context.Background()) // degraded -> unhealthy
	failing = false
	m.check(context.Background()) // unhealthy -> degraded
	m.check(context.Background()) // degraded -> healthy

	require.Len(t, events, 4)
	assert.Equal(t, domain.StatusUnknown, events[0].From)
	assert.Equal(t, domain.StatusDegraded, events[0].To)
	assert.Equal(t, domain.StatusDegraded, events[1].From)
	assert.Equal(t, domain.StatusUnhealthy, events[1].To)
	assert.Equal(t, domain.StatusUnhealthy, events[2].From)
	assert.Equal(t, domain.StatusDegraded, events[2].To)
	assert.Equal(t, domain.StatusDegraded, events[3].From)
	assert.Equal(t, domain.StatusHealthy, events[3].To)

	// Each event carries the metrics as they stood at the transition.
	assert.Equal(t, 3, events[1].Metrics.ConsecutiveFailures)
	assert.Equal(t, 1, events[2].Metrics.ConsecutiveSuccesses)
	assert.Equal(t, fixed, events[0].At)
}

func TestMonitor_ListenerSeesCommittedState(t *testing.T) {
	m := newTestMonitor(&countingProber{}, clockwork.NewFakeClock())

	var statusInListener domain.Status
	m.OnTransition(func(domain.HealthTransition) {
		// Snapshot from inside a listener must not deadlock and must see
		// the new status already committed.
		statusInListener = m.Snapshot().Status
	})

	m.check(context.Background())

	assert.Equal(t, domain.StatusDegraded, statusInListener)
}

func TestMonitor_SnapshotIsIsolated(t *testing.T) {
	m := newTestMonitor(&countingProber{}, clockwork.NewFakeClock())
	m.check(context.Background())

	snap := m.Snapshot()
	snap.Metrics.TotalChecks = 99
	if len(snap.Metrics.ResponseTimes) > 0 {
		snap.Metrics.ResponseTimes[0] = 99
	}

	fresh := m.Snapshot()
	assert.Equal(t, 1, fresh.Metrics.TotalChecks)
	assert.NotEqual(t, 99.0, fresh.Metrics.ResponseTimes[0])
}

func TestMonitor_TriggerCheckNeverBlocks(t *testing.T) {
	m := newTestMonitor(&countingProber{}, clockwork.NewFakeClock())

	// No Run loop draining the channel; the second call must hit the
	// default branch rather than block.
	m.TriggerCheck()
	m.TriggerCheck()
}

func TestMonitor_Run(t *testing.T) {
	clk := clockwork.NewFakeClock()
	prober := &countingProber{}
	m := newTestMonitor(prober, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// The first probe fires immediately, before any tick.
	assert.Eventually(t, func() bool { return prober.calls() == 1 }, time.Second, 5*time.Millisecond)

	clk.BlockUntil(1)
	clk.Advance(5 * time.Minute)
	assert.Eventually(t, func() bool { return prober.calls() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancellation")
	}
}

func TestMonitor_TriggerCheckCooldown(t *testing.T) {
	clk := clockwork.NewFakeClock()
	prober := &countingProber{}
	m := newTestMonitor(prober, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool { return prober.calls() == 1 }, time.Second, 5*time.Millisecond)
	clk.BlockUntil(1)

	// Inside the cooldown window the request is dequeued and dropped.
	m.TriggerCheck()
	assert.Never(t, func() bool { return prober.calls() > 1 }, 200*time.Millisecond, 20*time.Millisecond)

	// Past the cooldown the trigger probes again. 61s stays well short of
	// the 5m tick, so the extra probe can only come from the trigger.
	clk.Advance(61 * time.Second)
	m.TriggerCheck()
	assert.Eventually(t, func() bool { return prober.calls() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancellation")
	}
}
