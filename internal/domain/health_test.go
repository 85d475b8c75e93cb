package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testThresholds = Thresholds{
	FailureThreshold:  3,
	RecoveryThreshold: 2,
	SlowProbeCutoff:   5 * time.Second,
}

func fastSuccess() ProbeOutcome {
	return ProbeOutcome{Success: true, Duration: 200 * time.Millisecond}
}

func slowSuccess() ProbeOutcome {
	return ProbeOutcome{Success: true, Duration: 6 * time.Second}
}

func failure(reason string) ProbeOutcome {
	return ProbeOutcome{Success: false, Duration: time.Second, Reason: reason}
}

func TestHealthMetricsRecord(t *testing.T) {
	t.Run("single success is not yet healthy", func(t *testing.T) {
		var m HealthMetrics

		status := m.Record(fastSuccess(), testThresholds)

		assert.Equal(t, StatusDegraded, status)
		assert.Equal(t, 1, m.ConsecutiveSuccesses)
	})

	t.Run("recovery threshold reached", func(t *testing.T) {
		var m HealthMetrics

		m.Record(fastSuccess(), testThresholds)
		status := m.Record(fastSuccess(), testThresholds)

		assert.Equal(t, StatusHealthy, status)
		assert.Equal(t, 2, m.ConsecutiveSuccesses)
		assert.Equal(t, 0, m.ConsecutiveFailures)
	})

	t.Run("failures below threshold are degraded", func(t *testing.T) {
		var m HealthMetrics

		assert.Equal(t, StatusDegraded, m.Record(failure("Timeout"), testThresholds))
		assert.Equal(t, StatusDegraded, m.Record(failure("Timeout"), testThresholds))
		assert.Equal(t, 2, m.ConsecutiveFailures)
	})

	t.Run("failure threshold reached", func(t *testing.T) {
		var m HealthMetrics

		m.Record(failure("HTTP 503"), testThresholds)
		m.Record(failure("HTTP 503"), testThresholds)
		status := m.Record(failure("HTTP 503"), testThresholds)

		assert.Equal(t, StatusUnhealthy, status)
		assert.Equal(t, 3, m.ConsecutiveFailures)
	})

	t.Run("stays unhealthy past the threshold", func(t *testing.T) {
		var m HealthMetrics

		for i := 0; i < 5; i++ {
			m.Record(failure("Timeout"), testThresholds)
		}

		assert.Equal(t, StatusUnhealthy, m.Record(failure("Timeout"), testThresholds))
		assert.Equal(t, 6, m.ConsecutiveFailures)
	})

	t.Run("failure resets a success streak", func(t *testing.T) {
		var m HealthMetrics

		m.Record(fastSuccess(), testThresholds)
		m.Record(fastSuccess(), testThresholds)
		status := m.Record(failure("ConnectionError"), testThresholds)

		assert.Equal(t, StatusDegraded, status)
		assert.Equal(t, 0, m.ConsecutiveSuccesses)
		assert.Equal(t, 1, m.ConsecutiveFailures)
	})

	t.Run("recovery after an outage takes a full streak", func(t *testing.T) {
		var m HealthMetrics
		for i := 0; i < 3; i++ {
			m.Record(failure("Timeout"), testThresholds)
		}

		assert.Equal(t, StatusDegraded, m.Record(fastSuccess(), testThresholds))
		assert.Equal(t, StatusHealthy, m.Record(fastSuccess(), testThresholds))
		assert.Equal(t, 0, m.ConsecutiveFailures)
	})

	t.Run("slow success is degraded even mid-streak", func(t *testing.T) {
		var m HealthMetrics

		m.Record(fastSuccess(), testThresholds)
		m.Record(fastSuccess(), testThresholds)
		status := m.Record(slowSuccess(), testThresholds)

		assert.Equal(t, StatusDegraded, status)
		// The streak itself survives, so the next fast probe is healthy again.
		assert.Equal(t, 3, m.ConsecutiveSuccesses)
		assert.Equal(t, StatusHealthy, m.Record(fastSuccess(), testThresholds))
	})

	t.Run("slow probe at the cutoff is not slow", func(t *testing.T) {
		var m HealthMetrics
		m.Record(fastSuccess(), testThresholds)

		outcome := ProbeOutcome{Success: true, Duration: 5 * time.Second}

		assert.Equal(t, StatusHealthy, m.Record(outcome, testThresholds))
	})

	t.Run("counters accumulate", func(t *testing.T) {
		var m HealthMetrics

		m.Record(fastSuccess(), testThresholds)
		m.Record(failure("Timeout"), testThresholds)
		m.Record(fastSuccess(), testThresholds)

		assert.Equal(t, 3, m.TotalChecks)
		assert.Equal(t, 1, m.ErrorCount)
	})

	t.Run("timestamps from the clock", func(t *testing.T) {
		fixedTime := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		defer SetClock(nil)

		var m HealthMetrics
		m.Record(fastSuccess(), testThresholds)

		require.NotNil(t, m.LastCheck)
		assert.Equal(t, fixedTime, *m.LastCheck)
		require.NotNil(t, m.LastSuccess)
		assert.Equal(t, fixedTime, *m.LastSuccess)
		assert.Nil(t, m.LastFailure)

		m.Record(failure("Timeout"), testThresholds)

		require.NotNil(t, m.LastFailure)
		assert.Equal(t, fixedTime, *m.LastFailure)
	})

	t.Run("response window keeps the newest ten", func(t *testing.T) {
		var m HealthMetrics

		for i := 1; i <= 12; i++ {
			outcome := ProbeOutcome{Success: true, Duration: time.Duration(i) * time.Second}
			m.Record(outcome, testThresholds)
		}

		require.Len(t, m.ResponseTimes, ResponseWindowSize)
		assert.Equal(t, 3.0, m.ResponseTimes[0])
		assert.Equal(t, 12.0, m.ResponseTimes[ResponseWindowSize-1])
	})

	t.Run("window holds failures too", func(t *testing.T) {
		var m HealthMetrics

		m.Record(fastSuccess(), testThresholds)
		m.Record(failure("Timeout"), testThresholds)

		assert.Len(t, m.ResponseTimes, 2)
	})
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		errors   int
		expected float64
	}{
		{"no checks yet", 0, 0, 100},
		{"all succeeded", 10, 0, 100},
		{"some failures", 10, 3, 70},
		{"all failed", 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := HealthMetrics{TotalChecks: tt.total, ErrorCount: tt.errors}
			assert.Equal(t, tt.expected, m.SuccessRate())
		})
	}
}

func TestAverageResponseTime(t *testing.T) {
	t.Run("no samples", func(t *testing.T) {
		var m HealthMetrics
		assert.Equal(t, 0.0, m.AverageResponseTime())
	})

	t.Run("mean of the window", func(t *testing.T) {
		m := HealthMetrics{ResponseTimes: []float64{1, 2, 3}}
		assert.Equal(t, 2.0, m.AverageResponseTime())
	})
}

func TestStatusRank(t *testing.T) {
	assert.Equal(t, 0.0, StatusUnknown.Rank())
	assert.Equal(t, 1.0, StatusHealthy.Rank())
	assert.Equal(t, 2.0, StatusDegraded.Rank())
	assert.Equal(t, 3.0, StatusUnhealthy.Rank())
	assert.Equal(t, 0.0, Status("garbage").Rank())
}

func TestHealthMetricsClone(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	m := HealthMetrics{
		ConsecutiveFailures: 2,
		TotalChecks:         5,
		LastCheck:           &now,
		ResponseTimes:       []float64{0.2, 0.4},
	}

	c := m.Clone()
	c.ResponseTimes[0] = 99
	*c.LastCheck = now.Add(time.Hour)

	assert.Equal(t, 0.2, m.ResponseTimes[0])
	assert.Equal(t, now, *m.LastCheck)
	assert.Equal(t, 2, c.ConsecutiveFailures)
}

func TestHealthSnapshotAttributes(t *testing.T) {
	lastCheck := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	snap := HealthSnapshot{
		Status: StatusHealthy,
		Metrics: HealthMetrics{
			ConsecutiveSuccesses: 4,
			TotalChecks:          10,
			ErrorCount:           1,
			LastCheck:            &lastCheck,
			LastSuccess:          &lastCheck,
			ResponseTimes:        []float64{0.5, 1.5},
		},
	}

	t.Run("health entity attributes", func(t *testing.T) {
		attrs := snap.Attributes()

		assert.Equal(t, 90.0, attrs["success_rate"])
		assert.Equal(t, "%", attrs["success_rate_unit"])
		assert.Equal(t, 1.0, attrs["average_response_time"])
		assert.Equal(t, "s", attrs["average_response_time_unit"])
		assert.Equal(t, 10, attrs["total_requests"])
		assert.Equal(t, 1, attrs["failed_requests"])
		assert.Equal(t, 0, attrs["consecutive_failures"])
		assert.Equal(t, 4, attrs["consecutive_successes"])
		assert.Equal(t, "2026-02-10T08:00:00Z", attrs["last_check"])
		assert.Equal(t, "2026-02-10T08:00:00Z", attrs["last_success"])
		assert.Nil(t, attrs["last_failure"])
	})

	t.Run("api attributes for marine entities", func(t *testing.T) {
		attrs := snap.APIAttributes()

		assert.Equal(t, "healthy", attrs["api_health_status"])
		assert.Equal(t, 90.0, attrs["api_success_rate"])
		assert.Equal(t, "%", attrs["api_success_rate_unit"])
		assert.Equal(t, 1.0, attrs["api_avg_response_time"])
		assert.Equal(t, "s", attrs["api_avg_response_time_unit"])
		assert.Equal(t, 10, attrs["api_total_requests"])
		assert.Equal(t, 1, attrs["api_failed_requests"])
	})
}
