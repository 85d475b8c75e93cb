package domain

import (
	"time"
)

// Status is the upstream API health classification.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Rank maps a status onto a stable numeric scale for gauges:
// unknown 0, healthy 1, degraded 2, unhealthy 3.
func (s Status) Rank() float64 {
	switch s {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 2
	case StatusUnhealthy:
		return 3
	default:
		return 0
	}
}

// ResponseWindowSize caps the rolling probe-latency window.
const ResponseWindowSize = 10

// Thresholds tune the health classification.
type Thresholds struct {
	// FailureThreshold is the consecutive-failure count at which the API
	// is declared unhealthy.
	FailureThreshold int
	// RecoveryThreshold is the consecutive-success count required before
	// the API is declared healthy again.
	RecoveryThreshold int
	// SlowProbeCutoff is the probe latency above which a successful probe
	// still counts the API as degraded.
	SlowProbeCutoff time.Duration
}

// ProbeOutcome is the result of a single health probe.
type ProbeOutcome struct {
	Success  bool
	Duration time.Duration
	// Reason classifies a failure, e.g. "Timeout" or "HTTP 503". Empty on
	// success.
	Reason string
}

// HealthMetrics accumulates probe history. All counters are cumulative for
// the process lifetime except ResponseTimes, which is a rolling window of
// the most recent probe latencies in seconds, successes and failures alike.
type HealthMetrics struct {
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	TotalChecks          int        `json:"total_checks"`
	ErrorCount           int        `json:"error_count"`
	LastCheck            *time.Time `json:"last_check,omitempty"`
	LastSuccess          *time.Time `json:"last_success,omitempty"`
	LastFailure          *time.Time `json:"last_failure,omitempty"`
	ResponseTimes        []float64  `json:"response_times"`
}

// SuccessRate is the lifetime success percentage. With no checks recorded
// yet it reports 100: an unprobed API is not presumed broken.
func (m HealthMetrics) SuccessRate() float64 {
	if m.TotalChecks == 0 {
		return 100
	}
	return float64(m.TotalChecks-m.ErrorCount) / float64(m.TotalChecks) * 100
}

// AverageResponseTime is the mean latency in seconds over the rolling
// window, or 0 with no samples.
func (m HealthMetrics) AverageResponseTime() float64 {
	if len(m.ResponseTimes) == 0 {
		return 0
	}
	var sum float64
	for _, rt := range m.ResponseTimes {
		sum += rt
	}
	return sum / float64(len(m.ResponseTimes))
}

// Record folds one probe outcome into the metrics and returns the
// resulting status. The status is recomputed from scratch on every probe:
//
//   - consecutive failures >= FailureThreshold: unhealthy
//   - a successful probe slower than SlowProbeCutoff: degraded
//   - consecutive successes >= RecoveryThreshold: healthy
//   - anything else: degraded
//
// A single fast success after an outage therefore reports degraded, not
// healthy, until the recovery streak completes.
func (m *HealthMetrics) Record(outcome ProbeOutcome, t Thresholds) Status {
	now := clock.Now()
	m.TotalChecks++
	m.LastCheck = &now
	m.ResponseTimes = append(m.ResponseTimes, outcome.Duration.Seconds())
	if len(m.ResponseTimes) > ResponseWindowSize {
		m.ResponseTimes = m.ResponseTimes[len(m.ResponseTimes)-ResponseWindowSize:]
	}

	if outcome.Success {
		m.ConsecutiveSuccesses++
		m.ConsecutiveFailures = 0
		m.LastSuccess = &now
	} else {
		m.ConsecutiveFailures++
		m.ConsecutiveSuccesses = 0
		m.ErrorCount++
		m.LastFailure = &now
	}

	switch {
	case m.ConsecutiveFailures >= t.FailureThreshold:
		return StatusUnhealthy
	case outcome.Success && outcome.Duration > t.SlowProbeCutoff:
		return StatusDegraded
	case m.ConsecutiveSuccesses >= t.RecoveryThreshold:
		return StatusHealthy
	default:
		return StatusDegraded
	}
}

// Clone returns a deep copy safe to hand outside a lock.
func (m HealthMetrics) Clone() HealthMetrics {
	c := m
	c.ResponseTimes = append([]float64(nil), m.ResponseTimes...)
	if m.LastCheck != nil {
		t := *m.LastCheck
		c.LastCheck = &t
	}
	if m.LastSuccess != nil {
		t := *m.LastSuccess
		c.LastSuccess = &t
	}
	if m.LastFailure != nil {
		t := *m.LastFailure
		c.LastFailure = &t
	}
	return c
}

// HealthSnapshot is a point-in-time copy of the monitor state.
type HealthSnapshot struct {
	Status  Status        `json:"status"`
	Metrics HealthMetrics `json:"metrics"`
}

// Attributes flattens the snapshot into the attribute map published on the
// dedicated health entity.
func (s HealthSnapshot) Attributes() map[string]any {
	return map[string]any{
		"success_rate":               s.Metrics.SuccessRate(),
		"success_rate_unit":          UnitPercent,
		"average_response_time":      s.Metrics.AverageResponseTime(),
		"average_response_time_unit": UnitSeconds,
		"total_requests":             s.Metrics.TotalChecks,
		"failed_requests":            s.Metrics.ErrorCount,
		"consecutive_failures":       s.Metrics.ConsecutiveFailures,
		"consecutive_successes":      s.Metrics.ConsecutiveSuccesses,
		"last_check":                 timeAttr(s.Metrics.LastCheck),
		"last_success":               timeAttr(s.Metrics.LastSuccess),
		"last_failure":               timeAttr(s.Metrics.LastFailure),
	}
}

// APIAttributes is the condensed api_-prefixed form merged into every
// marine entity's attributes so each location carries the upstream health
// alongside its readings.
func (s HealthSnapshot) APIAttributes() map[string]any {
	return map[string]any{
		"api_health_status":          string(s.Status),
		"api_success_rate":           s.Metrics.SuccessRate(),
		"api_success_rate_unit":      UnitPercent,
		"api_avg_response_time":      s.Metrics.AverageResponseTime(),
		"api_avg_response_time_unit": UnitSeconds,
		"api_total_requests":         s.Metrics.TotalChecks,
		"api_failed_requests":        s.Metrics.ErrorCount,
	}
}

func timeAttr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
