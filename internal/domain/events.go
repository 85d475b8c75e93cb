package domain

import "time"

// HealthTransition records a change of the upstream health status. One is
// emitted for every transition, including the initial move out of unknown,
// and carries the metrics as they stood at the moment of the change.
type HealthTransition struct {
	From    Status        `json:"from"`
	To      Status        `json:"to"`
	Metrics HealthMetrics `json:"metrics"`
	At      time.Time     `json:"at"`
}

// ObservationEvent is the envelope published to the events topic after each
// successful poll.
type ObservationEvent struct {
	Location    Location    `json:"location"`
	Observation Observation `json:"observation"`
}
