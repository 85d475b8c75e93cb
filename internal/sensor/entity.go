// Package sensor maintains the registry of published entities: one
// current-conditions entity per location, optional per-day forecast
// entities, and a single entity tracking the upstream API itself.
package sensor

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
)

// Kind distinguishes the entity families.
type Kind string

const (
	KindCurrent  Kind = "current"
	KindForecast Kind = "forecast"
	KindHealth   Kind = "health"
)

// HealthEntityID identifies the upstream-health entity.
const HealthEntityID = "api_health"

// Entity is one published sensor. State is the primary value: a rounded
// float for marine entities, the status string for the health entity, nil
// when there is nothing to report. Attributes are treated as immutable
// once the entity is stored.
type Entity struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Kind       Kind           `json:"kind"`
	State      any            `json:"state"`
	Unit       string         `json:"unit,omitempty"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CurrentEntityID returns the id of a location's current-conditions entity.
func CurrentEntityID(loc domain.Location) string {
	return loc.ID() + "_current"
}

// ForecastEntityID returns the id of a location's forecast entity for the
// given day offset, 0 being today.
func ForecastEntityID(loc domain.Location, day int) string {
	return fmt.Sprintf("%s_forecast_day%d", loc.ID(), day)
}

// NewCurrentEntity builds the current-conditions entity for one location.
// The primary state is the swell wave height; the full observation and the
// condensed upstream health ride along as attributes.
func NewCurrentEntity(loc domain.Location, obs domain.Observation, snap domain.HealthSnapshot, available bool) Entity {
	attrs := obs.Attributes(loc)
	for k, v := range snap.APIAttributes() {
		attrs[k] = v
	}
	return Entity{
		ID:         CurrentEntityID(loc),
		Name:       loc.Name + " Marine Conditions",
		Kind:       KindCurrent,
		State:      roundedState(obs.SwellWaveHeight),
		Unit:       domain.UnitMeters,
		Available:  available,
		Attributes: attrs,
		UpdatedAt:  obs.RetrievedAt,
	}
}

// NewForecastEntity builds the forecast entity for one location and day
// offset.
func NewForecastEntity(loc domain.Location, series domain.ForecastSeries, day domain.DailyForecast, offset int, available bool) Entity {
	return Entity{
		ID:         ForecastEntityID(loc, offset),
		Name:       fmt.Sprintf("%s Marine Forecast Day %d", loc.Name, offset),
		Kind:       KindForecast,
		State:      roundedState(day.Values["swell_wave_height"]),
		Unit:       domain.UnitMeters,
		Available:  available,
		Attributes: day.Attributes(loc, series),
		UpdatedAt:  series.RetrievedAt,
	}
}

// NewHealthEntity builds the upstream-health entity. It is always
// available; before the first probe its state is simply "unknown".
func NewHealthEntity(snap domain.HealthSnapshot) Entity {
	var updated time.Time
	if snap.Metrics.LastCheck != nil {
		updated = *snap.Metrics.LastCheck
	}
	return Entity{
		ID:         HealthEntityID,
		Name:       "Marine API Health",
		Kind:       KindHealth,
		State:      string(snap.Status),
		Available:  true,
		Attributes: snap.Attributes(),
		UpdatedAt:  updated,
	}
}

// roundedState rounds a reading to two decimals for display, keeping nil
// as nil.
func roundedState(v *float64) any {
	if v == nil {
		return nil
	}
	return math.Round(*v*100) / 100
}
