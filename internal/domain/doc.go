// Package domain models Open-Meteo marine weather data and the health
// classification applied to the upstream API.
//
// # Data Source
//
// Observations come from the Open-Meteo Marine Weather API at
// https://marine-api.open-meteo.com/v1/marine. Each fetch requests the
// "current" conditions block for one coordinate pair; the service polls a
// fixed list of configured locations on a slow cadence and probes the API
// with a minimal query on a faster one.
//
// # Upstream Conventions
//
// Current-conditions fields (all optional per tick):
//
//	wave_height, wind_wave_height, swell_wave_height          meters
//	wave_direction, wind_wave_direction, swell_wave_direction degrees [0,360)
//	wave_period, wind_wave_period, swell_wave_period          seconds
//	wind_wave_peak_period, swell_wave_peak_period             seconds
//
// A JSON null (or an absent key) means "not reported this tick" and is kept
// as nil all the way through; it must never collapse to zero, because 0 is
// a legitimate reading for every field. The response also carries a
// "timezone" string resolved by the upstream (the request passes
// timezone=auto by default). The weather model is a request parameter
// (models=best_match); the upstream does not echo it back, so the requested
// value is recorded on the Observation verbatim.
//
// Compass names:
//
//	Directional degrees map onto the 16-point compass rose starting at N
//	(0°) and stepping clockwise in 22.5° increments:
//	N, NNE, NE, ENE, E, ESE, SE, SSE, S, SSW, SW, WSW, W, WNW, NW, NNW.
//	index = round(degrees/22.5) mod 16, rounding half up, so the 11.25°
//	boundary resolves to NNE. A nil direction renders as "Unknown".
//
// # Health Classification
//
// Every probe against the API is classified into one of four statuses:
// unknown (nothing observed yet), healthy, degraded, unhealthy. The rules
// live in [HealthMetrics.Record]: reaching the failure threshold of
// consecutive failures makes the API unhealthy; recovery requires a streak
// of fast successes; a slow success is never better than degraded. The
// full decision table is documented on [HealthMetrics.Record].
//
// # Identity
//
// Locations are supplied once at configuration time and are immutable.
// [Location.ID] derives a stable identifier from the name and coordinates
// (lowercased, spaces underscored, coordinates at 4 decimal places), used
// as the sensor id, the Kafka message key, and the history store key.
package domain
