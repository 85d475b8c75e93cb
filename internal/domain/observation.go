package domain

import (
	"encoding/json"
	"time"
)

// Units attached to observation attributes.
const (
	UnitMeters  = "m"
	UnitDegrees = "°"
	UnitSeconds = "s"
	UnitPercent = "%"
)

// CurrentFields lists the current-conditions fields requested from the
// upstream, in request order. The same set is requested hourly for forecasts.
var CurrentFields = []string{
	"wave_height",
	"wave_direction",
	"wave_period",
	"wind_wave_height",
	"wind_wave_direction",
	"wind_wave_period",
	"wind_wave_peak_period",
	"swell_wave_height",
	"swell_wave_direction",
	"swell_wave_period",
	"swell_wave_peak_period",
}

// Observation is a snapshot of current marine conditions for one location.
// A nil field means the upstream did not report it this tick; nil is
// preserved end to end and never collapses to zero. Observations are
// replaced wholesale on every successful poll, never merged.
type Observation struct {
	WaveHeight          *float64 `json:"wave_height"`
	WaveDirection       *float64 `json:"wave_direction"`
	WavePeriod          *float64 `json:"wave_period"`
	WindWaveHeight      *float64 `json:"wind_wave_height"`
	WindWaveDirection   *float64 `json:"wind_wave_direction"`
	WindWavePeriod      *float64 `json:"wind_wave_period"`
	WindWavePeakPeriod  *float64 `json:"wind_wave_peak_period"`
	SwellWaveHeight     *float64 `json:"swell_wave_height"`
	SwellWaveDirection  *float64 `json:"swell_wave_direction"`
	SwellWavePeriod     *float64 `json:"swell_wave_period"`
	SwellWavePeakPeriod *float64 `json:"swell_wave_peak_period"`

	Timezone    string    `json:"timezone"`
	Model       string    `json:"model"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// marineResponse mirrors the upstream current-conditions payload. The
// "current" block also carries bookkeeping keys (time, interval) that are
// not part of the observation and are ignored here.
type marineResponse struct {
	Current  *currentBlock `json:"current"`
	Timezone string        `json:"timezone"`
}

type currentBlock struct {
	WaveHeight          *float64 `json:"wave_height"`
	WaveDirection       *float64 `json:"wave_direction"`
	WavePeriod          *float64 `json:"wave_period"`
	WindWaveHeight      *float64 `json:"wind_wave_height"`
	WindWaveDirection   *float64 `json:"wind_wave_direction"`
	WindWavePeriod      *float64 `json:"wind_wave_period"`
	WindWavePeakPeriod  *float64 `json:"wind_wave_peak_period"`
	SwellWaveHeight     *float64 `json:"swell_wave_height"`
	SwellWaveDirection  *float64 `json:"swell_wave_direction"`
	SwellWavePeriod     *float64 `json:"swell_wave_period"`
	SwellWavePeakPeriod *float64 `json:"swell_wave_peak_period"`
}

// ParseMarineResponse shapes a raw current-conditions body into an
// Observation. It returns a *DecodeError when the body is not valid JSON
// and ErrMissingCurrent when the "current" block is absent. Missing fields
// inside "current" become nil values, which is not an error. The model is
// the request parameter, recorded verbatim since the upstream does not echo
// it.
func ParseMarineResponse(data []byte, model string) (Observation, error) {
	var resp marineResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Observation{}, &DecodeError{Err: err}
	}
	if resp.Current == nil {
		return Observation{}, ErrMissingCurrent
	}

	c := resp.Current
	return Observation{
		WaveHeight:          c.WaveHeight,
		WaveDirection:       c.WaveDirection,
		WavePeriod:          c.WavePeriod,
		WindWaveHeight:      c.WindWaveHeight,
		WindWaveDirection:   c.WindWaveDirection,
		WindWavePeriod:      c.WindWavePeriod,
		WindWavePeakPeriod:  c.WindWavePeakPeriod,
		SwellWaveHeight:     c.SwellWaveHeight,
		SwellWaveDirection:  c.SwellWaveDirection,
		SwellWavePeriod:     c.SwellWavePeriod,
		SwellWavePeakPeriod: c.SwellWavePeakPeriod,
		Timezone:            timezoneOrUnknown(resp.Timezone),
		Model:               model,
		RetrievedAt:         clock.Now(),
	}, nil
}

// ClearedObservation is the all-null observation published after a decode
// failure, when the last data is no longer trustworthy.
func ClearedObservation(model string) Observation {
	return Observation{
		Timezone:    "Unknown",
		Model:       model,
		RetrievedAt: clock.Now(),
	}
}

func timezoneOrUnknown(tz string) string {
	if tz == "" {
		return "Unknown"
	}
	return tz
}

// fieldValue pairs a field name with its unit and current value for
// attribute-map construction.
type fieldValue struct {
	name  string
	unit  string
	value *float64
}

func (o *Observation) fields() []fieldValue {
	return []fieldValue{
		{"wave_height", UnitMeters, o.WaveHeight},
		{"wave_direction", UnitDegrees, o.WaveDirection},
		{"wave_period", UnitSeconds, o.WavePeriod},
		{"wind_wave_height", UnitMeters, o.WindWaveHeight},
		{"wind_wave_direction", UnitDegrees, o.WindWaveDirection},
		{"wind_wave_period", UnitSeconds, o.WindWavePeriod},
		{"wind_wave_peak_period", UnitSeconds, o.WindWavePeakPeriod},
		{"swell_wave_height", UnitMeters, o.SwellWaveHeight},
		{"swell_wave_direction", UnitDegrees, o.SwellWaveDirection},
		{"swell_wave_period", UnitSeconds, o.SwellWavePeriod},
		{"swell_wave_peak_period", UnitSeconds, o.SwellWavePeakPeriod},
	}
}

// Attributes flattens the observation into the published attribute map:
// every field with a _unit companion, a _name compass companion for each
// direction, plus the location coordinates and the timezone and model
// strings verbatim. Nil fields stay null with their unit tags intact.
func (o *Observation) Attributes(loc Location) map[string]any {
	attrs := map[string]any{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"timezone":  o.Timezone,
		"models":    o.Model,
	}
	addFieldAttributes(attrs, o.fields())
	return attrs
}

func addFieldAttributes(attrs map[string]any, fields []fieldValue) {
	for _, f := range fields {
		if f.value != nil {
			attrs[f.name] = *f.value
		} else {
			attrs[f.name] = nil
		}
		attrs[f.name+"_unit"] = f.unit
		if f.unit == UnitDegrees {
			attrs[f.name+"_name"] = Compass(f.value)
		}
	}
}
