package domain

import (
	"encoding/json"
	"time"
)

// ForecastSeries holds the hourly forecast for one location. Values is
// keyed by field name in CurrentFields order; each slice is parallel to
// Times. Hours the upstream could not model are nil, same as observations.
type ForecastSeries struct {
	Times       []string              `json:"times"`
	Values      map[string][]*float64 `json:"values"`
	Timezone    string                `json:"timezone"`
	Model       string                `json:"model"`
	RetrievedAt time.Time             `json:"retrieved_at"`
}

type forecastResponse struct {
	Hourly   *hourlyBlock `json:"hourly"`
	Timezone string       `json:"timezone"`
}

type hourlyBlock struct {
	Time                []string   `json:"time"`
	WaveHeight          []*float64 `json:"wave_height"`
	WaveDirection       []*float64 `json:"wave_direction"`
	WavePeriod          []*float64 `json:"wave_period"`
	WindWaveHeight      []*float64 `json:"wind_wave_height"`
	WindWaveDirection   []*float64 `json:"wind_wave_direction"`
	WindWavePeriod      []*float64 `json:"wind_wave_period"`
	WindWavePeakPeriod  []*float64 `json:"wind_wave_peak_period"`
	SwellWaveHeight     []*float64 `json:"swell_wave_height"`
	SwellWaveDirection  []*float64 `json:"swell_wave_direction"`
	SwellWavePeriod     []*float64 `json:"swell_wave_period"`
	SwellWavePeakPeriod []*float64 `json:"swell_wave_peak_period"`
}

// ParseForecastResponse shapes a raw hourly-forecast body into a
// ForecastSeries. It returns a *DecodeError for invalid JSON and
// ErrMissingHourly when the "hourly" block is absent.
func ParseForecastResponse(data []byte, model string) (ForecastSeries, error) {
	var resp forecastResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ForecastSeries{}, &DecodeError{Err: err}
	}
	if resp.Hourly == nil {
		return ForecastSeries{}, ErrMissingHourly
	}

	h := resp.Hourly
	return ForecastSeries{
		Times: h.Time,
		Values: map[string][]*float64{
			"wave_height":            h.WaveHeight,
			"wave_direction":         h.WaveDirection,
			"wave_period":            h.WavePeriod,
			"wind_wave_height":       h.WindWaveHeight,
			"wind_wave_direction":    h.WindWaveDirection,
			"wind_wave_period":       h.WindWavePeriod,
			"wind_wave_peak_period":  h.WindWavePeakPeriod,
			"swell_wave_height":      h.SwellWaveHeight,
			"swell_wave_direction":   h.SwellWaveDirection,
			"swell_wave_period":      h.SwellWavePeriod,
			"swell_wave_peak_period": h.SwellWavePeakPeriod,
		},
		Timezone:    timezoneOrUnknown(resp.Timezone),
		Model:       model,
		RetrievedAt: clock.Now(),
	}, nil
}

// DailyForecast condenses one calendar day to its first hourly sample per
// field, the value in effect at the start of the day in location time.
type DailyForecast struct {
	Date   string              `json:"date"`
	Values map[string]*float64 `json:"values"`
}

// Days groups the hourly series by calendar date, in series order. The
// upstream reports times as local ISO strings, so the date is the string
// prefix, not a recomputation in some other zone.
func (s ForecastSeries) Days() []DailyForecast {
	var days []DailyForecast
	seen := make(map[string]bool)
	for i, ts := range s.Times {
		if len(ts) < 10 {
			continue
		}
		date := ts[:10]
		if seen[date] {
			continue
		}
		seen[date] = true

		values := make(map[string]*float64, len(CurrentFields))
		for _, name := range CurrentFields {
			series := s.Values[name]
			if i < len(series) {
				values[name] = series[i]
			} else {
				values[name] = nil
			}
		}
		days = append(days, DailyForecast{Date: date, Values: values})
	}
	return days
}

// Attributes flattens a forecast day into the published attribute map,
// mirroring Observation.Attributes with a forecast_date key added.
func (d DailyForecast) Attributes(loc Location, s ForecastSeries) map[string]any {
	attrs := map[string]any{
		"latitude":      loc.Latitude,
		"longitude":     loc.Longitude,
		"timezone":      s.Timezone,
		"models":        s.Model,
		"forecast_date": d.Date,
	}
	fields := make([]fieldValue, 0, len(CurrentFields))
	for _, f := range (&Observation{}).fields() {
		fields = append(fields, fieldValue{name: f.name, unit: f.unit, value: d.Values[f.name]})
	}
	addFieldAttributes(attrs, fields)
	return attrs
}
