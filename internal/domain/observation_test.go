package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "best_match"

func TestParseMarineResponse(t *testing.T) {
	fixedTime := time.Date(2026, 2, 10, 6, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	t.Run("full response", func(t *testing.T) {
		data := []byte(`{
			"latitude": -26.75, "longitude": 153.125,
			"timezone": "Australia/Brisbane",
			"current": {
				"time": "2026-02-10T16:30", "interval": 900,
				"wave_height": 1.24, "wave_direction": 112.0, "wave_period": 6.85,
				"wind_wave_height": 0.3, "wind_wave_direction": 95.0, "wind_wave_period": 3.2,
				"wind_wave_peak_period": 4.1,
				"swell_wave_height": 1.18, "swell_wave_direction": 118.0, "swell_wave_period": 7.9,
				"swell_wave_peak_period": 9.3
			}
		}`)

		obs, err := ParseMarineResponse(data, testModel)

		require.NoError(t, err)
		require.NotNil(t, obs.WaveHeight)
		assert.Equal(t, 1.24, *obs.WaveHeight)
		require.NotNil(t, obs.WaveDirection)
		assert.Equal(t, 112.0, *obs.WaveDirection)
		require.NotNil(t, obs.SwellWaveHeight)
		assert.Equal(t, 1.18, *obs.SwellWaveHeight)
		require.NotNil(t, obs.SwellWavePeakPeriod)
		assert.Equal(t, 9.3, *obs.SwellWavePeakPeriod)
		assert.Equal(t, "Australia/Brisbane", obs.Timezone)
		assert.Equal(t, testModel, obs.Model)
		assert.Equal(t, fixedTime, obs.RetrievedAt)
	})

	t.Run("null and absent fields stay nil", func(t *testing.T) {
		data := []byte(`{
			"timezone": "Australia/Brisbane",
			"current": {"wave_height": null, "swell_wave_height": 0.9}
		}`)

		obs, err := ParseMarineResponse(data, testModel)

		require.NoError(t, err)
		assert.Nil(t, obs.WaveHeight)
		assert.Nil(t, obs.WaveDirection)
		assert.Nil(t, obs.WindWavePeriod)
		require.NotNil(t, obs.SwellWaveHeight)
		assert.Equal(t, 0.9, *obs.SwellWaveHeight)
	})

	t.Run("zero is a reading, not a null", func(t *testing.T) {
		data := []byte(`{"current": {"wave_height": 0, "wave_direction": 0}}`)

		obs, err := ParseMarineResponse(data, testModel)

		require.NoError(t, err)
		require.NotNil(t, obs.WaveHeight)
		assert.Equal(t, 0.0, *obs.WaveHeight)
		require.NotNil(t, obs.WaveDirection)
		assert.Equal(t, 0.0, *obs.WaveDirection)
	})

	t.Run("missing current block", func(t *testing.T) {
		data := []byte(`{"latitude": -26.75, "timezone": "Australia/Brisbane"}`)

		_, err := ParseMarineResponse(data, testModel)

		assert.ErrorIs(t, err, ErrMissingCurrent)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseMarineResponse([]byte("{not json"), testModel)

		require.Error(t, err)
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})

	t.Run("missing timezone defaults to Unknown", func(t *testing.T) {
		data := []byte(`{"current": {"wave_height": 1.0}}`)

		obs, err := ParseMarineResponse(data, testModel)

		require.NoError(t, err)
		assert.Equal(t, "Unknown", obs.Timezone)
	})
}

func TestObservationAttributes(t *testing.T) {
	loc := Location{Name: "Kings Beach", Latitude: -26.8017, Longitude: 153.1426}

	t.Run("values with units and compass names", func(t *testing.T) {
		obs := Observation{
			WaveHeight:      floatPtr(1.24),
			WaveDirection:   floatPtr(185.0),
			WavePeriod:      floatPtr(6.85),
			SwellWaveHeight: floatPtr(1.18),
			Timezone:        "Australia/Brisbane",
			Model:           testModel,
		}

		attrs := obs.Attributes(loc)

		assert.Equal(t, -26.8017, attrs["latitude"])
		assert.Equal(t, 153.1426, attrs["longitude"])
		assert.Equal(t, "Australia/Brisbane", attrs["timezone"])
		assert.Equal(t, testModel, attrs["models"])
		assert.Equal(t, 1.24, attrs["wave_height"])
		assert.Equal(t, "m", attrs["wave_height_unit"])
		assert.Equal(t, 185.0, attrs["wave_direction"])
		assert.Equal(t, "°", attrs["wave_direction_unit"])
		assert.Equal(t, "S", attrs["wave_direction_name"])
		assert.Equal(t, 6.85, attrs["wave_period"])
		assert.Equal(t, "s", attrs["wave_period_unit"])
	})

	t.Run("nil fields keep their unit tags", func(t *testing.T) {
		obs := Observation{SwellWaveHeight: floatPtr(0.9)}

		attrs := obs.Attributes(loc)

		assert.Nil(t, attrs["wave_height"])
		assert.Equal(t, "m", attrs["wave_height_unit"])
		assert.Nil(t, attrs["wind_wave_direction"])
		assert.Equal(t, "Unknown", attrs["wind_wave_direction_name"])
		assert.Equal(t, 0.9, attrs["swell_wave_height"])
	})

	t.Run("every field has a unit companion", func(t *testing.T) {
		attrs := (&Observation{}).Attributes(loc)

		for _, name := range CurrentFields {
			assert.Contains(t, attrs, name)
			assert.Contains(t, attrs, name+"_unit")
		}
	})
}

func TestParsedObservationAttributes(t *testing.T) {
	data := []byte(`{"current": {"wave_height": 1.2, "wave_direction": 90}, "timezone": "UTC"}`)

	obs, err := ParseMarineResponse(data, testModel)
	require.NoError(t, err)

	require.NotNil(t, obs.WaveHeight)
	assert.Equal(t, 1.2, *obs.WaveHeight)
	assert.Equal(t, "UTC", obs.Timezone)

	attrs := obs.Attributes(Location{Name: "Kings Beach", Latitude: -26.8017, Longitude: 153.1426})
	assert.Equal(t, 1.2, attrs["wave_height"])
	assert.Equal(t, "E", attrs["wave_direction_name"])
	assert.Equal(t, "UTC", attrs["timezone"])
}

func TestClearedObservation(t *testing.T) {
	fixedTime := time.Date(2026, 2, 10, 7, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	obs := ClearedObservation(testModel)

	assert.Nil(t, obs.WaveHeight)
	assert.Nil(t, obs.WaveDirection)
	assert.Nil(t, obs.SwellWaveHeight)
	assert.Nil(t, obs.SwellWavePeakPeriod)
	assert.Equal(t, "Unknown", obs.Timezone)
	assert.Equal(t, testModel, obs.Model)
	assert.Equal(t, fixedTime, obs.RetrievedAt)
}
