package domain

import "math"

// compassRose is the 16-point rose starting at N (0°), clockwise in 22.5° steps.
var compassRose = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassUnknown is returned for directions the upstream did not report.
const CompassUnknown = "Unknown"

// Compass maps a direction in degrees to its 16-point compass name.
// Rounding is half-up, so the 11.25° boundary resolves to NNE and 33.75°
// to NE. Inputs outside [0,360) are normalized first. A nil direction
// returns [CompassUnknown].
func Compass(degrees *float64) string {
	if degrees == nil {
		return CompassUnknown
	}
	d := math.Mod(*degrees, 360)
	if d < 0 {
		d += 360
	}
	index := int(math.Round(d/22.5)) % 16
	return compassRose[index]
}
