package domain

import (
	"fmt"
	"strings"
)

// Location is a monitored coordinate pair. Immutable once constructed;
// the configured list is fixed for the life of the service.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks coordinate ranges and the presence of a name.
func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("location name is required")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("location %q: latitude %g out of range [-90, 90]", l.Name, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("location %q: longitude %g out of range [-180, 180]", l.Name, l.Longitude)
	}
	return nil
}

// ID derives a stable identifier from the name and coordinates.
// "Kings Beach" at (-26.8017, 153.1426) becomes "kings_beach_-26.8017_153.1426".
// Used as the sensor id, Kafka message key, and history store key.
func (l Location) ID() string {
	name := strings.ToLower(strings.TrimSpace(l.Name))
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("%s_%.4f_%.4f", name, l.Latitude, l.Longitude)
}
