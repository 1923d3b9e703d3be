package photo

import (
	"fmt"
)

// ValidationError is returned when a latitude or longitude value falls
// outside its valid range. Invalid values are rejected at the assignment
// boundary and are never stored on a Photo.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s: %f", e.Field, e.Value)
}

// Coordinates is a latitude, longitude pair in signed decimal degrees.
// A Photo either has no coordinates or has both values.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinates validates lat and lon and returns a Coordinates instance.
// Latitude must be in [-90, 90] and longitude in [-180, 180].
func NewCoordinates(lat float64, lon float64) (*Coordinates, error) {

	if lat < -90.0 || lat > 90.0 {

		return nil, &ValidationError{
			Field: "latitude",
			Value: lat,
		}
	}

	if lon < -180.0 || lon > 180.0 {

		return nil, &ValidationError{
			Field: "longitude",
			Value: lon,
		}
	}

	c := &Coordinates{
		Latitude:  lat,
		Longitude: lon,
	}

	return c, nil
}
