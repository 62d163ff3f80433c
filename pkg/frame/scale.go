package frame

import (
	"fmt"
	"math"
)

// BaseScale returns projected units per pixel at the equator for a 1:N scale
func BaseScale(denominator, scaleFactor float64) (float64, error) {
	if math.IsNaN(denominator) || math.IsInf(denominator, 0) || denominator <= 0 {
		return 0, &ValidationError{Field: "scale", Reason: fmt.Sprintf("must be a positive number, got %v", denominator)}
	}
	if math.IsNaN(scaleFactor) || math.IsInf(scaleFactor, 0) || scaleFactor <= 0 {
		return 0, &ValidationError{Field: "scale_factor", Reason: fmt.Sprintf("must be a positive number, got %v", scaleFactor)}
	}

	return denominator * MetersPerPixel / scaleFactor, nil
}

// ResolveScale returns projected units per pixel for a 1:N scale at the
// given latitude. Mercator stretches distances by 1/cos(lat), so the
// equatorial value is divided by cos(lat). Poles are rejected.
func ResolveScale(denominator, scaleFactor, lat float64) (float64, error) {
	if math.IsNaN(lat) || math.Abs(lat) >= 90 {
		return 0, &LatitudeError{Lat: lat}
	}

	base, err := BaseScale(denominator, scaleFactor)
	if err != nil {
		return 0, err
	}

	scale := base / math.Cos(lat*math.Pi/180)
	if math.IsInf(scale, 0) || math.IsNaN(scale) {
		return 0, &LatitudeError{Lat: lat}
	}

	return scale, nil
}
