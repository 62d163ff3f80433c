package frame

import "fmt"

// InvalidGeometryError indicates pixel dimensions that cannot be rendered
type InvalidGeometryError struct {
	Width, Height int
	Reason        string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry %dx%d: %s", e.Width, e.Height, e.Reason)
}

// LatitudeError indicates a center latitude for which the scale correction is undefined
type LatitudeError struct {
	Lat float64
}

func (e *LatitudeError) Error() string {
	return fmt.Sprintf("invalid latitude %v: must be strictly between -90 and 90", e.Lat)
}

// ValidationError indicates a request parameter outside its valid range
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
