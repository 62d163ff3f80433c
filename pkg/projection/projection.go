package projection

import "math"

// EarthRadius is the sphere radius of the spherical Mercator projection
const EarthRadius = 6378137.0

// OriginShift is half the projected world width (2 * pi * 6378137 / 2)
const OriginShift = 20037508.342789244

// Point is a coordinate pair. For geographic points X is longitude and Y is
// latitude, both in degrees.
type Point struct {
	X, Y float64
}

// Box is an axis-aligned bounding box
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Center returns the midpoint of the box
func (b Box) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Width returns the horizontal extent of the box
func (b Box) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the vertical extent of the box
func (b Box) Height() float64 {
	return b.MaxY - b.MinY
}

// Projection describes a coordinate reference system by its proj parameters
type Projection struct {
	Name       string
	Params     string
	Geographic bool
}

// WGS84 returns geographic longitude/latitude on the WGS84 datum (EPSG:4326)
func WGS84() Projection {
	return Projection{
		Name:       "EPSG:4326",
		Params:     "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs",
		Geographic: true,
	}
}

// WebMercator returns the spherical Mercator projection (EPSG:3857)
func WebMercator() Projection {
	return Projection{
		Name:   "EPSG:3857",
		Params: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs +over",
	}
}

// Transform converts coordinates between WGS84 and spherical Mercator.
// The zero value is not usable; build one with NewTransform.
type Transform struct {
	source Projection
	target Projection
}

// NewTransform creates the WGS84 to spherical Mercator transform used by
// the frame calculator
func NewTransform() Transform {
	return Transform{source: WGS84(), target: WebMercator()}
}

// Source returns the geographic side of the transform
func (t Transform) Source() Projection {
	return t.source
}

// Target returns the projected side of the transform
func (t Transform) Target() Projection {
	return t.target
}

// Forward projects a longitude/latitude point into spherical Mercator meters.
// Longitudes outside ±180 are not wrapped.
func (t Transform) Forward(p Point) Point {
	x := p.X * OriginShift / 180.0
	y := math.Log(math.Tan((90+p.Y)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * OriginShift / 180.0

	return Point{X: x, Y: y}
}

// Backward converts spherical Mercator meters to longitude/latitude
func (t Transform) Backward(p Point) Point {
	lon := (p.X / EarthRadius) * 180.0 / math.Pi
	lat := math.Asin(math.Tanh(p.Y/EarthRadius)) * 180.0 / math.Pi

	return Point{X: lon, Y: lat}
}

// BackwardBox converts a projected box to a geographic one. Both axes are
// monotonic in Mercator, so transforming the corners is exact.
func (t Transform) BackwardBox(b Box) Box {
	lo := t.Backward(Point{X: b.MinX, Y: b.MinY})
	hi := t.Backward(Point{X: b.MaxX, Y: b.MaxY})

	return Box{MinX: lo.X, MinY: lo.Y, MaxX: hi.X, MaxY: hi.Y}
}
