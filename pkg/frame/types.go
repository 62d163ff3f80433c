package frame

import "github.com/kiesman99/mapframe/pkg/projection"

// Conversion constants
const (
	// MillimetersPerInch converts pixels-per-inch to pixels-per-millimeter
	MillimetersPerInch = 25.4

	// ReferencePPI is the nominal screen resolution a scale factor of 1 stands for
	ReferencePPI = 90.7

	// MetersPerPixel is the ground size of one pixel at 1:1 and the reference
	// resolution (the 0.28 mm standardized rendering pixel)
	MetersPerPixel = 0.00028
)

// Layer is a style layer as exposed by the rendering engine
type Layer struct {
	Name   string
	Active bool
}

// RenderRequest holds the user-facing print parameters of a single map
type RenderRequest struct {
	Center           projection.Point // longitude, latitude in degrees (WGS84)
	WidthMM          float64
	HeightMM         float64
	PPI              float64
	ScaleDenominator float64
	Enable           []string
	Disable          []string
	Format           Format
}

// DerivedFrame is everything the rendering engine needs for one render
type DerivedFrame struct {
	Width       int
	Height      int
	PixelsPerMM float64
	ScaleFactor float64
	Scale       float64 // projected units per pixel
	Center      projection.Point
	BBox        projection.Box
	BBoxWGS84   projection.Box
	Layers      []Layer
	Degraded    bool
	Warnings    []string
}

// ActiveLayers returns the names of the layers that will be drawn
func (f *DerivedFrame) ActiveLayers() []string {
	return ActiveLayerNames(f.Layers)
}

// Capabilities describes what the rendering environment can do
type Capabilities struct {
	// VectorSurface reports whether a scalable vector surface is available
	// for svg and pdf output
	VectorSurface bool
}

// Limits restricts the accepted request parameters. Zero fields are not checked.
type Limits struct {
	MinScale, MaxScale       float64
	MinWidthMM, MaxWidthMM   float64
	MinHeightMM, MaxHeightMM float64
}
