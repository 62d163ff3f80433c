package frame

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/kiesman99/mapframe/pkg/projection"
)

// Calculator turns render requests into derived frames. It holds only
// immutable configuration and may be shared between goroutines.
type Calculator struct {
	transform projection.Transform
	caps      Capabilities
	limits    Limits
	logger    *slog.Logger
}

// Option configures a Calculator
type Option func(*Calculator)

// WithLimits rejects requests outside the given ranges
func WithLimits(l Limits) Option {
	return func(c *Calculator) {
		c.limits = l
	}
}

// WithLogger sets the logger used for degraded-mode warnings
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		c.logger = logger
	}
}

// NewCalculator creates a calculator projecting through the given transform
func NewCalculator(transform projection.Transform, caps Capabilities, opts ...Option) *Calculator {
	c := &Calculator{
		transform: transform,
		caps:      caps,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transform returns the projection transform the calculator works in
func (c *Calculator) Transform() projection.Transform {
	return c.transform
}

// Compute derives the frame for a request. layers is the style's layer list
// in style order; it is not modified.
func (c *Calculator) Compute(req RenderRequest, layers []Layer) (*DerivedFrame, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	norm, err := Normalize(req.PPI, req.Format, c.caps, c.logger)
	if err != nil {
		return nil, err
	}

	width, height, err := PixelSize(req.WidthMM, req.HeightMM, norm.PixelsPerMM)
	if err != nil {
		return nil, err
	}

	scale, err := ResolveScale(req.ScaleDenominator, norm.ScaleFactor, req.Center.Y)
	if err != nil {
		return nil, err
	}

	center := c.transform.Forward(req.Center)

	bbox, err := BuildBBox(width, height, scale, center)
	if err != nil {
		return nil, err
	}

	f := &DerivedFrame{
		Width:       width,
		Height:      height,
		PixelsPerMM: norm.PixelsPerMM,
		ScaleFactor: norm.ScaleFactor,
		Scale:       scale,
		Center:      center,
		BBox:        bbox,
		BBoxWGS84:   c.transform.BackwardBox(bbox),
		Layers:      SelectLayers(layers, req.Enable, req.Disable),
		Degraded:    norm.Degraded,
	}
	if norm.Warning != "" {
		f.Warnings = append(f.Warnings, norm.Warning)
	}

	return f, nil
}

func (c *Calculator) validate(req RenderRequest) error {
	for _, v := range []struct {
		field string
		value float64
	}{
		{"center longitude", req.Center.X},
		{"center latitude", req.Center.Y},
		{"width", req.WidthMM},
		{"height", req.HeightMM},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return &ValidationError{Field: v.field, Reason: fmt.Sprintf("must be finite, got %v", v.value)}
		}
	}

	l := c.limits
	if err := checkRange("scale", req.ScaleDenominator, l.MinScale, l.MaxScale); err != nil {
		return err
	}
	if err := checkRange("width", req.WidthMM, l.MinWidthMM, l.MaxWidthMM); err != nil {
		return err
	}
	return checkRange("height", req.HeightMM, l.MinHeightMM, l.MaxHeightMM)
}

func checkRange(field string, v, lo, hi float64) error {
	if (lo != 0 && v < lo) || (hi != 0 && v > hi) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("valid values: %v ... %v, got %v", lo, hi, v)}
	}
	return nil
}
