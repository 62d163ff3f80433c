package frame

import (
	"fmt"
	"math"

	"github.com/kiesman99/mapframe/pkg/projection"
)

// MaxDimension is the largest width or height in pixels
const MaxDimension = math.MaxInt32

// PixelSize converts a physical size in millimeters to whole pixels
func PixelSize(widthMM, heightMM, pixelsPerMM float64) (int, int, error) {
	w := math.Round(widthMM * pixelsPerMM)
	h := math.Round(heightMM * pixelsPerMM)

	if math.IsNaN(w) || math.IsNaN(h) || math.Abs(w) > MaxDimension || math.Abs(h) > MaxDimension {
		return 0, 0, &InvalidGeometryError{Reason: fmt.Sprintf("%gx%g pixels exceeds the maximum dimension %d", w, h, MaxDimension)}
	}

	width := int(w)
	height := int(h)

	if err := checkGeometry(width, height); err != nil {
		return 0, 0, err
	}

	return width, height, nil
}

// BuildBBox returns the box of width x height pixels at the given per-pixel
// scale, centered on a projected point. Coordinates are not rounded.
func BuildBBox(width, height int, scale float64, center projection.Point) (projection.Box, error) {
	if err := checkGeometry(width, height); err != nil {
		return projection.Box{}, err
	}

	w := float64(width) * scale / 2
	h := float64(height) * scale / 2

	return projection.Box{
		MinX: center.X - w,
		MinY: center.Y - h,
		MaxX: center.X + w,
		MaxY: center.Y + h,
	}, nil
}

func checkGeometry(width, height int) error {
	if width < 0 || height < 0 {
		return &InvalidGeometryError{Width: width, Height: height, Reason: "negative dimension"}
	}
	if width+height <= 0 {
		return &InvalidGeometryError{Width: width, Height: height, Reason: "both dimensions are less or equal to zero"}
	}
	return nil
}
