package frame

import (
	"fmt"
	"log/slog"
	"math"
)

// Normalization is the resolution-dependent part of a frame
type Normalization struct {
	PixelsPerMM float64
	ScaleFactor float64
	Degraded    bool
	Warning     string
}

// Normalize converts a print resolution into pixels-per-millimeter and a
// surface scale factor relative to ReferencePPI.
//
// Vector output without a vector surface cannot be scaled: the scale factor
// is then forced to 1 and pixels-per-millimeter falls back to the reference
// resolution. That case is reported as Degraded with a warning, not as an error.
func Normalize(ppi float64, format Format, caps Capabilities, logger *slog.Logger) (Normalization, error) {
	if math.IsNaN(ppi) || math.IsInf(ppi, 0) || ppi <= 0 {
		return Normalization{}, &ValidationError{Field: "ppi", Reason: fmt.Sprintf("must be a positive number, got %v", ppi)}
	}

	n := Normalization{
		PixelsPerMM: ppi / MillimetersPerInch,
		ScaleFactor: ppi / ReferencePPI,
	}

	if n.ScaleFactor != 1 && format.Vector && !caps.VectorSurface {
		n.Warning = fmt.Sprintf("no vector surface available for %s output, ignoring ppi %v and rendering at %v ppi", format.Name, ppi, ReferencePPI)
		n.ScaleFactor = 1
		n.PixelsPerMM = ReferencePPI / MillimetersPerInch
		n.Degraded = true

		if logger != nil {
			logger.Warn("vector surface unavailable, scale factor forced to 1",
				"format", format.Name, "ppi", ppi, "reference_ppi", ReferencePPI)
		}
	}

	return n, nil
}
