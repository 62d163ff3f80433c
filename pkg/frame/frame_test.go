package frame

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/mapframe/pkg/projection"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func a4Request(lat float64) RenderRequest {
	return RenderRequest{
		Center:           projection.Point{X: 0, Y: lat},
		WidthMM:          210,
		HeightMM:         297,
		PPI:              300,
		ScaleDenominator: 10000,
		Format:           Format{Name: "png"},
	}
}

func TestPixelSize(t *testing.T) {
	cases := []struct {
		ppi, w, h    float64
		wantW, wantH int
	}{
		{300, 210, 297, 2480, 3508},
		{72, 210, 297, 595, 842},
		{ReferencePPI, 100, 100, 357, 357},
		{25.4, 10, 0, 10, 0},
		{600, 1, 1, 24, 24},
	}

	for _, tc := range cases {
		w, h, err := PixelSize(tc.w, tc.h, tc.ppi/MillimetersPerInch)
		require.NoError(t, err)
		assert.Equal(t, tc.wantW, w, "width for ppi=%v", tc.ppi)
		assert.Equal(t, tc.wantH, h, "height for ppi=%v", tc.ppi)
		assert.Equal(t, int(math.Round(tc.w*tc.ppi/25.4)), w)
		assert.Equal(t, int(math.Round(tc.h*tc.ppi/25.4)), h)
	}
}

func TestPixelSizeInvalidGeometry(t *testing.T) {
	for _, size := range [][2]float64{{0, 0}, {0.01, 0.01}, {-10, 5}, {-1, -1}} {
		_, _, err := PixelSize(size[0], size[1], 300/MillimetersPerInch)

		var geomErr *InvalidGeometryError
		assert.True(t, errors.As(err, &geomErr), "size %v should be invalid, got %v", size, err)
	}
}

func TestPixelSizeTooLarge(t *testing.T) {
	for _, size := range [][2]float64{
		{4294967296, 4294967296},
		{10, 1e300},
		{-1e19, 10},
		{math.Inf(1), 10},
	} {
		_, _, err := PixelSize(size[0], size[1], 1)

		var geomErr *InvalidGeometryError
		assert.True(t, errors.As(err, &geomErr), "size %v should be rejected, got %v", size, err)
	}

	w, h, err := PixelSize(MaxDimension, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, w)
	assert.Equal(t, 1, h)
}

func TestNormalize(t *testing.T) {
	t.Run("raster output", func(t *testing.T) {
		n, err := Normalize(300, Format{Name: "png"}, Capabilities{}, quietLogger())
		require.NoError(t, err)
		assert.InDelta(t, 300/25.4, n.PixelsPerMM, 1e-12)
		assert.InDelta(t, 3.3076074972, n.ScaleFactor, 1e-9)
		assert.False(t, n.Degraded)
		assert.Empty(t, n.Warning)
	})

	t.Run("vector output with surface", func(t *testing.T) {
		n, err := Normalize(300, Format{Name: "svg", Vector: true}, Capabilities{VectorSurface: true}, quietLogger())
		require.NoError(t, err)
		assert.InDelta(t, 300/ReferencePPI, n.ScaleFactor, 1e-12)
		assert.False(t, n.Degraded)
	})

	t.Run("vector output without surface falls back", func(t *testing.T) {
		n, err := Normalize(300, Format{Name: "pdf", Vector: true}, Capabilities{}, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, 1.0, n.ScaleFactor)
		assert.InDelta(t, ReferencePPI/25.4, n.PixelsPerMM, 1e-12)
		assert.True(t, n.Degraded)
		assert.Contains(t, n.Warning, "pdf")
	})

	t.Run("scale factor of one is not degraded", func(t *testing.T) {
		n, err := Normalize(ReferencePPI, Format{Name: "svg", Vector: true}, Capabilities{}, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, 1.0, n.ScaleFactor)
		assert.False(t, n.Degraded)
		assert.Empty(t, n.Warning)
	})

	t.Run("invalid resolution", func(t *testing.T) {
		for _, ppi := range []float64{0, -300, math.NaN(), math.Inf(1)} {
			_, err := Normalize(ppi, Format{Name: "png"}, Capabilities{}, nil)
			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr), "ppi %v", ppi)
		}
	})
}

func TestResolveScale(t *testing.T) {
	sf := 300 / ReferencePPI

	equator, err := ResolveScale(10000, sf, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.8465333333, equator, 1e-9)

	for _, lat := range []float64{-89.9, -60, -33.3, 0, 12.5, 45, 60, 89.9} {
		got, err := ResolveScale(10000, sf, lat)
		require.NoError(t, err)
		assert.InDelta(t, equator/math.Cos(lat*math.Pi/180), got, 1e-9*got, "lat %v", lat)
	}

	sixty, err := ResolveScale(10000, sf, 60)
	require.NoError(t, err)
	assert.InDelta(t, 2*equator, sixty, 1e-9)
}

func TestResolveScaleMonotonicInDenominator(t *testing.T) {
	for _, lat := range []float64{0, 30, -70} {
		prev := 0.0
		for _, n := range []float64{1, 500, 1000, 10000, 25000, 1e6} {
			s, err := ResolveScale(n, 1, lat)
			require.NoError(t, err)
			assert.Greater(t, s, prev)
			prev = s
		}
	}
}

func TestResolveScaleRejectsPoles(t *testing.T) {
	for _, lat := range []float64{90, -90, 91, -180, math.NaN()} {
		_, err := ResolveScale(10000, 1, lat)

		var latErr *LatitudeError
		assert.True(t, errors.As(err, &latErr), "lat %v", lat)
	}
}

func TestResolveScaleRejectsBadDenominator(t *testing.T) {
	for _, n := range []float64{0, -1, math.Inf(1)} {
		_, err := ResolveScale(n, 1, 0)

		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr), "scale %v", n)
	}
}

func TestBuildBBoxSymmetry(t *testing.T) {
	centers := []projection.Point{{X: 0, Y: 0}, {X: 849133.94, Y: 6791198.22}, {X: -1e7, Y: 3e6}, {X: 123.456, Y: -789.012}}

	for _, c := range centers {
		box, err := BuildBBox(2480, 3508, 0.8465, c)
		require.NoError(t, err)

		assert.InDelta(t, 2*c.X, box.MinX+box.MaxX, 1e-6)
		assert.InDelta(t, 2*c.Y, box.MinY+box.MaxY, 1e-6)
		assert.InDelta(t, 2480*0.8465, box.Width(), 1e-6)
		assert.InDelta(t, 3508*0.8465, box.Height(), 1e-6)
		assert.Less(t, box.MinX, box.MaxX)
		assert.Less(t, box.MinY, box.MaxY)
	}
}

func TestBuildBBoxInvalidGeometry(t *testing.T) {
	_, err := BuildBBox(0, 0, 1, projection.Point{})

	var geomErr *InvalidGeometryError
	require.True(t, errors.As(err, &geomErr))
	assert.Equal(t, 0, geomErr.Width)
}

func TestBuildBBoxSingleAxis(t *testing.T) {
	box, err := BuildBBox(100, 0, 2, projection.Point{X: 10, Y: 20})
	require.NoError(t, err)

	assert.Equal(t, projection.Box{MinX: -90, MinY: 20, MaxX: 110, MaxY: 20}, box)
}

func TestCalculatorScenarioA4Equator(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{}, WithLogger(quietLogger()))

	f, err := calc.Compute(a4Request(0), nil)
	require.NoError(t, err)

	assert.Equal(t, 2480, f.Width)
	assert.Equal(t, 3508, f.Height)
	assert.InDelta(t, 3.307, f.ScaleFactor, 1e-3)
	assert.InDelta(t, 0.8465333333, f.Scale, 1e-9)
	assert.InDelta(t, -1049.7013333, f.BBox.MinX, 1e-6)
	assert.InDelta(t, 1484.8194667, f.BBox.MaxY, 1e-6)
	assert.False(t, f.Degraded)
	assert.Empty(t, f.Warnings)
}

func TestCalculatorScenarioSixtyNorth(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{}, WithLogger(quietLogger()))

	equator, err := calc.Compute(a4Request(0), nil)
	require.NoError(t, err)
	north, err := calc.Compute(a4Request(60), nil)
	require.NoError(t, err)

	assert.InDelta(t, 2*equator.Scale, north.Scale, 1e-9)
	assert.Equal(t, equator.Width, north.Width)
	assert.InDelta(t, 2*north.Center.Y, north.BBox.MinY+north.BBox.MaxY, 1e-6)
	assert.InDelta(t, 60, north.BBoxWGS84.Center().Y, 0.5)
}

func TestCalculatorScenarioEmptySize(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{}, WithLogger(quietLogger()))

	req := a4Request(0)
	req.WidthMM, req.HeightMM = 0, 0

	f, err := calc.Compute(req, nil)
	assert.Nil(t, f)

	var geomErr *InvalidGeometryError
	assert.True(t, errors.As(err, &geomErr))
}

func TestCalculatorScenarioSVGWithoutSurface(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{VectorSurface: false}, WithLogger(quietLogger()))

	req := a4Request(0)
	req.Format = InferFormat("map.svg")

	f, err := calc.Compute(req, nil)
	require.NoError(t, err)

	assert.True(t, f.Degraded)
	require.Len(t, f.Warnings, 1)
	assert.Equal(t, 1.0, f.ScaleFactor)
	assert.Equal(t, 750, f.Width)
	assert.Equal(t, 1061, f.Height)
	assert.InDelta(t, 2.8, f.Scale, 1e-12)
}

func TestCalculatorPole(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{}, WithLogger(quietLogger()))

	_, err := calc.Compute(a4Request(90), nil)

	var latErr *LatitudeError
	assert.True(t, errors.As(err, &latErr))
}

func TestCalculatorLayers(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{}, WithLogger(quietLogger()))

	layers := []Layer{{"land", true}, {"contours", false}, {"hillshade", true}, {"labels", true}}
	req := a4Request(0)
	req.Enable = []string{"contours"}
	req.Disable = []string{"hillshade", "missing"}

	f, err := calc.Compute(req, layers)
	require.NoError(t, err)

	assert.Equal(t, []string{"land", "contours", "labels"}, f.ActiveLayers())
	assert.True(t, layers[2].Active, "input layers must not be modified")
}

func TestCalculatorLimits(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{},
		WithLogger(quietLogger()),
		WithLimits(Limits{MinScale: 5000, MaxScale: 50000, MaxWidthMM: 200}))

	req := a4Request(0)
	_, err := calc.Compute(req, nil)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "width", vErr.Field)

	req.WidthMM = 190
	req.ScaleDenominator = 1000
	_, err = calc.Compute(req, nil)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "scale", vErr.Field)

	req.ScaleDenominator = 25000
	_, err = calc.Compute(req, nil)
	assert.NoError(t, err)
}

func TestCalculatorRejectsNonFiniteCenter(t *testing.T) {
	calc := NewCalculator(projection.NewTransform(), Capabilities{}, WithLogger(quietLogger()))

	req := a4Request(0)
	req.Center.X = math.NaN()

	_, err := calc.Compute(req, nil)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}
