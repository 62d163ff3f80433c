package engine

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chai2010/webp"

	"github.com/kiesman99/mapframe/pkg/frame"
)

// MaxPixels caps the raster size the preview engine allocates
const MaxPixels = 10000 * 10000

// PreviewEngine is a built-in renderer that draws the map frame only: the
// style background, the frame border and a center mark. It is meant for
// checking frames without a cartographic renderer installed.
type PreviewEngine struct {
	Quality int // jpeg and webp quality
}

// NewPreviewEngine creates a preview engine with default settings
func NewPreviewEngine() *PreviewEngine {
	return &PreviewEngine{Quality: 90}
}

// Load reads the style file
func (e *PreviewEngine) Load(ctx context.Context, stylePath string) (*Map, error) {
	return LoadMap(stylePath)
}

// VectorSurface is always available: svg is written directly
func (e *PreviewEngine) VectorSurface() bool {
	return true
}

// Render draws the frame into job.Output
func (e *PreviewEngine) Render(ctx context.Context, m *Map, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if job.Format.Name == "pdf" || job.Format.Extension() == "tif" {
		return &RenderError{Backend: NamePreview, Err: fmt.Errorf("format %s not supported", job.Format.Name)}
	}

	file, err := os.Create(job.Output)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := e.Encode(w, m, job); err != nil {
		return &RenderError{Backend: NamePreview, Err: err}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return file.Close()
}

// Encode writes the frame in the job's format to w
func (e *PreviewEngine) Encode(w io.Writer, m *Map, job Job) error {
	if job.Format.Vector {
		return e.writeSVG(w, m, job)
	}

	if job.Width <= 0 || job.Height <= 0 {
		return fmt.Errorf("cannot draw an empty image: %dx%d", job.Width, job.Height)
	}
	if job.Width > MaxPixels/job.Height {
		return fmt.Errorf("requested image size too large: %dx%d", job.Width, job.Height)
	}

	img := e.drawRaster(m, job)

	switch job.Format.Extension() {
	case "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: e.Quality})
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(e.Quality)})
	default:
		return png.Encode(w, img)
	}
}

func (e *PreviewEngine) drawRaster(m *Map, job Job) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, job.Width, job.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: parseColor(m.Background())}, image.Point{}, draw.Src)

	ink := color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	stroke := strokeWidth(job.ScaleFactor)

	// border
	for i := 0; i < stroke; i++ {
		for x := 0; x < job.Width; x++ {
			img.Set(x, i, ink)
			img.Set(x, job.Height-1-i, ink)
		}
		for y := 0; y < job.Height; y++ {
			img.Set(i, y, ink)
			img.Set(job.Width-1-i, y, ink)
		}
	}

	// center mark
	cx, cy := job.Width/2, job.Height/2
	arm := int(math.Round(10 * job.ScaleFactor))
	for d := -arm; d <= arm; d++ {
		for s := 0; s < stroke; s++ {
			img.Set(cx+d, cy+s-stroke/2, ink)
			img.Set(cx+s-stroke/2, cy+d, ink)
		}
	}

	return img
}

func (e *PreviewEngine) writeSVG(w io.Writer, m *Map, job Job) error {
	bg := parseColor(m.Background())
	sw := math.Max(job.ScaleFactor, 0.1)
	arm := 10 * job.ScaleFactor
	cx, cy := float64(job.Width)/2, float64(job.Height)/2

	var layers []string
	for _, l := range m.Layers() {
		if l.Active {
			layers = append(layers, l.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>`+"\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%dpt" height="%dpt" viewBox="0 0 %d %d">`+"\n",
		job.Width, job.Height, job.Width, job.Height)
	fmt.Fprintf(&b, "  <title>%s</title>\n", escape(strings.Join(layers, ",")))
	fmt.Fprintf(&b, "  <desc>bbox=%s</desc>\n", frame.FormatBox(job.BBox))
	fmt.Fprintf(&b, `  <rect x="0" y="0" width="%d" height="%d" fill="#%02x%02x%02x"/>`+"\n",
		job.Width, job.Height, bg.R, bg.G, bg.B)
	fmt.Fprintf(&b, `  <rect x="%g" y="%g" width="%g" height="%g" fill="none" stroke="#333333" stroke-width="%g"/>`+"\n",
		sw/2, sw/2, float64(job.Width)-sw, float64(job.Height)-sw, sw)
	fmt.Fprintf(&b, `  <path d="M%g %gH%gM%g %gV%g" stroke="#333333" stroke-width="%g"/>`+"\n",
		cx-arm, cy, cx+arm, cx, cy-arm, cy+arm, sw)
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func strokeWidth(scaleFactor float64) int {
	if s := int(math.Round(scaleFactor)); s > 1 {
		return s
	}
	return 1
}

// parseColor understands #rgb, #rrggbb and #rrggbbaa; anything else is white
func parseColor(s string) color.RGBA {
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return white
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return white
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
