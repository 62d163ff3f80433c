package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiesman99/mapframe/pkg/frame"
)

// Stdout is the output name that means "write to standard output"
const Stdout = "-"

// Sink is the destination of a render. Renderers write to Path; for
// standard output that is a temporary file copied out on Close.
type Sink struct {
	path   string
	temp   bool
	stdout io.Writer
}

// Open prepares the sink for an output name. The temporary file behind
// standard output carries the format's extension, since renderers pick the
// encoding from the file name.
func Open(name string, format frame.Format, stdout io.Writer) (*Sink, error) {
	if name != Stdout {
		return &Sink{path: name}, nil
	}

	f, err := os.CreateTemp("", "mapframe-*."+format.Extension())
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary output: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, err
	}

	return &Sink{path: f.Name(), temp: true, stdout: stdout}, nil
}

// Path returns the file the renderer should write to
func (s *Sink) Path() string {
	return s.path
}

// IsStdout reports whether the render goes to standard output
func (s *Sink) IsStdout() bool {
	return s.temp
}

// Close copies a temporary render to standard output and removes it.
// Regular files are left alone.
func (s *Sink) Close() error {
	if !s.temp {
		return nil
	}
	defer os.Remove(s.path)

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(s.stdout, f); err != nil {
		return fmt.Errorf("failed to copy output to stdout: %v", err)
	}
	return nil
}

// Discard removes a temporary render without copying it
func (s *Sink) Discard() {
	if s.temp {
		os.Remove(s.path)
	}
}

// WorldFilePath returns the world file name for an image: the image name
// with its extension replaced, e.g. map.png -> map.pgw
func WorldFilePath(image string, format frame.Format) string {
	var ext string
	switch format.Extension() {
	case "png":
		ext = ".pgw"
	case "jpg":
		ext = ".jgw"
	case "tif":
		ext = ".tfw"
	default:
		ext = ".wld"
	}

	if e := filepath.Ext(image); e != "" {
		return strings.TrimSuffix(image, e) + ext
	}
	return image + ext
}

// WriteWorldFile writes the six-line world file georeferencing a rendered
// frame: pixel size x, two rotation terms, negative pixel size y, and the
// center of the upper left pixel
func WriteWorldFile(image string, format frame.Format, f *frame.DerivedFrame) (string, error) {
	if image == Stdout || image == "" {
		return "", fmt.Errorf("can't write a worldfile when writing to stdout")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return "", &frame.InvalidGeometryError{Width: f.Width, Height: f.Height, Reason: "world file needs both dimensions"}
	}

	px := f.BBox.Width() / float64(f.Width)
	py := f.BBox.Height() / float64(f.Height)

	name := WorldFilePath(image, format)
	file, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	fmt.Fprintf(file, "%24.10f\n", px)
	fmt.Fprintf(file, "%24.10f\n", 0.0)
	fmt.Fprintf(file, "%24.10f\n", 0.0)
	fmt.Fprintf(file, "%24.10f\n", -py)
	fmt.Fprintf(file, "%24.10f\n", f.BBox.MinX+px/2)
	fmt.Fprintf(file, "%24.10f\n", f.BBox.MaxY-py/2)

	return name, file.Close()
}
