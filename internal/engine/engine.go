package engine

import (
	"context"
	"fmt"

	"github.com/kiesman99/mapframe/pkg/frame"
	"github.com/kiesman99/mapframe/pkg/projection"
)

// Engine names accepted by New
const (
	NamePreview = "preview"
	NameExec    = "exec"
)

// Engine is the rendering backend the frame calculator delegates to
type Engine interface {
	// Load reads a style and enumerates its layers
	Load(ctx context.Context, stylePath string) (*Map, error)

	// VectorSurface reports whether svg and pdf output can be scaled
	VectorSurface() bool

	// Render draws the map for the job into job.Output
	Render(ctx context.Context, m *Map, job Job) error
}

// Job describes a single render
type Job struct {
	Width, Height int
	BBox          projection.Box
	ScaleFactor   float64
	Format        frame.Format
	Output        string
}

// JobFor builds the render job of a derived frame
func JobFor(f *frame.DerivedFrame, format frame.Format, output string) Job {
	return Job{
		Width:       f.Width,
		Height:      f.Height,
		BBox:        f.BBox,
		ScaleFactor: f.ScaleFactor,
		Format:      format,
		Output:      output,
	}
}

// RenderError wraps a failure reported by the rendering backend
type RenderError struct {
	Backend string
	Output  string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s renderer: %v: %s", e.Backend, e.Err, e.Output)
	}
	return fmt.Sprintf("%s renderer: %v", e.Backend, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Config selects and configures an engine
type Config struct {
	Name          string
	Command       string
	VectorSurface bool
}

// New creates the engine named in cfg
func New(cfg Config) (Engine, error) {
	switch cfg.Name {
	case "", NamePreview:
		return NewPreviewEngine(), nil
	case NameExec:
		return NewExecEngine(cfg.Command, cfg.VectorSurface)
	default:
		return nil, fmt.Errorf("unknown engine: %s", cfg.Name)
	}
}

// Prepare applies a derived frame to a loaded map: layer flags, working
// projection, pixel size and extent
func Prepare(m *Map, f *frame.DerivedFrame, srs string) error {
	if err := m.ApplyLayers(f.Layers); err != nil {
		return err
	}
	m.SetSRS(srs)
	m.Resize(f.Width, f.Height)
	m.ZoomToBox(f.BBox)
	return nil
}
