package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultCommand renders with mapnik-render from the Mapnik utilities
const DefaultCommand = "mapnik-render --xml {style} --img {output} --map-width {width} --map-height {height} --bbox {bbox} --scale-factor {scale_factor}"

// ExecEngine renders by running an external renderer command. The command
// is a template whose placeholders are filled per job, see BuildCommand.
type ExecEngine struct {
	args          []string
	vectorSurface bool
}

// NewExecEngine creates an engine running the given command template.
// vectorSurface reports whether that renderer can scale svg and pdf output.
func NewExecEngine(command string, vectorSurface bool) (*ExecEngine, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}

	args := strings.Fields(command)
	if !strings.Contains(command, "{style}") || !strings.Contains(command, "{output}") {
		return nil, fmt.Errorf("renderer command must contain {style} and {output} placeholders: %s", command)
	}

	return &ExecEngine{args: args, vectorSurface: vectorSurface}, nil
}

// Load reads the style file
func (e *ExecEngine) Load(ctx context.Context, stylePath string) (*Map, error) {
	return LoadMap(stylePath)
}

// VectorSurface reports the configured capability
func (e *ExecEngine) VectorSurface() bool {
	return e.vectorSurface
}

// Render writes the prepared style to a temporary file and runs the command
func (e *ExecEngine) Render(ctx context.Context, m *Map, job Job) error {
	stylePath, err := m.WriteFile()
	if err != nil {
		return fmt.Errorf("failed to write prepared style: %v", err)
	}
	defer os.Remove(stylePath)

	args := BuildCommand(e.args, stylePath, m.SRS(), job)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = m.Dir()

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return &RenderError{
			Backend: args[0],
			Output:  strings.TrimSpace(output.String()),
			Err:     err,
		}
	}

	return nil
}

// BuildCommand replaces the template placeholders in each argument
func BuildCommand(template []string, stylePath, srs string, job Job) []string {
	r := strings.NewReplacer(
		"{style}", stylePath,
		"{output}", job.Output,
		"{width}", strconv.Itoa(job.Width),
		"{height}", strconv.Itoa(job.Height),
		"{bbox}", fmt.Sprintf("%s,%s,%s,%s", ftoa(job.BBox.MinX), ftoa(job.BBox.MinY), ftoa(job.BBox.MaxX), ftoa(job.BBox.MaxY)),
		"{minx}", ftoa(job.BBox.MinX),
		"{miny}", ftoa(job.BBox.MinY),
		"{maxx}", ftoa(job.BBox.MaxX),
		"{maxy}", ftoa(job.BBox.MaxY),
		"{scale_factor}", ftoa(job.ScaleFactor),
		"{format}", job.Format.Name,
		"{srs}", srs,
	)

	args := make([]string, len(template))
	for i, a := range template {
		args[i] = r.Replace(a)
	}
	return args
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
