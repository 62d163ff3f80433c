package engine

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kiesman99/mapframe/pkg/frame"
	"github.com/kiesman99/mapframe/pkg/projection"
)

// Map is a loaded Mapnik XML style plus the render settings applied to it.
// Only the <Map> and <Layer> start tags are interpreted; everything else is
// passed through to the renderer untouched.
type Map struct {
	path       string
	raw        []byte
	layers     []frame.Layer
	tags       []tagSpan // Layer start tags, in document order
	mapTag     *tagSpan
	srs        string
	background string
	width      int
	height     int
	bbox       projection.Box
}

// tagSpan locates a start tag in the raw document
type tagSpan struct {
	start, end int64
}

// LoadMap reads a style file from disk
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style: %w", err)
	}

	m, err := ParseMap(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse style %s: %w", path, err)
	}
	m.path = path

	return m, nil
}

// ParseMap scans a style document for its map settings and layers
func ParseMap(data []byte) (*Map, error) {
	m := &Map{raw: data}

	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false

	for {
		start := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		span := tagSpan{start: start, end: d.InputOffset()}

		switch se.Name.Local {
		case "Map":
			if m.mapTag == nil {
				m.mapTag = &span
				m.srs = attr(se.Attr, "srs")
				m.background = attr(se.Attr, "background-color")
			}
		case "Layer":
			if m.mapTag == nil {
				return nil, fmt.Errorf("<Layer> at offset %d outside of <Map>", start)
			}
			m.tags = append(m.tags, span)
			m.layers = append(m.layers, frame.Layer{
				Name:   attr(se.Attr, "name"),
				Active: isActive(attr(se.Attr, "status")),
			})
		}
	}

	if m.mapTag == nil {
		return nil, fmt.Errorf("no <Map> element found")
	}

	return m, nil
}

// Path returns the file the style was loaded from
func (m *Map) Path() string {
	return m.path
}

// Dir returns the directory relative style resources resolve against
func (m *Map) Dir() string {
	if m.path == "" {
		return "."
	}
	return filepath.Dir(m.path)
}

// Layers returns the style's layers in document order
func (m *Map) Layers() []frame.Layer {
	out := make([]frame.Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// SetLayerActive sets the active flag of every layer with the given name
func (m *Map) SetLayerActive(name string, active bool) {
	for i := range m.layers {
		if m.layers[i].Name == name {
			m.layers[i].Active = active
		}
	}
}

// ApplyLayers copies active flags from a selection made on Layers()
func (m *Map) ApplyLayers(layers []frame.Layer) error {
	if len(layers) != len(m.layers) {
		return fmt.Errorf("layer count mismatch: style has %d, got %d", len(m.layers), len(layers))
	}
	for i := range layers {
		if layers[i].Name != m.layers[i].Name {
			return fmt.Errorf("layer %d is %q, got %q", i, m.layers[i].Name, layers[i].Name)
		}
		m.layers[i].Active = layers[i].Active
	}
	return nil
}

// SRS returns the working projection of the map
func (m *Map) SRS() string {
	return m.srs
}

// SetSRS sets the working projection of the map
func (m *Map) SetSRS(srs string) {
	m.srs = srs
}

// Background returns the style's background color, if any
func (m *Map) Background() string {
	return m.background
}

// Resize sets the pixel size of the map
func (m *Map) Resize(width, height int) {
	m.width, m.height = width, height
}

// Size returns the pixel size of the map
func (m *Map) Size() (int, int) {
	return m.width, m.height
}

// ZoomToBox sets the projected extent to render
func (m *Map) ZoomToBox(b projection.Box) {
	m.bbox = b
}

// Extent returns the projected extent to render
func (m *Map) Extent() projection.Box {
	return m.bbox
}

// Bytes returns the style document with the current srs and layer flags
// written into the <Map> and <Layer> start tags. Only the affected
// attributes are rewritten, so entity references elsewhere survive.
func (m *Map) Bytes() []byte {
	var out bytes.Buffer
	out.Grow(len(m.raw) + 64)

	var pos int64
	emit := func(s tagSpan, name, value string) {
		out.Write(m.raw[pos:s.start])
		out.Write(rewriteAttr(m.raw[s.start:s.end], name, value))
		pos = s.end
	}

	if m.mapTag != nil && m.srs != "" {
		emit(*m.mapTag, "srs", m.srs)
	}
	for i, t := range m.tags {
		status := "off"
		if m.layers[i].Active {
			status = "on"
		}
		emit(t, "status", status)
	}
	out.Write(m.raw[pos:])

	return out.Bytes()
}

// WriteFile writes the prepared style next to the original so relative
// resource paths keep resolving, and returns the new file's path
func (m *Map) WriteFile() (string, error) {
	f, err := os.CreateTemp(m.Dir(), ".mapframe-*.xml")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(m.Bytes()); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), f.Close()
}

var attrPattern = map[string]*regexp.Regexp{
	"srs":    regexp.MustCompile(`(\s)srs\s*=\s*("[^"]*"|'[^']*')`),
	"status": regexp.MustCompile(`(\s)status\s*=\s*("[^"]*"|'[^']*')`),
}

// rewriteAttr sets an attribute inside a raw start tag, appending it when absent
func rewriteAttr(tag []byte, name, value string) []byte {
	var quoted bytes.Buffer
	quoted.WriteByte('"')
	xml.EscapeText(&quoted, []byte(value))
	quoted.WriteByte('"')

	re := attrPattern[name]
	if loc := re.FindSubmatchIndex(tag); loc != nil {
		out := make([]byte, 0, len(tag)+quoted.Len())
		out = append(out, tag[:loc[4]]...)
		out = append(out, quoted.Bytes()...)
		return append(out, tag[loc[5]:]...)
	}

	cut := len(tag) - 1
	if cut > 0 && tag[cut-1] == '/' {
		cut--
	}
	out := make([]byte, 0, len(tag)+len(name)+quoted.Len()+2)
	out = append(out, tag[:cut]...)
	out = append(out, ' ')
	out = append(out, name...)
	out = append(out, '=')
	out = append(out, quoted.Bytes()...)
	return append(out, tag[cut:]...)
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func isActive(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "off", "false", "0", "no":
		return false
	}
	return true
}
