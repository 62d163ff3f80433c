package frame

import (
	"path/filepath"
	"strings"
)

// DefaultFormat is used when the output name carries no usable extension
const DefaultFormat = "png256"

// Format is an output image format as named by the rendering engine
type Format struct {
	Name   string
	Vector bool
}

var rasterFormats = map[string]bool{
	"png":    true,
	"png8":   true,
	"png32":  true,
	"png256": true,
	"jpeg":   true,
	"jpg":    true,
	"webp":   true,
	"tiff":   true,
	"tif":    true,
}

var vectorFormats = map[string]bool{
	"svg": true,
	"pdf": true,
}

// InferFormat derives the output format from a file name's extension.
// Unknown or missing extensions, and "-" for standard output, give DefaultFormat.
func InferFormat(output string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(output), "."))

	switch {
	case vectorFormats[ext]:
		return Format{Name: ext, Vector: true}
	case rasterFormats[ext]:
		return Format{Name: ext}
	default:
		return Format{Name: DefaultFormat}
	}
}

// ParseFormat looks up a format by name
func ParseFormat(name string) (Format, bool) {
	name = strings.ToLower(name)
	switch {
	case vectorFormats[name]:
		return Format{Name: name, Vector: true}, true
	case rasterFormats[name]:
		return Format{Name: name}, true
	}
	return Format{}, false
}

// Extension returns the conventional file extension for the format
func (f Format) Extension() string {
	switch f.Name {
	case "png8", "png32", "png256":
		return "png"
	case "jpeg":
		return "jpg"
	case "tiff":
		return "tif"
	}
	return f.Name
}

// MediaType returns the MIME type of the format
func (f Format) MediaType() string {
	switch f.Extension() {
	case "png":
		return "image/png"
	case "jpg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "tif":
		return "image/tiff"
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
