package frame

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kiesman99/mapframe/pkg/projection"
)

// FormatBox renders a box the way the downstream build tooling parses it
func FormatBox(b projection.Box) string {
	return fmt.Sprintf("Box2d(%s,%s,%s,%s)", ftoa(b.MinX), ftoa(b.MinY), ftoa(b.MaxX), ftoa(b.MaxY))
}

// WriteReport prints the derived values, one "key=value" per line:
//
//	scale=0.846533...
//	scale_factor=3.3076...
//	size=2480,3508
//	bbox=Box2d(minx,miny,maxx,maxy)
//	bbox_wgs84=Box2d(minlon,minlat,maxlon,maxlat)
//	layers=a,b,c
func WriteReport(w io.Writer, f *DerivedFrame) error {
	_, err := fmt.Fprintf(w, "scale=%s\nscale_factor=%s\nsize=%d,%d\nbbox=%s\nbbox_wgs84=%s\nlayers=%s\n",
		ftoa(f.Scale),
		ftoa(f.ScaleFactor),
		f.Width, f.Height,
		FormatBox(f.BBox),
		FormatBox(f.BBoxWGS84),
		strings.Join(f.ActiveLayers(), ","))
	return err
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
