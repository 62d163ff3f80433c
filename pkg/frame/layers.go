package frame

import "strings"

// SelectLayers returns a copy of layers with the enable list applied first
// and the disable list second, so a name in both lists ends up inactive.
// Names are matched exactly; names the style does not define are ignored.
// Layers named in neither list keep their style default.
func SelectLayers(layers []Layer, enable, disable []string) []Layer {
	on := toSet(enable)
	off := toSet(disable)

	out := make([]Layer, len(layers))
	copy(out, layers)

	for i := range out {
		if _, ok := on[out[i].Name]; ok {
			out[i].Active = true
		}
	}
	for i := range out {
		if _, ok := off[out[i].Name]; ok {
			out[i].Active = false
		}
	}

	return out
}

// ActiveLayerNames lists the names of active layers in style order
func ActiveLayerNames(layers []Layer) []string {
	names := make([]string, 0, len(layers))
	for _, l := range layers {
		if l.Active {
			names = append(names, l.Name)
		}
	}
	return names
}

// ParseLayerList splits a comma-separated list of layer names
func ParseLayerList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
