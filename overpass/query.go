/*
Copyright © 2026 the cellmap authors.
This file is part of cellmap.

cellmap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cellmap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cellmap.  If not, see <http://www.gnu.org/licenses/>.
*/

package overpass

import (
	"fmt"
	"sort"
	"strings"
)

// Layer is a category of OpenStreetMap features.
type Layer string

// Supported layers. The layer name is also used in output file names.
const (
	Water     Layer = "water"
	Parks     Layer = "park"
	Buildings Layer = "building"
)

// layerSelectors holds the Overpass QL statements that select the features
// of each layer. {{area}} is replaced by the area set name.
var layerSelectors = map[Layer][]string{
	Water: {
		`way["natural"="water"](area.{{area}});`,
		`relation["natural"="water"](area.{{area}});`,
		`way["waterway"](area.{{area}});`,
	},
	Parks: {
		`way["leisure"="park"](area.{{area}});`,
		`relation["leisure"="park"](area.{{area}});`,
		`way["landuse"="recreation_ground"](area.{{area}});`,
		`way["landuse"="forest"](area.{{area}});`,
	},
	Buildings: {
		`way["building"](area.{{area}});`,
	},
}

// Layers returns all supported layers in alphabetical order.
func Layers() []Layer {
	o := make([]Layer, 0, len(layerSelectors))
	for l := range layerSelectors {
		o = append(o, l)
	}
	sort.Slice(o, func(i, j int) bool { return o[i] < o[j] })
	return o
}

// ParseLayer returns the layer with the given name.
func ParseLayer(name string) (Layer, error) {
	l := Layer(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := layerSelectors[l]; !ok {
		return "", fmt.Errorf("overpass: unknown layer %q; valid layers are %v", name, Layers())
	}
	return l, nil
}

// Area identifies an OpenStreetMap administrative area by name and
// administrative level.
type Area struct {
	Name       string
	AdminLevel int
}

// DefaultTimeout is the server-side query timeout in seconds.
const DefaultTimeout = 180

// Query returns the Overpass QL query that selects the features of layer l
// within area a, followed by the nodes they reference. timeout is the
// server-side timeout in seconds; if it is not positive, DefaultTimeout is
// used.
func Query(l Layer, a Area, timeout int) (string, error) {
	selectors, ok := layerSelectors[l]
	if !ok {
		return "", fmt.Errorf("overpass: unknown layer %q", l)
	}
	if a.Name == "" {
		return "", fmt.Errorf("overpass: area name is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	const set = "searchArea"
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", timeout)
	fmt.Fprintf(&b, "area[\"name\"=%q]", a.Name)
	if a.AdminLevel > 0 {
		fmt.Fprintf(&b, "[\"admin_level\"=\"%d\"]", a.AdminLevel)
	}
	fmt.Fprintf(&b, "->.%s;\n(\n", set)
	for _, s := range selectors {
		b.WriteString("  ")
		b.WriteString(strings.Replace(s, "{{area}}", set, 1))
		b.WriteString("\n")
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String(), nil
}
