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

package cellmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmgeojson"
)

// relationFeatures assembles the multipolygon relations in o into water
// features with holes.
func relationFeatures(o *osm.OSM) ([]*WaterFeature, error) {
	fc, err := osmgeojson.Convert(o,
		osmgeojson.NoMeta(true),
		osmgeojson.NoRelationMembership(true),
	)
	if err != nil {
		return nil, fmt.Errorf("cellmap: assembling relations: %v", err)
	}
	tags := make(map[int64]map[string]string, len(o.Relations))
	for _, r := range o.Relations {
		tags[int64(r.ID)] = r.Tags.Map()
	}
	var features []*WaterFeature
	for _, f := range fc.Features {
		id, ok := relationID(f.ID)
		if !ok {
			continue
		}
		for _, p := range orbPolygons(f.Geometry) {
			features = append(features, &WaterFeature{Polygon: p, Tags: tags[id]})
		}
	}
	return features, nil
}

// relationID parses feature identifiers of the form "relation/<id>".
func relationID(fid interface{}) (int64, bool) {
	s, ok := fid.(string)
	if !ok || !strings.HasPrefix(s, "relation/") {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "relation/"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// orbPolygons converts polygonal orb geometries to geom polygons, descending
// into collections. Other geometry types are dropped.
func orbPolygons(g orb.Geometry) []geom.Polygon {
	switch t := g.(type) {
	case orb.Polygon:
		return []geom.Polygon{orbPolygon(t)}
	case orb.MultiPolygon:
		o := make([]geom.Polygon, len(t))
		for i, p := range t {
			o[i] = orbPolygon(p)
		}
		return o
	case orb.Collection:
		var o []geom.Polygon
		for _, gg := range t {
			o = append(o, orbPolygons(gg)...)
		}
		return o
	}
	return nil
}

func orbPolygon(p orb.Polygon) geom.Polygon {
	o := make(geom.Polygon, len(p))
	for i, r := range p {
		path := make(geom.Path, len(r))
		for j, pt := range r {
			path[j] = geom.Point{X: pt.Lon(), Y: pt.Lat()}
		}
		o[i] = path
	}
	return o
}
