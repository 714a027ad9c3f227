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
	"io"
	"io/ioutil"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// boundaryPart is one polygon of a (possibly multi-part) boundary.
type boundaryPart struct {
	geom.Polygon
}

// LoadBoundary returns a function that reads the city boundary from r,
// which must contain a GeoJSON FeatureCollection, Feature, or bare geometry
// in longitude/latitude. All polygonal geometries are combined into the
// boundary; other geometry types are ignored.
func LoadBoundary(r io.Reader) DomainManipulator {
	return func(m *CellMap) error {
		b, err := ioutil.ReadAll(r)
		if err != nil {
			return fmt.Errorf("cellmap: reading boundary: %v", err)
		}
		polys, err := decodePolygons(b)
		if err != nil {
			return fmt.Errorf("cellmap: decoding boundary: %v", err)
		}
		if len(polys) == 0 {
			return fmt.Errorf("cellmap: boundary does not contain any polygons")
		}
		var boundary geom.MultiPolygon
		m.boundaryIndex = rtree.NewTree(25, 50)
		for _, p := range polys {
			g, err := m.toGrid(p)
			if err != nil {
				return fmt.Errorf("cellmap: projecting boundary: %v", err)
			}
			pp := g.(geom.Polygon)
			boundary = append(boundary, pp)
			m.boundaryIndex.Insert(&boundaryPart{Polygon: pp})
		}
		m.Boundary = boundary
		m.log().WithFields(logrus.Fields{
			"parts":  len(boundary),
			"bounds": boundary.Bounds(),
		}).Info("loaded boundary")
		return nil
	}
}

// decodePolygons extracts all polygons from a GeoJSON FeatureCollection,
// Feature, or geometry.
func decodePolygons(b []byte) ([]geom.Polygon, error) {
	var gs []orb.Geometry
	if fc, err := geojson.UnmarshalFeatureCollection(b); err == nil {
		for _, f := range fc.Features {
			gs = append(gs, f.Geometry)
		}
	} else if f, err := geojson.UnmarshalFeature(b); err == nil {
		gs = append(gs, f.Geometry)
	} else {
		g, err := geojson.UnmarshalGeometry(b)
		if err != nil {
			return nil, err
		}
		gs = append(gs, g.Geometry())
	}
	var o []geom.Polygon
	for _, g := range gs {
		o = append(o, orbPolygons(g)...)
	}
	return o, nil
}

// polygons returns the polygons within g, descending into collections.
// Non-polygonal geometry is dropped.
func polygons(g geom.Geom) []geom.Polygon {
	switch t := g.(type) {
	case geom.Polygon:
		return []geom.Polygon{t}
	case geom.MultiPolygon:
		return []geom.Polygon(t)
	case geom.GeometryCollection:
		var o []geom.Polygon
		for _, gg := range t {
			o = append(o, polygons(gg)...)
		}
		return o
	}
	return nil
}

// intersectsBoundary reports whether cell touches the interior of the
// boundary: either one of its vertices lies within a boundary polygon or
// the two overlap with non-zero area.
func (m *CellMap) intersectsBoundary(cell geom.Polygon) bool {
	for _, pI := range m.boundaryIndex.SearchIntersect(cell.Bounds()) {
		p := pI.(*boundaryPart)
		for _, pt := range cell[0] {
			if pt.Within(p.Polygon) != geom.Outside {
				return true
			}
		}
		if a, err := intersectionArea(cell, p.Polygon); err == nil && a > 0 {
			return true
		}
	}
	return false
}
