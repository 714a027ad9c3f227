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
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/paulmach/osm"
	"github.com/sirupsen/logrus"
)

// WaterFeature is a single water polygon.
type WaterFeature struct {
	geom.Polygon

	// Tags are the OpenStreetMap tags of the feature, if any.
	Tags map[string]string
}

// WaterIndex is a spatial index of water features.
type WaterIndex struct {
	tree     *rtree.Rtree
	features []*WaterFeature
}

// NewWaterIndex returns an empty water index.
func NewWaterIndex() *WaterIndex {
	return &WaterIndex{tree: rtree.NewTree(25, 50)}
}

// Add inserts f into the index.
func (w *WaterIndex) Add(f *WaterFeature) {
	w.features = append(w.features, f)
	w.tree.Insert(f)
}

// Len returns the number of features in the index.
func (w *WaterIndex) Len() int { return len(w.features) }

// Features returns the features in the order they were added.
func (w *WaterIndex) Features() []*WaterFeature { return w.features }

// Candidates returns the features whose bounding boxes overlap b.
func (w *WaterIndex) Candidates(b *geom.Bounds) []*WaterFeature {
	found := w.tree.SearchIntersect(b)
	o := make([]*WaterFeature, len(found))
	for i, f := range found {
		o[i] = f.(*WaterFeature)
	}
	return o
}

// WaterOptions control how water features are loaded.
type WaterOptions struct {
	// SimplifyTolerance is the tolerance used to simplify water polygons,
	// in the units of the grid spatial reference. Zero disables
	// simplification.
	SimplifyTolerance float64

	// AssembleRelations specifies whether multipolygon relations should be
	// assembled into polygons with holes. When true, untagged ways (which
	// are relation members) are not used on their own.
	AssembleRelations bool
}

// LoadWater returns a function that reads water features from r, which must
// contain the JSON output of an Overpass API query (an "elements" array of
// nodes, ways, and relations). Every way with at least three resolvable
// nodes becomes a polygon, closing the ring if needed, so open waterway lines
// are read as (usually thin) areas. LoadWaterPBF drops them instead. Ways
// that reference a node that is not present are skipped.
func LoadWater(r io.Reader, opts WaterOptions) DomainManipulator {
	return func(m *CellMap) error {
		m.log().Info("loading water features")
		o := new(osm.OSM)
		if err := json.NewDecoder(r).Decode(o); err != nil {
			return fmt.Errorf("cellmap: decoding water features: %v", err)
		}
		features, err := waterFeatures(o, opts.AssembleRelations)
		if err != nil {
			return err
		}
		return m.addWater(features, opts.SimplifyTolerance)
	}
}

// waterFeatures converts OSM ways (and optionally relations) into polygons.
func waterFeatures(o *osm.OSM, assembleRelations bool) ([]*WaterFeature, error) {
	nodes := make(map[osm.NodeID]*osm.Node, len(o.Nodes))
	for _, n := range o.Nodes {
		nodes[n.ID] = n
	}
	var features []*WaterFeature
	for _, w := range o.Ways {
		if assembleRelations && len(w.Tags) == 0 {
			continue
		}
		ring, ok := wayRing(w, nodes)
		if !ok {
			continue
		}
		features = append(features, &WaterFeature{
			Polygon: geom.Polygon{ring},
			Tags:    w.Tags.Map(),
		})
	}
	if assembleRelations && len(o.Relations) > 0 {
		rf, err := relationFeatures(o)
		if err != nil {
			return nil, err
		}
		features = append(features, rf...)
	}
	return features, nil
}

// wayRing returns the closed ring formed by the nodes of w. ok is false if
// a node is missing or there are fewer than three of them.
func wayRing(w *osm.Way, nodes map[osm.NodeID]*osm.Node) (ring geom.Path, ok bool) {
	ring = make(geom.Path, 0, len(w.Nodes)+1)
	for _, wn := range w.Nodes {
		n, found := nodes[wn.ID]
		if !found {
			return nil, false
		}
		ring = append(ring, geom.Point{X: n.Lon, Y: n.Lat})
	}
	if len(ring) < 3 {
		return nil, false
	}
	if !ring[0].Equals(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring, true
}

// addWater cleans, projects, and simplifies features and inserts them into
// the water index of m.
func (m *CellMap) addWater(features []*WaterFeature, tol float64) error {
	if m.Water == nil {
		m.Water = NewWaterIndex()
	}
	var dropped int
	for _, f := range features {
		g, err := m.toGrid(f.Polygon)
		if err != nil {
			return fmt.Errorf("cellmap: projecting water feature: %v", err)
		}
		p := g.(geom.Polygon)
		if tol > 0 {
			if s, ok := p.Simplify(tol).(geom.Polygon); ok {
				p = s
			}
		}
		p = cleanPolygon(p)
		if p == nil {
			dropped++
			continue
		}
		f.Polygon = p
		m.Water.Add(f)
	}
	m.log().WithFields(logrus.Fields{
		"features": m.Water.Len(),
		"dropped":  dropped,
	}).Info("processed water features")
	return nil
}

// cleanPolygon removes repeated consecutive vertices, closes open rings, and
// drops rings that are degenerate. It returns nil if the outer ring is
// degenerate.
func cleanPolygon(p geom.Polygon) geom.Polygon {
	var o geom.Polygon
	for i, ring := range p {
		r := cleanRing(ring)
		if r == nil {
			if i == 0 {
				return nil
			}
			continue
		}
		o = append(o, r)
	}
	return o
}

func cleanRing(ring geom.Path) geom.Path {
	r := make(geom.Path, 0, len(ring)+1)
	for _, pt := range ring {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
			continue
		}
		if len(r) > 0 && r[len(r)-1].Equals(pt) {
			continue
		}
		r = append(r, pt)
	}
	if len(r) > 0 && !r[0].Equals(r[len(r)-1]) {
		r = append(r, r[0])
	}
	if len(r) < 4 {
		return nil
	}
	if geom.Polygon([]geom.Path{r}).Area() == 0 {
		return nil
	}
	return r
}
