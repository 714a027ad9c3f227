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
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	goshp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// wgs84WKT is written to the .prj file of output shapefiles.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// OutputFileName returns the name of the GeoJSON file results are written
// to: <dir>/<prefix>_<dissolved|grid>_<size>m.geojson.
func OutputFileName(dir, prefix string, cellSize float64, dissolved bool) string {
	kind := "grid"
	if dissolved {
		kind = "dissolved"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%gm.geojson", prefix, kind, cellSize))
}

// record is one output feature.
type record struct {
	poly  geom.MultiPolygon
	props map[string]interface{}
}

// records returns the dissolved regions or the individual cells, with
// geometry in longitude/latitude.
func (m *CellMap) records(dissolved bool) ([]record, error) {
	var o []record
	if dissolved {
		if len(m.Regions) == 0 {
			return nil, fmt.Errorf("cellmap: no dissolved regions to write")
		}
		for _, r := range m.Regions {
			g, err := m.outputPolygonal(r.Polygonal)
			if err != nil {
				return nil, err
			}
			o = append(o, record{poly: g, props: map[string]interface{}{
				"type":  string(r.Type),
				"count": r.Count,
			}})
		}
		return o, nil
	}
	if len(m.Cells) == 0 {
		return nil, fmt.Errorf("cellmap: no cells to write")
	}
	for _, c := range m.Cells {
		g, err := m.outputPolygonal(c.Polygonal)
		if err != nil {
			return nil, err
		}
		o = append(o, record{poly: g, props: map[string]interface{}{
			"id":             c.ID,
			"x_idx":          c.XIdx,
			"y_idx":          c.YIdx,
			"type":           string(c.Type),
			"water_fraction": c.WaterFraction,
		}})
	}
	return o, nil
}

// outputPolygonal transforms p to longitude/latitude and splits it into
// separate polygons, one per outer ring.
func (m *CellMap) outputPolygonal(p geom.Polygonal) (geom.MultiPolygon, error) {
	var o geom.MultiPolygon
	for _, pp := range p.Polygons() {
		g, err := m.toOutput(pp)
		if err != nil {
			return nil, fmt.Errorf("cellmap: projecting output: %v", err)
		}
		o = append(o, splitPolygon(g.(geom.Polygon))...)
	}
	return o, nil
}

// Save writes the dissolved regions (if dissolved is true) or the grid
// cells to w as a GeoJSON FeatureCollection in longitude/latitude.
func (m *CellMap) Save(w io.Writer, dissolved bool) error {
	recs, err := m.records(dissolved)
	if err != nil {
		return err
	}
	fc := geojson.NewFeatureCollection()
	for _, r := range recs {
		var g orb.Geometry
		if len(r.poly) == 1 {
			g = toOrbPolygon(r.poly[0])
		} else {
			mp := make(orb.MultiPolygon, len(r.poly))
			for i, p := range r.poly {
				mp[i] = toOrbPolygon(p)
			}
			g = mp
		}
		f := geojson.NewFeature(g)
		for k, v := range r.props {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("cellmap: encoding GeoJSON: %v", err)
	}
	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("cellmap: writing GeoJSON: %v", err)
	}
	return nil
}

// SaveFile writes the results to the file at path, creating any missing
// directories.
func (m *CellMap) SaveFile(path string, dissolved bool) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("cellmap: creating output directory: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cellmap: creating output file: %v", err)
	}
	if err := m.Save(f, dissolved); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveShapefile writes the dissolved regions or the grid cells to an ESRI
// shapefile at path in longitude/latitude.
func (m *CellMap) SaveShapefile(path string, dissolved bool) error {
	recs, err := m.records(dissolved)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
	var fields []goshp.Field
	if dissolved {
		fields = []goshp.Field{
			goshp.StringField("type", 8),
			goshp.NumberField("count", 10),
		}
	} else {
		fields = []goshp.Field{
			goshp.StringField("id", 32),
			goshp.NumberField("x_idx", 10),
			goshp.NumberField("y_idx", 10),
			goshp.StringField("type", 8),
			goshp.FloatField("water_frac", 12, 6),
		}
	}
	e, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("cellmap: creating shapefile: %v", err)
	}
	for _, r := range recs {
		var data []interface{}
		if dissolved {
			data = []interface{}{r.props["type"], r.props["count"]}
		} else {
			data = []interface{}{r.props["id"], r.props["x_idx"], r.props["y_idx"],
				r.props["type"], r.props["water_fraction"]}
		}
		if err = e.EncodeFields(shpPolygon(r.poly), data...); err != nil {
			e.Close()
			return fmt.Errorf("cellmap: writing shapefile: %v", err)
		}
	}
	e.Close()
	if err := os.WriteFile(base+".prj", []byte(wgs84WKT), 0644); err != nil {
		return fmt.Errorf("cellmap: writing shapefile projection: %v", err)
	}
	return nil
}

// shpPolygon joins the rings of mp into a single polygon. A shapefile
// polygon record is a list of rings in which outer rings and holes are told
// apart by their winding order, which splitPolygon has already set.
func shpPolygon(mp geom.MultiPolygon) geom.Polygon {
	var o geom.Polygon
	for _, p := range mp {
		o = append(o, p...)
	}
	return o
}

func toOrbPolygon(p geom.Polygon) orb.Polygon {
	o := make(orb.Polygon, len(p))
	for i, path := range p {
		r := make(orb.Ring, len(path))
		for j, pt := range path {
			r[j] = orb.Point{pt.X, pt.Y}
		}
		o[i] = r
	}
	return o
}

// splitPolygon separates the rings of p into polygons with one outer ring
// each. Rings nested within an even number of other rings are outer rings;
// the rest are holes of the outer ring that directly contains them. Outer
// rings are oriented counter-clockwise and holes clockwise.
func splitPolygon(p geom.Polygon) []geom.Polygon {
	if len(p) == 0 {
		return nil
	}
	tree := rtree.NewTree(25, 50)
	rings := make([]*indexedRing, len(p))
	for i, r := range p {
		rings[i] = &indexedRing{Polygon: geom.Polygon{r}, i: i, area: ringArea(r)}
		rings[i].bounds = rings[i].Polygon.Bounds()
		tree.Insert(rings[i])
	}
	depth := make([]int, len(p))
	parent := make([]int, len(p))
	for i, ri := range rings {
		parent[i] = -1
		for _, c := range tree.SearchIntersect(ri.bounds) {
			rj := c.(*indexedRing)
			j := rj.i
			if i == j || !boundsContain(rj.bounds, ri.bounds) || !ringWithin(p[i], p[j]) {
				continue
			}
			depth[i]++
			// The innermost container has the smallest area.
			if parent[i] < 0 || rj.area < rings[parent[i]].area {
				parent[i] = j
			}
		}
	}
	var o []geom.Polygon
	outer := make(map[int]int) // ring index -> index in o
	for i, r := range p {
		if depth[i]%2 == 0 {
			outer[i] = len(o)
			o = append(o, geom.Polygon{orient(r, true)})
		}
	}
	for i, r := range p {
		if depth[i]%2 == 1 && parent[i] >= 0 {
			k, ok := outer[parent[i]]
			if !ok {
				continue
			}
			o[k] = append(o[k], orient(r, false))
		}
	}
	return o
}

// indexedRing is a ring of a polygon being split, stored in an rtree.
type indexedRing struct {
	geom.Polygon
	i      int
	area   float64
	bounds *geom.Bounds
}

// boundsContain reports whether a contains b.
func boundsContain(a, b *geom.Bounds) bool {
	return a.Min.X <= b.Min.X && a.Min.Y <= b.Min.Y && a.Max.X >= b.Max.X && a.Max.Y >= b.Max.Y
}

// ringWithin reports whether ring a lies inside ring b. The first vertex or
// edge midpoint of a that is not on the edge of b decides.
func ringWithin(a, b geom.Path) bool {
	poly := geom.Polygon{b}
	for k, pt := range a {
		switch pt.Within(poly) {
		case geom.Inside:
			return true
		case geom.Outside:
			return false
		}
		if k+1 < len(a) {
			mid := geom.Point{X: (pt.X + a[k+1].X) / 2, Y: (pt.Y + a[k+1].Y) / 2}
			switch mid.Within(poly) {
			case geom.Inside:
				return true
			case geom.Outside:
				return false
			}
		}
	}
	return false
}

// signedArea returns the shoelace area of r, positive when r is
// counter-clockwise.
func signedArea(r geom.Path) float64 {
	var a float64
	for i := range r {
		j := (i + 1) % len(r)
		a += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return a / 2
}

func ringArea(r geom.Path) float64 {
	a := signedArea(r)
	if a < 0 {
		return -a
	}
	return a
}

// orient returns r closed and in counter-clockwise order if ccw is true,
// clockwise otherwise.
func orient(r geom.Path, ccw bool) geom.Path {
	o := make(geom.Path, len(r), len(r)+1)
	copy(o, r)
	if len(o) > 0 && !o[0].Equals(o[len(o)-1]) {
		o = append(o, o[0])
	}
	if (signedArea(o) > 0) != ccw {
		for i, j := 0, len(o)-1; i < j; i, j = i+1, j-1 {
			o[i], o[j] = o[j], o[i]
		}
	}
	return o
}
