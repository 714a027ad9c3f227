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
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestCreateGrid(t *testing.T) {
	m := newTestMap(t, testConfig())
	if len(m.Cells) != 20 {
		t.Fatalf("have %d cells, want 20", len(m.Cells))
	}
	for _, c := range m.Cells {
		if float64(c.XIdx) >= 1.1*float64(5-c.YIdx) {
			t.Errorf("cell %d,%d is outside the boundary", c.XIdx, c.YIdx)
		}
		if c.Type != Land {
			t.Errorf("cell %s: have type %s, want land", c.ID, c.Type)
		}
		if !scalar.EqualWithinAbs(c.Area(), 1, 1e-12) {
			t.Errorf("cell %s: have area %g, want 1", c.ID, c.Area())
		}
	}
	// Column-major order.
	for k := 1; k < len(m.Cells); k++ {
		a, b := m.Cells[k-1], m.Cells[k]
		if a.XIdx > b.XIdx || (a.XIdx == b.XIdx && a.YIdx >= b.YIdx) {
			t.Fatalf("cells %d and %d are out of order", k-1, k)
		}
	}
	if m.Cells[0].ID != "x0.000000_y-2.500000" {
		t.Errorf("have id %s, want x0.000000_y-2.500000", m.Cells[0].ID)
	}
	c := cellAt(m, 2, 1)
	if c == nil {
		t.Fatal("missing cell 2,1")
	}
	if c.ID != "x2.000000_y-1.500000" {
		t.Errorf("have id %s, want x2.000000_y-1.500000", c.ID)
	}
}

func TestCreateGridDeterministic(t *testing.T) {
	cfg := testConfig()
	a := newTestMap(t, cfg)
	cfg.NumProcessors = 1
	b := newTestMap(t, cfg)
	if len(a.Cells) != len(b.Cells) {
		t.Fatalf("have %d and %d cells", len(a.Cells), len(b.Cells))
	}
	for i := range a.Cells {
		if a.Cells[i].ID != b.Cells[i].ID {
			t.Errorf("cell %d: %s != %s", i, a.Cells[i].ID, b.Cells[i].ID)
		}
	}
}

func TestCellSpacing(t *testing.T) {
	m := newTestMap(t, testConfig())
	cfg := &GridConfig{CellSize: 3, ReferenceLatitude: 52.3}
	dx, dy := m.cellSpacing(cfg)
	if want := 3 / 111000.; dy != want {
		t.Errorf("dy: have %g, want %g", dy, want)
	}
	if want := 3 / (111000 * math.Cos(52.3*math.Pi/180)); !scalar.EqualWithinRel(dx, want, 1e-12) {
		t.Errorf("dx: have %g, want %g", dx, want)
	}
}

func TestSteps(t *testing.T) {
	for _, test := range []struct {
		start, stop, step float64
		want              int
	}{
		{0, 5.5, 1, 6},
		{0, 5, 1, 5},
		{-2.5, 2.5, 1, 5},
		{0, 0, 1, 0},
		{1, 0, 1, 0},
	} {
		if have := steps(test.start, test.stop, test.step); have != test.want {
			t.Errorf("steps(%g, %g, %g): have %d, want %d", test.start, test.stop, test.step, have, test.want)
		}
	}
}

func TestCreateGridInvalidSize(t *testing.T) {
	m := &CellMap{
		Log: testLogger(),
		InitFuncs: []DomainManipulator{
			LoadBoundary(strings.NewReader(testBoundary)),
			CreateGrid(&GridConfig{}),
		},
	}
	if err := m.Init(); err == nil {
		t.Error("a zero cell size should fail")
	}
}

func TestDefaultGridConfig(t *testing.T) {
	cfg := DefaultGridConfig()
	if cfg.CellSize != 3 || cfg.Threshold != 0.3 || cfg.SimplifyTolerance != 0.0001 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.nprocs() < 1 {
		t.Errorf("have %d processors", cfg.nprocs())
	}
}

// projectedBoundary is a 0.1 by 0.05 degree box in central Amsterdam.
const projectedBoundary = `{"type":"Polygon","coordinates":[[[4.85,52.35],[4.95,52.35],[4.95,52.40],[4.85,52.40],[4.85,52.35]]]}`

const utm31N = "+proj=utm +zone=31 +ellps=WGS84 +datum=WGS84 +units=m +no_defs"

// parseCellID returns the corner coordinates encoded in a cell ID.
func parseCellID(t *testing.T, id string) (x, y float64) {
	parts := strings.SplitN(strings.TrimPrefix(id, "x"), "_y", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed id %s", id)
	}
	x, errX := strconv.ParseFloat(parts[0], 64)
	y, errY := strconv.ParseFloat(parts[1], 64)
	if errX != nil || errY != nil {
		t.Fatalf("malformed id %s", id)
	}
	return x, y
}

func TestCreateGridProjected(t *testing.T) {
	cfg := testConfig()
	cfg.CellSize = 1000
	cfg.Threshold = 0.5
	m := &CellMap{
		Log: testLogger(),
		InitFuncs: []DomainManipulator{
			UseProjection(utm31N),
			LoadBoundary(strings.NewReader(projectedBoundary)),
			CreateGrid(cfg),
		},
	}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	// About 6.8 km by 5.6 km.
	if n := len(m.Cells); n < 35 || n > 64 {
		t.Fatalf("have %d cells, want between 35 and 64", n)
	}
	for _, c := range m.Cells {
		// Cells are squares in meters.
		if !scalar.EqualWithinRel(c.Area(), 1e6, 1e-9) {
			t.Errorf("cell %s: have area %g, want 1e6", c.ID, c.Area())
		}
		// IDs are in longitude/latitude, within a cell of the boundary.
		x, y := parseCellID(t, c.ID)
		if x < 4.83 || x > 4.96 || y < 52.34 || y > 52.41 {
			t.Errorf("cell id %s is not near the boundary", c.ID)
		}
	}

	// Water over the western half of the boundary, given in lon/lat.
	w, err := m.toGrid(square(4.85, 52.35, 0.05, 0.05))
	if err != nil {
		t.Fatal(err)
	}
	m.Water = NewWaterIndex()
	m.Water.Add(&WaterFeature{Polygon: w.(geom.Polygon)})
	if err := Classify(cfg)(m); err != nil {
		t.Fatal(err)
	}
	land, water := m.Counts()
	if land == 0 || water == 0 {
		t.Errorf("have %d land and %d water cells, want both", land, water)
	}
	for _, c := range m.Cells {
		x, _ := parseCellID(t, c.ID)
		if c.Type == Water && x > 4.90 {
			t.Errorf("cell %s east of the water is water", c.ID)
		}
	}

	var b bytes.Buffer
	if err := m.Save(&b, false); err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range fc.Features {
		bd := f.Geometry.Bound()
		if bd.Min.Lon() < 4.83 || bd.Max.Lon() > 4.98 || bd.Min.Lat() < 52.34 || bd.Max.Lat() > 52.42 {
			t.Fatalf("feature %v is not in longitude/latitude: %v", f.Properties["id"], bd)
		}
	}
}
