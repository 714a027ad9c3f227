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
	"strings"
	"testing"
)

func TestLoadBoundaryFormats(t *testing.T) {
	for _, test := range []struct {
		name  string
		input string
		parts int
	}{
		{"collection", testBoundary, 1},
		{"feature", `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}`, 1},
		{"geometry", `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[2,0],[3,0],[3,1],[2,0]]]]}`, 2},
		{"mixed", `{"type":"FeatureCollection","features":[
			{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]}},
			{"type":"Feature","geometry":null},
			{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`, 1},
		{"geometry collection", `{"type":"GeometryCollection","geometries":[
			{"type":"Point","coordinates":[0,0]},
			{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},
			{"type":"MultiPolygon","coordinates":[[[[2,0],[3,0],[3,1],[2,0]]]]}]}`, 2},
		{"feature with collection", `{"type":"Feature","geometry":{"type":"GeometryCollection","geometries":[
			{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}]}}`, 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			m := &CellMap{Log: testLogger()}
			if err := LoadBoundary(strings.NewReader(test.input))(m); err != nil {
				t.Fatal(err)
			}
			if have := len(m.Boundary.Polygons()); have != test.parts {
				t.Errorf("have %d parts, want %d", have, test.parts)
			}
		})
	}
}

func TestLoadBoundaryNoPolygons(t *testing.T) {
	m := &CellMap{Log: testLogger()}
	err := LoadBoundary(strings.NewReader(`{"type":"Point","coordinates":[0,0]}`))(m)
	if err == nil {
		t.Error("a boundary without polygons should fail")
	}
}

func TestLoadBoundaryInvalid(t *testing.T) {
	for _, input := range []string{
		`not json`,
		`{"type":"Circle","coordinates":[0,0]}`,
	} {
		m := &CellMap{Log: testLogger()}
		if err := LoadBoundary(strings.NewReader(input))(m); err == nil {
			t.Errorf("%s: should fail", input)
		}
	}
}

func TestIntersectsBoundary(t *testing.T) {
	m := &CellMap{Log: testLogger()}
	if err := LoadBoundary(strings.NewReader(testBoundary))(m); err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		x, y float64
		want bool
	}{
		{0, -2.5, true},
		{4, -2, true},
		{5, 1, false},
		{-2, 0, false},
		// Partial overlap near the top vertex.
		{-0.5, 2, true},
	} {
		if have := m.intersectsBoundary(square(test.x, test.y, 1, 1)); have != test.want {
			t.Errorf("cell at %g,%g: have %v, want %v", test.x, test.y, have, test.want)
		}
	}
}
