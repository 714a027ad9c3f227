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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQuery(t *testing.T) {
	q, err := Query(Water, Area{Name: "Amsterdam", AdminLevel: 8}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := `[out:json][timeout:180];
area["name"="Amsterdam"]["admin_level"="8"]->.searchArea;
(
  way["natural"="water"](area.searchArea);
  relation["natural"="water"](area.searchArea);
  way["waterway"](area.searchArea);
);
out body;
>;
out skel qt;
`
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("(-want +have):\n%s", diff)
	}
}

func TestQueryLayers(t *testing.T) {
	for _, test := range []struct {
		l    Layer
		want []string
	}{
		{Parks, []string{`way["leisure"="park"]`, `relation["leisure"="park"]`, `way["landuse"="recreation_ground"]`, `way["landuse"="forest"]`}},
		{Buildings, []string{`way["building"]`}},
	} {
		q, err := Query(test.l, Area{Name: "Utrecht"}, 60)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(q, "admin_level") {
			t.Errorf("%s: admin level should be omitted", test.l)
		}
		if !strings.HasPrefix(q, "[out:json][timeout:60];") {
			t.Errorf("%s: have query %s", test.l, q)
		}
		for _, w := range test.want {
			if !strings.Contains(q, w) {
				t.Errorf("%s: query does not contain %s", test.l, w)
			}
		}
	}
}

func TestQueryErrors(t *testing.T) {
	if _, err := Query("roads", Area{Name: "Amsterdam"}, 0); err == nil {
		t.Error("unknown layer should fail")
	}
	if _, err := Query(Water, Area{}, 0); err == nil {
		t.Error("missing area name should fail")
	}
}

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer(" Water ")
	if err != nil {
		t.Fatal(err)
	}
	if l != Water {
		t.Errorf("have %s, want water", l)
	}
	if _, err := ParseLayer("parks"); err == nil {
		t.Error("unknown layer should fail")
	}
	if diff := cmp.Diff([]Layer{Buildings, Parks, Water}, Layers()); diff != "" {
		t.Errorf("(-want +have):\n%s", diff)
	}
}
