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

package hash

import (
	"math"
	"regexp"
	"testing"
)

func TestKey(t *testing.T) {
	a := Key("https://overpass-api.de/api/interpreter", "[out:json];")
	b := Key("https://overpass-api.de/api/interpreter", "[out:json];")
	if a != b {
		t.Errorf("keys differ: %s != %s", a, b)
	}
	if c := Key("https://overpass-api.de/api/interpreter", "[out:xml];"); c == a {
		t.Error("different values should give different keys")
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(a) {
		t.Errorf("key %q is not a 128-bit hex string", a)
	}
}

func TestKeyFallback(t *testing.T) {
	// gob cannot encode nil interface values.
	a := Key(nil, math.NaN())
	b := Key(nil, math.NaN())
	if a != b {
		t.Errorf("keys differ: %s != %s", a, b)
	}
}
