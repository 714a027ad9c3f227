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

package art

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"
)

type element struct {
	name  string
	attrs map[string]string
}

func (e element) float(t *testing.T, name string) float64 {
	v, err := strconv.ParseFloat(e.attrs[name], 64)
	if err != nil {
		t.Fatalf("%s attribute %s: %v", e.name, name, err)
	}
	return v
}

// parseSVG returns the elements of an SVG document in order.
func parseSVG(t *testing.T, b []byte) []element {
	d := xml.NewDecoder(bytes.NewReader(b))
	var o []element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			e := element{name: se.Name.Local, attrs: make(map[string]string)}
			for _, a := range se.Attr {
				e.attrs[a.Name.Local] = a.Value
			}
			o = append(o, e)
		}
	}
	if len(o) == 0 || o[0].name != "svg" {
		t.Fatal("document does not start with an svg element")
	}
	return o
}

func count(elems []element, name string) int {
	var n int
	for _, e := range elems {
		if e.name == name {
			n++
		}
	}
	return n
}

type writer interface {
	Write(io.Writer) error
}

func write(t *testing.T, w writer) []byte {
	var b bytes.Buffer
	if err := w.Write(&b); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestLattice(t *testing.T) {
	l, err := newLattice(1280, 720, 30)
	if err != nil {
		t.Fatal(err)
	}
	if l.cols != 42 || l.rows != 24 || l.width() != 1260 || l.height() != 720 {
		t.Errorf("have %+v", l)
	}
	if c := l.centrality(12, 21); c != 1 {
		t.Errorf("center: have %g, want 1", c)
	}
	if c := l.centrality(0, 0); c != 0 {
		t.Errorf("corner: have %g, want 0", c)
	}
	if _, err := newLattice(10, 10, 20); err == nil {
		t.Error("a canvas smaller than a cell should fail")
	}
	if _, err := newLattice(10, 10, 0); err == nil {
		t.Error("a zero cell size should fail")
	}
}

func TestScaled(t *testing.T) {
	for _, test := range []struct {
		v          float64
		classified bool
		want       float64
	}{
		{0.5, false, 0.55},
		{0, true, 0.1},
		{0.19, true, 0.1},
		{0.2, true, 0.325},
		{0.99, true, 1},
		{1, true, 1},
	} {
		if have := scaled(test.v, 0.1, 1, test.classified, 5); !approx(have, test.want, 1e-12) {
			t.Errorf("scaled(%g, %v): have %g, want %g", test.v, test.classified, have, test.want)
		}
	}
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestGradient(t *testing.T) {
	g := DefaultGradient()
	b := write(t, g)
	elems := parseSVG(t, b)
	if w := elems[0].float(t, "width"); w != 1260 {
		t.Errorf("have width %g, want 1260", w)
	}
	if n := count(elems, "line"); n != 25+43 {
		t.Errorf("have %d lines, want %d", n, 25+43)
	}
	rects := count(elems, "rect")
	if rects == 0 || rects >= 42*24 {
		t.Errorf("have %d filled cells", rects)
	}
	for _, e := range elems {
		if e.name != "rect" {
			continue
		}
		fill := e.attrs["fill"]
		if !strings.HasPrefix(fill, "#0702FF") || len(fill) != 9 {
			t.Fatalf("have fill %q", fill)
		}
		alpha, err := strconv.ParseUint(fill[7:], 16, 8)
		if err != nil {
			t.Fatal(err)
		}
		if alpha < 40 || alpha > 140 {
			t.Errorf("have alpha %d", alpha)
		}
	}
	if !bytes.Equal(b, write(t, g)) {
		t.Error("output should be reproducible")
	}
	g.Seed = 2
	if bytes.Equal(b, write(t, g)) {
		t.Error("a different seed should give a different image")
	}
}

func TestSquares(t *testing.T) {
	s := DefaultSquares()
	elems := parseSVG(t, write(t, s))
	if n := count(elems, "rect"); n == 0 {
		t.Error("no squares drawn")
	}
	for _, e := range elems {
		if e.name != "rect" {
			continue
		}
		w, h := e.float(t, "width"), e.float(t, "height")
		if w != h || w <= 0 || w > 30-4 {
			t.Errorf("have square %gx%g", w, h)
		}
	}
	if s.FileName() != "grid_map_classified_with_outline.svg" {
		t.Errorf("have file name %s", s.FileName())
	}

	s.Outline = false
	s.Classified = false
	elems = parseSVG(t, write(t, s))
	if n := count(elems, "line"); n != 0 {
		t.Errorf("have %d lines, want 0", n)
	}
	if s.FileName() != "grid_map_continuous_no_outline.svg" {
		t.Errorf("have file name %s", s.FileName())
	}
}

func TestStrokes(t *testing.T) {
	s := DefaultStrokes()
	if ms := s.maxStroke(); ms != 14 {
		t.Errorf("have max stroke %g, want 14", ms)
	}
	elems := parseSVG(t, write(t, s))
	if n := count(elems, "rect"); n == 0 {
		t.Error("no squares drawn")
	}
	for _, e := range elems {
		if e.name != "rect" {
			continue
		}
		if e.attrs["fill"] != "none" {
			t.Errorf("have fill %q", e.attrs["fill"])
		}
		sw := e.float(t, "stroke-width")
		// Stroke plus square fill the padded cell. Coordinates are
		// rounded in the output.
		if size := e.float(t, "width"); !approx(size+sw, 28, 0.01) {
			t.Errorf("have size %g and stroke %g", size, sw)
		}
	}
	if s.FileName() != "grid_map_classified_inward_stroke.svg" {
		t.Errorf("have file name %s", s.FileName())
	}
}

func TestHistogram(t *testing.T) {
	h := DefaultHistogram()
	heights := h.barHeights()
	if len(heights) != 400 {
		t.Fatalf("have %d bars", len(heights))
	}
	for i, v := range heights {
		x := float64(i) / 399
		if x < h.ExplosionPoint && (v < 0 || v > 0.5) {
			t.Errorf("bar %d: have height %g before the explosion point", i, v)
		}
		if x >= h.ExplosionPoint && (v < 0.5 || v > 0.8) {
			t.Errorf("bar %d: have height %g after the explosion point", i, v)
		}
	}
	elems := parseSVG(t, write(t, h))
	if n := count(elems, "rect"); n != 400 {
		t.Errorf("have %d bars, want 400", n)
	}
	for _, e := range elems {
		if e.name != "rect" {
			continue
		}
		// Bars are bottom-aligned.
		if bottom := e.float(t, "y") + e.float(t, "height"); !approx(bottom, 200, 0.02) {
			t.Errorf("bar bottom at %g, want 200", bottom)
		}
	}
	h.Bars = 0
	if err := h.Write(io.Discard); err == nil {
		t.Error("zero bars should fail")
	}
}
