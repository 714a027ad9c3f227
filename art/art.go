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

// Package art draws procedural SVG images of square-cell grids.
package art

import (
	"bytes"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo/float"
	"github.com/aquilax/go-perlin"
)

// lattice holds the dimensions of a grid of square cells that fits within
// a canvas.
type lattice struct {
	rows, cols int
	cell       float64
}

func newLattice(width, height, cellSize int) (lattice, error) {
	if cellSize <= 0 {
		return lattice{}, fmt.Errorf("art: invalid cell size %d", cellSize)
	}
	l := lattice{rows: height / cellSize, cols: width / cellSize, cell: float64(cellSize)}
	if l.rows == 0 || l.cols == 0 {
		return lattice{}, fmt.Errorf("art: a %dx%d canvas cannot hold cells of size %d", width, height, cellSize)
	}
	return l, nil
}

func (l lattice) width() float64  { return float64(l.cols) * l.cell }
func (l lattice) height() float64 { return float64(l.rows) * l.cell }

// centrality returns 1 at the center of the grid, falling off linearly to 0
// at the corners.
func (l lattice) centrality(row, col int) float64 {
	cr, cc := float64(l.rows)/2, float64(l.cols)/2
	maxDist := math.Hypot(cr, cc)
	return 1 - math.Hypot(float64(row)-cr, float64(col)-cc)/maxDist
}

// gridLines draws the horizontal and vertical lines between cells.
func (l lattice) gridLines(canvas *svg.SVG, color string) {
	style := fmt.Sprintf(`stroke="%s" stroke-width="1"`, color)
	for i := 0; i <= l.rows; i++ {
		y := float64(i) * l.cell
		canvas.Line(0, y, l.width(), y, style)
	}
	for i := 0; i <= l.cols; i++ {
		x := float64(i) * l.cell
		canvas.Line(x, 0, x, l.height(), style)
	}
}

// noiseField combines centrality with Perlin noise.
type noiseField struct {
	lattice
	noise *perlin.Perlin
	scale float64
}

func newNoiseField(l lattice, scale float64, octaves int, seed int64) *noiseField {
	if octaves < 1 {
		octaves = 1
	}
	return &noiseField{
		lattice: l,
		noise:   perlin.NewPerlin(2, 2, int32(octaves), seed),
		scale:   scale,
	}
}

// value returns the product of the centrality of the cell and the noise at
// the cell, rescaled to [0, 1].
func (f *noiseField) value(row, col int) float64 {
	x := float64(row) / float64(f.rows) * f.scale
	y := float64(col) / float64(f.cols) * f.scale
	n := clamp(f.noise.Noise2D(x, y), -1, 1)
	return f.centrality(row, col) * (n + 1) / 2
}

// scaled maps v in [0, 1] to [lo, hi], either continuously or in
// classes equal steps.
func scaled(v, lo, hi float64, classified bool, classes int) float64 {
	if !classified || classes < 2 {
		return lo + (hi-lo)*v
	}
	c := int(v * float64(classes))
	if c > classes-1 {
		c = classes - 1
	}
	if c < 0 {
		c = 0
	}
	return lo + (hi-lo)*float64(c)/float64(classes-1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// render draws with f and copies the result to w.
func render(w io.Writer, f func(canvas *svg.SVG)) error {
	var b bytes.Buffer
	f(svg.New(&b))
	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("art: writing SVG: %v", err)
	}
	return nil
}

func scaleName(classified bool) string {
	if classified {
		return "classified"
	}
	return "continuous"
}
