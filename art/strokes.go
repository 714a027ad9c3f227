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
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo/float"
)

// Strokes draws an unfilled square in each cell whose stroke grows inward
// with Perlin noise weighted toward the center of the grid.
type Strokes struct {
	Width, Height, CellSize int

	Color string

	// Padding is the gap between a square and its cell, in pixels.
	Padding float64

	NoiseScale float64
	Octaves    int

	// MinStroke and MaxStroke bound the stroke width in pixels. If
	// MaxStroke is zero, half the padded cell size is used.
	MinStroke, MaxStroke float64

	// Threshold is the minimum cell value for a square to be drawn.
	Threshold float64

	Classified bool
	Classes    int

	Seed int64
}

// DefaultStrokes returns the default strokes settings.
func DefaultStrokes() *Strokes {
	return &Strokes{
		Width: 1280, Height: 720, CellSize: 30,
		Color:      "#0702FF",
		Padding:    1,
		NoiseScale: 5,
		Octaves:    4,
		Threshold:  0.05,
		Classified: true,
		Classes:    5,
		Seed:       1,
	}
}

// FileName returns the default output file name.
func (s *Strokes) FileName() string {
	return fmt.Sprintf("grid_map_%s_inward_stroke.svg", scaleName(s.Classified))
}

func (s *Strokes) maxStroke() float64 {
	if s.MaxStroke > 0 {
		return s.MaxStroke
	}
	return (float64(s.CellSize) - 2*s.Padding) / 2
}

// Write draws the image to w.
func (s *Strokes) Write(w io.Writer) error {
	l, err := newLattice(s.Width, s.Height, s.CellSize)
	if err != nil {
		return err
	}
	f := newNoiseField(l, s.NoiseScale, s.Octaves, s.Seed)
	maxStroke := s.maxStroke()
	return render(w, func(canvas *svg.SVG) {
		canvas.Start(l.width(), l.height())
		for row := 0; row < l.rows; row++ {
			for col := 0; col < l.cols; col++ {
				v := f.value(row, col)
				if v <= s.Threshold {
					continue
				}
				sw := scaled(v, s.MinStroke, maxStroke, s.Classified, s.Classes)
				size := l.cell - 2*s.Padding - sw
				x := float64(col)*l.cell + s.Padding + sw/2
				y := float64(row)*l.cell + s.Padding + sw/2
				canvas.Rect(x, y, size, size,
					fmt.Sprintf(`fill="none" stroke="%s" stroke-width="%g"`, s.Color, sw))
			}
		}
		canvas.End()
	})
}
