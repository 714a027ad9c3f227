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

// fillThreshold is the minimum squared cell value for a cell to be drawn.
const fillThreshold = 0.05

// Squares draws a centered square in each cell whose size follows Perlin
// noise weighted toward the center of the grid.
type Squares struct {
	Width, Height, CellSize int

	Color        string
	OutlineColor string

	// NoiseScale is the number of noise periods across the grid.
	NoiseScale float64
	Octaves    int

	// MinSize and MaxSize are the square sizes as fractions of the cell
	// size.
	MinSize, MaxSize float64

	// Padding is subtracted from each side of a square, in pixels.
	Padding float64

	Outline    bool
	Classified bool
	Classes    int

	Seed int64
}

// DefaultSquares returns the default squares settings.
func DefaultSquares() *Squares {
	return &Squares{
		Width: 1280, Height: 720, CellSize: 30,
		Color:        "#0702FF",
		OutlineColor: "#D3D3D3",
		NoiseScale:   5,
		Octaves:      4,
		MinSize:      0.1,
		MaxSize:      1,
		Padding:      2,
		Outline:      true,
		Classified:   true,
		Classes:      5,
		Seed:         1,
	}
}

// FileName returns the default output file name.
func (s *Squares) FileName() string {
	outline := "no_outline"
	if s.Outline {
		outline = "with_outline"
	}
	return fmt.Sprintf("grid_map_%s_%s.svg", scaleName(s.Classified), outline)
}

// Write draws the image to w.
func (s *Squares) Write(w io.Writer) error {
	l, err := newLattice(s.Width, s.Height, s.CellSize)
	if err != nil {
		return err
	}
	f := newNoiseField(l, s.NoiseScale, s.Octaves, s.Seed)
	fill := fmt.Sprintf(`fill="%s"`, s.Color)
	return render(w, func(canvas *svg.SVG) {
		canvas.Start(l.width(), l.height())
		for row := 0; row < l.rows; row++ {
			for col := 0; col < l.cols; col++ {
				v := f.value(row, col)
				if v*v <= fillThreshold {
					continue
				}
				size := l.cell*scaled(v, s.MinSize, s.MaxSize, s.Classified, s.Classes) - 2*s.Padding
				if size <= 0 {
					continue
				}
				x := float64(col)*l.cell + (l.cell-size)/2
				y := float64(row)*l.cell + (l.cell-size)/2
				canvas.Rect(x, y, size, size, fill)
			}
		}
		if s.Outline {
			l.gridLines(canvas, s.OutlineColor)
		}
		canvas.End()
	})
}
