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
	"math/rand"

	svg "github.com/ajstarks/svgo/float"
)

// Gradient draws a grid whose cells are randomly filled, more often and
// more opaquely toward the center.
type Gradient struct {
	Width, Height, CellSize int

	// BaseColor is the fill color as #RRGGBB; an alpha value is appended.
	BaseColor    string
	OutlineColor string

	// Randomness is the maximum random perturbation of the fill
	// probability and opacity, between 0 and 1.
	Randomness float64

	Seed int64
}

// DefaultGradient returns the default gradient settings.
func DefaultGradient() *Gradient {
	return &Gradient{
		Width: 1280, Height: 720, CellSize: 30,
		BaseColor:    "#0702FF",
		OutlineColor: "#D3D3D3",
		Randomness:   0.2,
		Seed:         1,
	}
}

// FileName returns the default output file name.
func (g *Gradient) FileName() string { return "grid_map_gradient.svg" }

// Write draws the image to w.
func (g *Gradient) Write(w io.Writer) error {
	l, err := newLattice(g.Width, g.Height, g.CellSize)
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(g.Seed))
	uniform := func() float64 { return (rnd.Float64()*2 - 1) * g.Randomness }
	return render(w, func(canvas *svg.SVG) {
		canvas.Start(l.width(), l.height())
		for row := 0; row < l.rows; row++ {
			for col := 0; col < l.cols; col++ {
				adj := clamp(l.centrality(row, col)+uniform(), 0, 1)
				fillProb := adj * adj
				alpha := int(40 + 140*adj + uniform()*128)
				if alpha < 40 {
					alpha = 40
				} else if alpha > 140 {
					alpha = 140
				}
				if rnd.Float64() < fillProb {
					canvas.Rect(float64(col)*l.cell, float64(row)*l.cell, l.cell, l.cell,
						fmt.Sprintf(`fill="%s%02x"`, g.BaseColor, alpha))
				}
			}
		}
		l.gridLines(canvas, g.OutlineColor)
		canvas.End()
	})
}
