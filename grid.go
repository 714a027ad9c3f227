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
	"math"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// metersPerDegree is the approximate length of one degree of latitude.
const metersPerDegree = 111000.

// GridConfig holds grid creation and classification parameters.
type GridConfig struct {
	// CellSize is the edge length of a grid cell in meters.
	CellSize float64

	// Threshold is the fraction of a cell's area that must be covered by
	// water for the cell to be classified as water. The comparison is
	// strict.
	Threshold float64

	// SimplifyTolerance is the tolerance used to simplify water features,
	// in grid units.
	SimplifyTolerance float64

	// NumProcessors is the number of concurrent workers. Values less than
	// one are treated as one.
	NumProcessors int

	// GridProj is the proj4 definition of the spatial reference the grid is
	// built in. If empty, the grid is built in longitude/latitude degrees.
	GridProj string

	// ReferenceLatitude is the latitude used to convert meters to degrees of
	// longitude. If zero, the center latitude of the boundary is used.
	ReferenceLatitude float64
}

// DefaultGridConfig returns the default grid configuration.
func DefaultGridConfig() *GridConfig {
	return &GridConfig{
		CellSize:          3,
		Threshold:         0.3,
		SimplifyTolerance: 0.0001,
		NumProcessors:     runtime.GOMAXPROCS(-1) - 1,
	}
}

func (c *GridConfig) nprocs() int {
	if c.NumProcessors < 1 {
		return 1
	}
	return c.NumProcessors
}

// lattice is the regular array of grid cell positions covering the
// boundary's bounding box.
type lattice struct {
	x0, y0 float64
	dx, dy float64
	nx, ny int
}

// newLattice returns a lattice covering b with cells of dx by dy.
// Columns start at b.Min.X and continue while x < b.Max.X, and likewise
// for rows.
func newLattice(b *geom.Bounds, dx, dy float64) *lattice {
	return &lattice{
		x0: b.Min.X, y0: b.Min.Y,
		dx: dx, dy: dy,
		nx: steps(b.Min.X, b.Max.X, dx),
		ny: steps(b.Min.Y, b.Max.Y, dy),
	}
}

// steps returns the number of values in [start, stop) spaced by step.
func steps(start, stop, step float64) int {
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		return 0
	}
	return n
}

func (l *lattice) x(i int) float64 { return l.x0 + float64(i)*l.dx }
func (l *lattice) y(j int) float64 { return l.y0 + float64(j)*l.dy }

// cell returns the polygon of the cell at column i and row j.
func (l *lattice) cell(i, j int) geom.Polygon {
	x0, x1 := l.x(i), l.x(i+1)
	y0, y1 := l.y(j), l.y(j+1)
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

// cellSpacing returns the cell width and height in grid units.
func (m *CellMap) cellSpacing(cfg *GridConfig) (dx, dy float64) {
	if m.projected() {
		return cfg.CellSize, cfg.CellSize
	}
	lat := cfg.ReferenceLatitude
	if lat == 0 {
		b := m.Boundary.Bounds()
		lat = (b.Min.Y + b.Max.Y) / 2
	}
	dy = cfg.CellSize / metersPerDegree
	dx = cfg.CellSize / (metersPerDegree * math.Cos(lat*math.Pi/180))
	return dx, dy
}

// CreateGrid returns a function that lays a regular grid of square cells
// over the bounding box of the boundary and keeps the cells that intersect
// the boundary. Cells are ordered by column and then by row.
func CreateGrid(cfg *GridConfig) DomainManipulator {
	return func(m *CellMap) error {
		if m.Boundary == nil {
			return fmt.Errorf("cellmap: the boundary must be loaded before creating the grid")
		}
		if cfg.CellSize <= 0 {
			return fmt.Errorf("cellmap: invalid cell size %g", cfg.CellSize)
		}
		dx, dy := m.cellSpacing(cfg)
		l := newLattice(m.Boundary.Bounds(), dx, dy)
		m.lattice = l
		m.log().WithFields(logrus.Fields{
			"columns":    l.nx,
			"rows":       l.ny,
			"candidates": l.nx * l.ny,
		}).Info("creating grid")

		columns := make([][]*Cell, l.nx)
		errs := make([]error, l.nx)
		nprocs := cfg.nprocs()
		var wg sync.WaitGroup
		wg.Add(nprocs)
		for p := 0; p < nprocs; p++ {
			go func(p int) {
				defer wg.Done()
				for i := p; i < l.nx; i += nprocs {
					columns[i], errs[i] = m.gridColumn(i)
				}
			}(p)
		}
		wg.Wait()

		m.Cells = m.Cells[:0]
		for i, col := range columns {
			if errs[i] != nil {
				return errs[i]
			}
			m.Cells = append(m.Cells, col...)
		}
		if len(m.Cells) == 0 {
			return fmt.Errorf("cellmap: no grid cells intersect the boundary")
		}
		m.log().WithField("cells", len(m.Cells)).Info("created grid")
		return nil
	}
}

// gridColumn returns the cells in column i that intersect the boundary.
func (m *CellMap) gridColumn(i int) ([]*Cell, error) {
	var o []*Cell
	for j := 0; j < m.lattice.ny; j++ {
		poly := m.lattice.cell(i, j)
		if !m.intersectsBoundary(poly) {
			continue
		}
		id, err := m.cellID(poly[0][0])
		if err != nil {
			return nil, err
		}
		o = append(o, &Cell{
			Polygonal: poly,
			ID:        id,
			XIdx:      i,
			YIdx:      j,
			Type:      Land,
		})
	}
	return o, nil
}

// cellID returns the identifier of the cell whose lower-left corner is ll.
func (m *CellMap) cellID(ll geom.Point) (string, error) {
	g, err := m.toOutput(ll)
	if err != nil {
		return "", fmt.Errorf("cellmap: projecting cell corner: %v", err)
	}
	p := g.(geom.Point)
	return fmt.Sprintf("x%.6f_y%.6f", p.X, p.Y), nil
}
