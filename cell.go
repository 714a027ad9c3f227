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

import "github.com/ctessum/geom"

// CellType is the land cover class of a cell.
type CellType string

// Cell types.
const (
	Land  CellType = "land"
	Water CellType = "water"
)

// Cell is a single grid cell.
type Cell struct {
	geom.Polygonal

	// ID is derived from the lower-left corner of the cell in
	// longitude/latitude, e.g. "x4.728760_y52.278174".
	ID string

	// XIdx and YIdx are the column and row of the cell, counted from the
	// lower-left corner of the boundary's bounding box.
	XIdx, YIdx int

	Type CellType

	// WaterFraction is the summed area of all intersecting water
	// features divided by the cell area.
	WaterFraction float64
}

// Region is a polygon formed by dissolving all cells of one type.
type Region struct {
	geom.Polygonal
	Type CellType

	// Count is the number of cells dissolved into the region.
	Count int
}

// Counts returns the number of land and water cells in m.
func (m *CellMap) Counts() (land, water int) {
	for _, c := range m.Cells {
		switch c.Type {
		case Water:
			water++
		default:
			land++
		}
	}
	return land, water
}
