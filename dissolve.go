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
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// rect is a rectangular block of lattice cells spanning columns [i0, i1]
// and rows [j0, j1].
type rect struct {
	i0, i1, j0, j1 int
}

// Dissolve merges all cells of the same type into a single Region per type.
// Regions are ordered land first, then water.
func Dissolve() DomainManipulator {
	return func(m *CellMap) error {
		if len(m.Cells) == 0 {
			return fmt.Errorf("cellmap: there are no cells to dissolve")
		}
		m.Regions = m.Regions[:0]
		for _, t := range []CellType{Land, Water} {
			var cells []*Cell
			for _, c := range m.Cells {
				if c.Type == t {
					cells = append(cells, c)
				}
			}
			if len(cells) == 0 {
				continue
			}
			pieces := m.dissolvePieces(cells)
			u, err := cascadedUnion(pieces)
			if err != nil {
				return fmt.Errorf("cellmap: dissolving %s cells: %v", t, err)
			}
			m.Regions = append(m.Regions, &Region{Polygonal: u, Type: t, Count: len(cells)})
			m.log().WithFields(logrus.Fields{
				"type":   t,
				"cells":  len(cells),
				"pieces": len(pieces),
			}).Info("dissolved cells")
		}
		return nil
	}
}

// dissolvePieces returns polygons covering exactly the given cells, with
// neighboring cells merged into rectangles where possible.
func (m *CellMap) dissolvePieces(cells []*Cell) []geom.Polygonal {
	if m.lattice == nil {
		o := make([]geom.Polygonal, len(cells))
		for i, c := range cells {
			o[i] = c.Polygonal
		}
		return o
	}
	rects := mergeRuns(columnRuns(cells))
	o := make([]geom.Polygonal, len(rects))
	for i, r := range rects {
		x0, x1 := m.lattice.x(r.i0), m.lattice.x(r.i1+1)
		y0, y1 := m.lattice.y(r.j0), m.lattice.y(r.j1+1)
		o[i] = geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
	}
	return o
}

// columnRuns groups cells into runs of vertically adjacent cells in the same
// column. The returned runs are sorted by column and then by row.
func columnRuns(cells []*Cell) []rect {
	idx := make([][2]int, len(cells))
	for i, c := range cells {
		idx[i] = [2]int{c.XIdx, c.YIdx}
	}
	sort.Slice(idx, func(a, b int) bool {
		if idx[a][0] != idx[b][0] {
			return idx[a][0] < idx[b][0]
		}
		return idx[a][1] < idx[b][1]
	})
	var runs []rect
	for _, ij := range idx {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.i0 == ij[0] && last.j1+1 == ij[1] {
				last.j1 = ij[1]
				continue
			}
			if last.i0 == ij[0] && last.j1 == ij[1] {
				continue // duplicate
			}
		}
		runs = append(runs, rect{i0: ij[0], i1: ij[0], j0: ij[1], j1: ij[1]})
	}
	return runs
}

// mergeRuns merges runs with identical row spans in consecutive columns into
// rectangles. runs must be sorted by column.
func mergeRuns(runs []rect) []rect {
	open := make(map[[2]int]int) // row span -> index in o
	var o []rect
	for _, r := range runs {
		key := [2]int{r.j0, r.j1}
		if k, ok := open[key]; ok && o[k].i1+1 == r.i0 {
			o[k].i1 = r.i0
			continue
		}
		open[key] = len(o)
		o = append(o, r)
	}
	return o
}

// cascadedUnion unions polys by repeatedly merging neighboring pairs in
// parallel until one polygon remains.
func cascadedUnion(polys []geom.Polygonal) (u geom.Polygonal, err error) {
	if len(polys) == 0 {
		return nil, nil
	}
	nprocs := runtime.GOMAXPROCS(-1)
	for len(polys) > 1 {
		next := make([]geom.Polygonal, (len(polys)+1)/2)
		errs := make([]error, len(next))
		sem := make(chan struct{}, nprocs)
		var wg sync.WaitGroup
		for i := range next {
			if 2*i+1 >= len(polys) {
				next[i] = polys[2*i]
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer func() { <-sem; wg.Done() }()
				next[i], errs[i] = union(polys[2*i], polys[2*i+1])
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		polys = next
	}
	return polys[0], nil
}

// union returns the union of a and b. Panics in the polygon clipper are
// returned as errors.
func union(a, b geom.Polygonal) (u geom.Polygonal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("polygon union: %v", r)
		}
	}()
	return a.Union(b), nil
}
