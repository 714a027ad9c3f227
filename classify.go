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
	"sync"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Classify returns a function that classifies every grid cell as land or
// water. A cell is water if the summed area of its intersections with water
// features, divided by the cell area, is greater than cfg.Threshold. Cells
// are processed in cfg.NumProcessors contiguous batches concurrently. A
// cell that cannot be processed is left as land.
func Classify(cfg *GridConfig) DomainManipulator {
	return func(m *CellMap) error {
		if len(m.Cells) == 0 {
			return fmt.Errorf("cellmap: the grid must be created before classification")
		}
		if m.Water == nil {
			m.Water = NewWaterIndex()
		}
		nprocs := cfg.nprocs()
		batch := len(m.Cells)/nprocs + 1
		m.log().WithFields(logrus.Fields{
			"cells":      len(m.Cells),
			"batches":    nprocs,
			"batch_size": batch,
		}).Info("classifying cells")

		var wg sync.WaitGroup
		for start := 0; start < len(m.Cells); start += batch {
			end := start + batch
			if end > len(m.Cells) {
				end = len(m.Cells)
			}
			wg.Add(1)
			go func(cells []*Cell) {
				defer wg.Done()
				for _, c := range cells {
					m.classifyCell(c, cfg.Threshold)
				}
			}(m.Cells[start:end])
		}
		wg.Wait()

		land, water := m.Counts()
		m.log().WithFields(logrus.Fields{
			"land":  land,
			"water": water,
		}).Info("classified cells")
		return nil
	}
}

// classifyCell sets the type and water fraction of c.
func (m *CellMap) classifyCell(c *Cell, threshold float64) {
	c.Type = Land
	c.WaterFraction = 0
	defer func() {
		if r := recover(); r != nil {
			m.log().WithField("cell", c.ID).Warnf("classification failed: %v", r)
			c.Type = Land
			c.WaterFraction = 0
		}
	}()
	candidates := m.Water.Candidates(c.Bounds())
	if len(candidates) == 0 {
		return
	}
	areas := make([]float64, 0, len(candidates))
	for _, w := range candidates {
		a, err := intersectionArea(c.Polygonal, w.Polygon)
		if err != nil {
			m.log().WithField("cell", c.ID).Debugf("skipping water feature: %v", err)
			continue
		}
		areas = append(areas, a)
	}
	cellArea := c.Area()
	if cellArea == 0 {
		return
	}
	c.WaterFraction = floats.Sum(areas) / cellArea
	if c.WaterFraction > threshold {
		c.Type = Water
	}
}

// intersectionArea returns the area of the intersection of a and b. Panics
// in the polygon clipper are returned as errors.
func intersectionArea(a, b geom.Polygonal) (area float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cellmap: polygon intersection: %v", r)
		}
	}()
	isect := a.Intersection(b)
	if isect == nil {
		return 0, nil
	}
	return isect.Area(), nil
}
