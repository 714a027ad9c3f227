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

// Package cellmap rasterizes a city into a grid of square cells and
// classifies each cell as land or water according to how much of it is
// covered by OpenStreetMap water features. Cells of the same type can then be
// dissolved into larger polygons and written out as GeoJSON or shapefiles.
package cellmap

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.3.0"

// CellMap holds the state of a grid classification run.
type CellMap struct {
	// Boundary is the city boundary in the grid spatial reference.
	Boundary geom.Polygonal

	// Water holds the water features in the grid spatial reference.
	Water *WaterIndex

	// Cells are the grid cells that intersect Boundary.
	Cells []*Cell

	// Regions are the dissolved cells, one per cell type present.
	Regions []*Region

	// InitFuncs are run in order by Init.
	InitFuncs []DomainManipulator

	// Log receives progress messages. If nil, logrus.StandardLogger() is used.
	Log logrus.FieldLogger

	boundaryIndex *rtree.Rtree
	lattice       *lattice

	sr                   *proj.SR
	fromLonLat, toLonLat proj.Transformer
}

// DomainManipulator is a function that operates on a CellMap. Pipeline steps
// are expressed as DomainManipulators.
type DomainManipulator func(m *CellMap) error

// Init runs the InitFuncs of m in order, stopping at the first error.
func (m *CellMap) Init() error {
	if m.Log == nil {
		m.Log = logrus.StandardLogger()
	}
	for i, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return fmt.Errorf("cellmap: initialization step %d: %v", i, err)
		}
	}
	return nil
}

func (m *CellMap) log() logrus.FieldLogger {
	if m.Log == nil {
		m.Log = logrus.StandardLogger()
	}
	return m.Log
}

// UseProjection sets the spatial reference the grid is built in. Input data
// are assumed to be in longitude/latitude and are transformed on load;
// output is transformed back to longitude/latitude. If gridProj is empty,
// the grid is built directly in degrees and cell sizes are converted from
// meters with a spherical approximation. It must run before any data is
// loaded.
func UseProjection(gridProj string) DomainManipulator {
	return func(m *CellMap) error {
		if m.Boundary != nil || m.Water != nil {
			return fmt.Errorf("cellmap: projection must be set before loading data")
		}
		lonLat, err := proj.Parse(lonLatProj)
		if err != nil {
			return err
		}
		if gridProj == "" {
			m.sr = lonLat
			m.fromLonLat, m.toLonLat = nil, nil
			return nil
		}
		sr, err := proj.Parse(gridProj)
		if err != nil {
			return fmt.Errorf("cellmap: parsing grid projection: %v", err)
		}
		m.sr = sr
		if m.fromLonLat, err = lonLat.NewTransform(sr); err != nil {
			return fmt.Errorf("cellmap: creating projection transform: %v", err)
		}
		if m.toLonLat, err = sr.NewTransform(lonLat); err != nil {
			return fmt.Errorf("cellmap: creating projection transform: %v", err)
		}
		return nil
	}
}

const lonLatProj = "+proj=longlat"

// projected reports whether the grid is built in a projected (meter-based)
// spatial reference.
func (m *CellMap) projected() bool { return m.fromLonLat != nil }

// toGrid transforms g from longitude/latitude into the grid spatial reference.
func (m *CellMap) toGrid(g geom.Geom) (geom.Geom, error) {
	if m.fromLonLat == nil {
		return g, nil
	}
	return g.Transform(m.fromLonLat)
}

// toOutput transforms g from the grid spatial reference into
// longitude/latitude.
func (m *CellMap) toOutput(g geom.Geom) (geom.Geom, error) {
	if m.toLonLat == nil {
		return g, nil
	}
	return g.Transform(m.toLonLat)
}
