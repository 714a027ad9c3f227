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

package cellmaputil

import (
	"path/filepath"
	"testing"

	"github.com/cellmap/cellmap/overpass"
	"github.com/google/go-cmp/cmp"
)

func TestGridConfig(t *testing.T) {
	cfg := InitializeConfig()
	cfg.Set("config", configFile)
	if err := cfg.setConfig(); err != nil {
		t.Fatal(err)
	}
	gc, err := GridConfig(cfg.Viper)
	if err != nil {
		t.Fatal(err)
	}
	if gc.CellSize != 3 || gc.Threshold != 0.3 || gc.SimplifyTolerance != 0.0001 {
		t.Errorf("have %+v", gc)
	}
	if gc.NumProcessors < 1 {
		t.Errorf("NumProcessors: have %d, want at least 1", gc.NumProcessors)
	}
}

func TestGridConfigEnv(t *testing.T) {
	t.Setenv("CELLMAP_THRESHOLD", "0.5")
	t.Setenv("CELLMAP_GRIDPROJ", "+proj=utm +zone=${TEST_ZONE}")
	t.Setenv("TEST_ZONE", "31")
	cfg := InitializeConfig()
	gc, err := GridConfig(cfg.Viper)
	if err != nil {
		t.Fatal(err)
	}
	if gc.Threshold != 0.5 {
		t.Errorf("Threshold: have %g, want 0.5", gc.Threshold)
	}
	if want := "+proj=utm +zone=31"; gc.GridProj != want {
		t.Errorf("GridProj: have %q, want %q", gc.GridProj, want)
	}
}

func TestGridConfigInvalid(t *testing.T) {
	for _, test := range []struct {
		name  string
		value interface{}
	}{
		{name: "CellSize", value: 0.},
		{name: "Threshold", value: 1.5},
		{name: "SimplifyTolerance", value: -1.},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := InitializeConfig()
			cfg.Set(test.name, test.value)
			if _, err := GridConfig(cfg.Viper); err == nil {
				t.Errorf("%s=%v should fail", test.name, test.value)
			}
		})
	}
}

func TestGridOptions(t *testing.T) {
	cfg := InitializeConfig()
	cfg.Set("DataDir", "data")
	gc, err := GridConfig(cfg.Viper)
	if err != nil {
		t.Fatal(err)
	}
	o, err := gridOptions(cfg.Viper, gc)
	if err != nil {
		t.Fatal(err)
	}
	want := &GridOptions{
		BoundaryFile: filepath.Join("data", "boundary.geojson"),
		WaterFile:    filepath.Join("data", "water_features.json"),
		OutputFile:   filepath.Join("data", "amsterdam_dissolved_3m.geojson"),
		LogFile:      filepath.Join("data", "amsterdam_dissolved_3m.log"),
		Dissolve:     true,
	}
	if diff := cmp.Diff(want, o); diff != "" {
		t.Errorf("options (-want +have):\n%s", diff)
	}

	cfg.Set("OutputDir", "out")
	cfg.Set("LogFile", "run.log")
	cfg.Set("WaterFile", "lakes.json")
	if o, err = gridOptions(cfg.Viper, gc); err != nil {
		t.Fatal(err)
	}
	if o.OutputFile != filepath.Join("out", "amsterdam_dissolved_3m.geojson") || o.LogFile != "run.log" ||
		o.WaterFile != "lakes.json" {
		t.Errorf("have %+v", o)
	}

	cfg.Set("OutputPrefix", "")
	if _, err = gridOptions(cfg.Viper, gc); err == nil {
		t.Error("an empty output prefix should fail")
	}
}

func TestCheckLogFile(t *testing.T) {
	if have, want := checkLogFile("", "out/amsterdam_grid_3m.geojson"), "out/amsterdam_grid_3m.log"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
	if have, want := checkLogFile("x.log", "out.geojson"), "x.log"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
}

func TestParseLayers(t *testing.T) {
	for _, test := range []struct {
		in   interface{}
		want []overpass.Layer
		err  bool
	}{
		{in: []string{"water", "park"}, want: []overpass.Layer{overpass.Water, overpass.Parks}},
		{in: []interface{}{"Building"}, want: []overpass.Layer{overpass.Buildings}},
		{in: "water,building", want: []overpass.Layer{overpass.Water, overpass.Buildings}},
		{in: []string{"lakes"}, err: true},
		{in: nil, err: true},
	} {
		have, err := parseLayers(test.in)
		if test.err {
			if err == nil {
				t.Errorf("%v: expected an error", test.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, have); diff != "" {
			t.Errorf("%v (-want +have):\n%s", test.in, diff)
		}
	}
}
