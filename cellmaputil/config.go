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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cellmap/cellmap"
	"github.com/cellmap/cellmap/art"
	"github.com/cellmap/cellmap/overpass"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// GridConfig reads the grid settings from cfg.
func GridConfig(cfg *viper.Viper) (*cellmap.GridConfig, error) {
	gc := &cellmap.GridConfig{
		CellSize:          cfg.GetFloat64("CellSize"),
		Threshold:         cfg.GetFloat64("Threshold"),
		SimplifyTolerance: cfg.GetFloat64("SimplifyTolerance"),
		NumProcessors:     cfg.GetInt("NumProcessors"),
		GridProj:          os.ExpandEnv(cfg.GetString("GridProj")),
		ReferenceLatitude: cfg.GetFloat64("ReferenceLatitude"),
	}
	if gc.CellSize <= 0 {
		return nil, fmt.Errorf("cellmap: CellSize must be positive but is %g", gc.CellSize)
	}
	if gc.Threshold < 0 || gc.Threshold > 1 {
		return nil, fmt.Errorf("cellmap: Threshold must be between 0 and 1 but is %g", gc.Threshold)
	}
	if gc.SimplifyTolerance < 0 {
		return nil, fmt.Errorf("cellmap: SimplifyTolerance must not be negative but is %g", gc.SimplifyTolerance)
	}
	return gc, nil
}

// GridOptions holds the file locations and switches for a grid run.
type GridOptions struct {
	BoundaryFile, WaterFile, WaterPBF string
	AssembleRelations                 bool

	// OutputFile is the GeoJSON output path.
	OutputFile string
	LogFile    string

	Dissolve, Shapefile bool
}

func gridOptions(cfg *viper.Viper, gc *cellmap.GridConfig) (*GridOptions, error) {
	dataDir := os.ExpandEnv(cfg.GetString("DataDir"))
	outDir := os.ExpandEnv(cfg.GetString("OutputDir"))
	if outDir == "" {
		outDir = dataDir
	}
	o := &GridOptions{
		BoundaryFile:      defaultPath(cfg.GetString("BoundaryFile"), dataDir, overpass.BoundaryFileName),
		WaterFile:         defaultPath(cfg.GetString("WaterFile"), dataDir, overpass.LayerFileName(overpass.Water)),
		WaterPBF:          os.ExpandEnv(cfg.GetString("WaterPBF")),
		AssembleRelations: cfg.GetBool("AssembleRelations"),
		Dissolve:          cfg.GetBool("Dissolve"),
		Shapefile:         cfg.GetBool("Shapefile"),
	}
	prefix := os.ExpandEnv(cfg.GetString("OutputPrefix"))
	if prefix == "" {
		return nil, fmt.Errorf("you need to specify an output file prefix (for example: OutputPrefix=\"amsterdam\")")
	}
	o.OutputFile = cellmap.OutputFileName(outDir, prefix, gc.CellSize, o.Dissolve)
	o.LogFile = checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), o.OutputFile)
	return o, nil
}

// defaultPath expands environment variables in f, or returns name in dir if
// f is empty.
func defaultPath(f, dir, name string) string {
	if f == "" {
		return filepath.Join(dir, name)
	}
	return os.ExpandEnv(f)
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// Grid runs the grid pipeline: it loads the boundary and water features,
// creates and classifies the grid, optionally dissolves it, and writes the
// output. Log messages are written to w and to o.LogFile.
func Grid(w io.Writer, o *GridOptions, gc *cellmap.GridConfig) error {
	if err := os.MkdirAll(filepath.Dir(o.OutputFile), os.ModePerm); err != nil {
		return fmt.Errorf("cellmap: creating output directory: %v", err)
	}
	logfile, err := os.Create(o.LogFile)
	if err != nil {
		return fmt.Errorf("cellmap: problem creating log file: %v", err)
	}
	defer logfile.Close()

	log := logrus.New()
	log.Out = io.MultiWriter(w, logfile)
	log.Formatter = &logrus.TextFormatter{DisableColors: true}

	start := time.Now()
	log.WithField("version", cellmap.Version).Info("starting grid classification")

	boundary, err := os.Open(o.BoundaryFile)
	if err != nil {
		return fmt.Errorf("cellmap: opening boundary file: %v", err)
	}
	defer boundary.Close()

	wopts := cellmap.WaterOptions{
		SimplifyTolerance: gc.SimplifyTolerance,
		AssembleRelations: o.AssembleRelations,
	}
	var loadWater cellmap.DomainManipulator
	if o.WaterPBF != "" {
		loadWater = cellmap.LoadWaterPBF(context.Background(), o.WaterPBF, cellmap.DefaultWaterTags, wopts)
	} else {
		water, err := os.Open(o.WaterFile)
		if err != nil {
			return fmt.Errorf("cellmap: opening water file: %v", err)
		}
		defer water.Close()
		loadWater = cellmap.LoadWater(water, wopts)
	}

	m := &cellmap.CellMap{
		Log: log,
		InitFuncs: []cellmap.DomainManipulator{
			cellmap.UseProjection(gc.GridProj),
			cellmap.LoadBoundary(boundary),
			loadWater,
			cellmap.CreateGrid(gc),
			cellmap.Classify(gc),
		},
	}
	if o.Dissolve {
		m.InitFuncs = append(m.InitFuncs, cellmap.Dissolve())
	}
	if err := m.Init(); err != nil {
		return err
	}

	if err := m.SaveFile(o.OutputFile, o.Dissolve); err != nil {
		return err
	}
	log.WithField("file", o.OutputFile).Info("saved output")
	if o.Shapefile {
		shp := strings.TrimSuffix(o.OutputFile, filepath.Ext(o.OutputFile)) + ".shp"
		if err := m.SaveShapefile(shp, o.Dissolve); err != nil {
			return err
		}
		log.WithField("file", shp).Info("saved shapefile")
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("grid classification complete")
	return nil
}

// overpassClient creates a download client from the configuration.
func overpassClient(cfg *Cfg, w io.Writer) (*overpass.Client, error) {
	c := overpass.NewClient()
	c.OverpassURL = os.ExpandEnv(cfg.GetString("OverpassURL"))
	c.NominatimURL = os.ExpandEnv(cfg.GetString("NominatimURL"))
	c.UserAgent = os.ExpandEnv(cfg.GetString("UserAgent"))
	c.CacheDir = os.ExpandEnv(cfg.GetString("CacheDir"))
	c.Timeout = cfg.GetInt("QueryTimeout")
	c.Concurrency = cfg.GetInt("FetchConcurrency")
	retries := cfg.GetInt("MaxRetries")
	if retries < 0 {
		return nil, fmt.Errorf("cellmap: MaxRetries must not be negative but is %d", retries)
	}
	c.MaxRetries = uint64(retries)
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	log := logrus.New()
	log.Out = w
	c.Log = log
	return c, nil
}

// parseLayers converts layer names into layers. Names in config files
// may be given as a list or as a comma-separated string.
func parseLayers(v interface{}) ([]overpass.Layer, error) {
	names := cast.ToStringSlice(v)
	if len(names) == 1 && strings.Contains(names[0], ",") {
		names = strings.Split(names[0], ",")
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("you need to specify at least one layer (for example: Layers=[\"water\"])")
	}
	layers := make([]overpass.Layer, len(names))
	for i, n := range names {
		l, err := overpass.ParseLayer(os.ExpandEnv(n))
		if err != nil {
			return nil, err
		}
		layers[i] = l
	}
	return layers, nil
}

// svgWriter is implemented by the art generators.
type svgWriter interface {
	Write(w io.Writer) error
	FileName() string
}

// writeSVG writes the image drawn by s to file, or to the default file name
// of s if file is empty.
func writeSVG(log io.Writer, s svgWriter, file string) error {
	if file == "" {
		file = s.FileName()
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("cellmap: creating output directory: %v", err)
		}
	}
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("cellmap: creating SVG file: %v", err)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(log, "wrote %s\n", file)
	return nil
}

func gradient(cfg *viper.Viper) *art.Gradient {
	return &art.Gradient{
		Width:        cfg.GetInt("Art.Width"),
		Height:       cfg.GetInt("Art.Height"),
		CellSize:     cfg.GetInt("Art.CellSize"),
		BaseColor:    os.ExpandEnv(cfg.GetString("Art.Color")),
		OutlineColor: os.ExpandEnv(cfg.GetString("Art.OutlineColor")),
		Randomness:   cfg.GetFloat64("Art.Randomness"),
		Seed:         cfg.GetInt64("Art.Seed"),
	}
}

func squares(cfg *viper.Viper) *art.Squares {
	return &art.Squares{
		Width:        cfg.GetInt("Art.Width"),
		Height:       cfg.GetInt("Art.Height"),
		CellSize:     cfg.GetInt("Art.CellSize"),
		Color:        os.ExpandEnv(cfg.GetString("Art.Color")),
		OutlineColor: os.ExpandEnv(cfg.GetString("Art.OutlineColor")),
		NoiseScale:   cfg.GetFloat64("Art.NoiseScale"),
		Octaves:      cfg.GetInt("Art.Octaves"),
		MinSize:      cfg.GetFloat64("Art.Squares.MinSize"),
		MaxSize:      cfg.GetFloat64("Art.Squares.MaxSize"),
		Padding:      cfg.GetFloat64("Art.Squares.Padding"),
		Outline:      cfg.GetBool("Art.Squares.Outline"),
		Classified:   cfg.GetBool("Art.Classified"),
		Classes:      cfg.GetInt("Art.Classes"),
		Seed:         cfg.GetInt64("Art.Seed"),
	}
}

func strokes(cfg *viper.Viper) *art.Strokes {
	return &art.Strokes{
		Width:      cfg.GetInt("Art.Width"),
		Height:     cfg.GetInt("Art.Height"),
		CellSize:   cfg.GetInt("Art.CellSize"),
		Color:      os.ExpandEnv(cfg.GetString("Art.Color")),
		Padding:    cfg.GetFloat64("Art.Strokes.Padding"),
		NoiseScale: cfg.GetFloat64("Art.NoiseScale"),
		Octaves:    cfg.GetInt("Art.Octaves"),
		MinStroke:  cfg.GetFloat64("Art.Strokes.MinStroke"),
		MaxStroke:  cfg.GetFloat64("Art.Strokes.MaxStroke"),
		Threshold:  cfg.GetFloat64("Art.Strokes.Threshold"),
		Classified: cfg.GetBool("Art.Classified"),
		Classes:    cfg.GetInt("Art.Classes"),
		Seed:       cfg.GetInt64("Art.Seed"),
	}
}

func histogram(cfg *viper.Viper) *art.Histogram {
	return &art.Histogram{
		Height:         cfg.GetFloat64("Art.Histogram.Height"),
		Length:         cfg.GetFloat64("Art.Histogram.Length"),
		Bars:           cfg.GetInt("Art.Histogram.Bars"),
		Color:          os.ExpandEnv(cfg.GetString("Art.Color")),
		ExplosionPoint: cfg.GetFloat64("Art.Histogram.ExplosionPoint"),
		Seed:           cfg.GetInt64("Art.Seed"),
	}
}
