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

// Package cellmaputil contains the command-line interface and configuration
// handling for cellmap.
package cellmaputil

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/cellmap/cellmap"
	"github.com/cellmap/cellmap/overpass"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information and the command tree.
type Cfg struct {
	*viper.Viper

	// Root is the main command.
	Root *cobra.Command

	versionCmd, fetchCmd, gridCmd *cobra.Command

	artCmd, gradientCmd, squaresCmd, strokesCmd, histogramCmd *cobra.Command
}

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// InitializeConfig creates the command tree and binds every option to
// command-line flags, environment variables in the format CELLMAP_<name>,
// and the configuration file.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "cellmap",
		Short: "Classify a city into a grid of land and water cells.",
		Long: `cellmap downloads OpenStreetMap data for a city, lays a grid of square
cells over it, classifies each cell as land or water, and writes the result
as GeoJSON. It can also draw procedural SVG images of cell grids.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CELLMAP_var' where 'var' is
the name of the variable to be set. String variables may contain environment
variables, which are expanded.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return cfg.setConfig() },
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of cellmap.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("cellmap v%s\n", cellmap.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Download the city boundary and OpenStreetMap features.",
		Long: `fetch downloads the boundary of Place from Nominatim and the features of
each of Layers within the OpenStreetMap administrative area AreaName from the
Overpass API, and saves them in DataDir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := overpassClient(cfg, cmd.OutOrStderr())
			if err != nil {
				return err
			}
			layers, err := parseLayers(cfg.Get("Layers"))
			if err != nil {
				return err
			}
			area := overpass.Area{
				Name:       os.ExpandEnv(cfg.GetString("AreaName")),
				AdminLevel: cfg.GetInt("AdminLevel"),
			}
			return c.FetchAll(context.Background(), os.ExpandEnv(cfg.GetString("DataDir")),
				os.ExpandEnv(cfg.GetString("Place")), area, layers)
		},
		DisableAutoGenTag: true,
	}

	cfg.gridCmd = &cobra.Command{
		Use:   "grid",
		Short: "Create and classify the cell grid.",
		Long: `grid reads the boundary and water features, creates a grid of square
cells covering the boundary, classifies each cell as land or water, and writes
the cells (or, if Dissolve is true, the merged land and water regions) to a
GeoJSON file in OutputDir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc, err := GridConfig(cfg.Viper)
			if err != nil {
				return err
			}
			o, err := gridOptions(cfg.Viper, gc)
			if err != nil {
				return err
			}
			return Grid(cmd.OutOrStdout(), o, gc)
		},
		DisableAutoGenTag: true,
	}

	cfg.artCmd = &cobra.Command{
		Use:   "art",
		Short: "Draw procedural SVG grid images.",
		Long: `art draws SVG images of square-cell grids. Use the subcommands below to
choose an image type. Images are written to Art.OutputFile, or to a default
file name for the image type in the current directory.`,
		DisableAutoGenTag: true,
	}
	cfg.gradientCmd = cfg.newArtCmd("gradient",
		"Draw randomly filled cells that fade out from the center.",
		func() svgWriter { return gradient(cfg.Viper) })
	cfg.squaresCmd = cfg.newArtCmd("squares",
		"Draw centered squares sized by Perlin noise.",
		func() svgWriter { return squares(cfg.Viper) })
	cfg.strokesCmd = cfg.newArtCmd("strokes",
		"Draw outlined squares with strokes that grow inward.",
		func() svgWriter { return strokes(cfg.Viper) })
	cfg.histogramCmd = cfg.newArtCmd("histogram",
		"Draw a randomized histogram.",
		func() svgWriter { return histogram(cfg.Viper) })

	cfg.Root.AddCommand(cfg.versionCmd, cfg.fetchCmd, cfg.gridCmd, cfg.artCmd)
	cfg.artCmd.AddCommand(cfg.gradientCmd, cfg.squaresCmd, cfg.strokesCmd, cfg.histogramCmd)

	cfg.bindOptions()
	return cfg
}

func (cfg *Cfg) newArtCmd(use, short string, w func() svgWriter) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  fmt.Sprintf("%s draws an SVG image. %s", use, short),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeSVG(cmd.OutOrStdout(), w(), os.ExpandEnv(cfg.GetString("Art.OutputFile")))
		},
		DisableAutoGenTag: true,
	}
}

// options returns the configuration options available to cellmap.
func (cfg *Cfg) options() []option {
	artCmds := []*pflag.FlagSet{cfg.gradientCmd.Flags(), cfg.squaresCmd.Flags(),
		cfg.strokesCmd.Flags(), cfg.histogramCmd.Flags()}
	gridArt := []*pflag.FlagSet{cfg.gradientCmd.Flags(), cfg.squaresCmd.Flags(), cfg.strokesCmd.Flags()}
	noiseArt := []*pflag.FlagSet{cfg.squaresCmd.Flags(), cfg.strokesCmd.Flags()}
	return []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "DataDir",
			usage: `
              DataDir is the directory that downloaded data is written to
              by 'fetch' and read from by 'grid'.`,
			shorthand:  "d",
			defaultVal: "amsterdam_data",
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags(), cfg.gridCmd.Flags()},
		},
		{
			name: "Place",
			usage: `
              Place is the free-form place name used to look up the city
              boundary in Nominatim.`,
			defaultVal: "Amsterdam, Netherlands",
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "AreaName",
			usage: `
              AreaName is the OpenStreetMap name of the administrative area
              that features are downloaded for.`,
			defaultVal: "Amsterdam",
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "AdminLevel",
			usage: `
              AdminLevel is the OpenStreetMap admin_level of the area. Zero
              matches any level.`,
			defaultVal: 8,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "Layers",
			usage: `
              Layers are the feature layers to download. Valid layers are
              water, park, and building.`,
			defaultVal: []string{"water", "park", "building"},
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "OverpassURL",
			usage: `
              OverpassURL is the Overpass API interpreter endpoint.`,
			defaultVal: overpass.DefaultOverpassURL,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "NominatimURL",
			usage: `
              NominatimURL is the Nominatim search endpoint.`,
			defaultVal: overpass.DefaultNominatimURL,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "UserAgent",
			usage: `
              UserAgent identifies this application to the web services.`,
			defaultVal: "cellmap/" + cellmap.Version,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is a directory where downloaded responses are cached.
              If empty, responses are not cached.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "MaxRetries",
			usage: `
              MaxRetries is the maximum number of times a failed request
              is retried.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "QueryTimeout",
			usage: `
              QueryTimeout is the server-side Overpass query timeout in
              seconds.`,
			defaultVal: overpass.DefaultTimeout,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "FetchConcurrency",
			usage: `
              FetchConcurrency is the maximum number of layers that are
              downloaded at once.`,
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{cfg.fetchCmd.Flags()},
		},
		{
			name: "BoundaryFile",
			usage: `
              BoundaryFile is the GeoJSON city boundary. If empty,
              boundary.geojson in DataDir is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "WaterFile",
			usage: `
              WaterFile is the Overpass JSON file with water features. If
              empty, water_features.json in DataDir is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "WaterPBF",
			usage: `
              WaterPBF is an OpenStreetMap .osm.pbf extract to read water
              features from instead of WaterFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "AssembleRelations",
			usage: `
              AssembleRelations specifies whether multipolygon relations in
              WaterFile are assembled into polygons with holes.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "CellSize",
			usage: `
              CellSize is the edge length of grid cells in meters.`,
			shorthand:  "s",
			defaultVal: 3.0,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "Threshold",
			usage: `
              Threshold is the fraction of a cell that must be covered by
              water for the cell to be classified as water.`,
			defaultVal: 0.3,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "SimplifyTolerance",
			usage: `
              SimplifyTolerance is the tolerance for simplifying water
              features, in grid units. Zero disables simplification.`,
			defaultVal: 0.0001,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "NumProcessors",
			usage: `
              NumProcessors is the number of concurrent workers.`,
			shorthand:  "n",
			defaultVal: defaultProcessors(),
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "GridProj",
			usage: `
              GridProj is the proj4 definition of the spatial reference the
              grid is built in. Its units must be meters. If empty, the grid
              is built in longitude/latitude degrees.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "ReferenceLatitude",
			usage: `
              ReferenceLatitude is the latitude used to convert meters to
              degrees of longitude when GridProj is empty. If zero, the
              center latitude of the boundary is used.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the output is written to. If empty,
              DataDir is used.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "OutputPrefix",
			usage: `
              OutputPrefix is the start of the output file name.`,
			defaultVal: "amsterdam",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "Dissolve",
			usage: `
              Dissolve specifies whether cells of the same type are merged
              before they are written.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "Shapefile",
			usage: `
              Shapefile specifies whether a shapefile is written in addition
              to the GeoJSON output.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the log file. If empty, the output file
              name with a .log extension is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridCmd.Flags()},
		},
		{
			name: "Art.OutputFile",
			usage: `
              Art.OutputFile is the SVG file to write. If empty, a default
              name for the image type is used.`,
			defaultVal: "",
			flagsets:   artCmds,
		},
		{
			name: "Art.Seed",
			usage: `
              Art.Seed seeds the random number and noise generators.`,
			defaultVal: 1,
			flagsets:   artCmds,
		},
		{
			name: "Art.Color",
			usage: `
              Art.Color is the fill or stroke color as #RRGGBB.`,
			defaultVal: "#0702FF",
			flagsets:   artCmds,
		},
		{
			name: "Art.Width",
			usage: `
              Art.Width is the image width in pixels.`,
			defaultVal: 1280,
			flagsets:   gridArt,
		},
		{
			name: "Art.Height",
			usage: `
              Art.Height is the image height in pixels.`,
			defaultVal: 720,
			flagsets:   gridArt,
		},
		{
			name: "Art.CellSize",
			usage: `
              Art.CellSize is the cell edge length in pixels.`,
			defaultVal: 30,
			flagsets:   gridArt,
		},
		{
			name: "Art.OutlineColor",
			usage: `
              Art.OutlineColor is the color of the grid lines.`,
			defaultVal: "#D3D3D3",
			flagsets:   []*pflag.FlagSet{cfg.gradientCmd.Flags(), cfg.squaresCmd.Flags()},
		},
		{
			name: "Art.Randomness",
			usage: `
              Art.Randomness is the maximum random perturbation of the
              gradient, between 0 and 1.`,
			defaultVal: 0.2,
			flagsets:   []*pflag.FlagSet{cfg.gradientCmd.Flags()},
		},
		{
			name: "Art.NoiseScale",
			usage: `
              Art.NoiseScale is the number of Perlin noise periods across the
              image.`,
			defaultVal: 5.0,
			flagsets:   noiseArt,
		},
		{
			name: "Art.Octaves",
			usage: `
              Art.Octaves is the number of Perlin noise octaves.`,
			defaultVal: 4,
			flagsets:   noiseArt,
		},
		{
			name: "Art.Classified",
			usage: `
              Art.Classified specifies whether sizes are grouped into
              Art.Classes steps instead of varying continuously.`,
			defaultVal: true,
			flagsets:   noiseArt,
		},
		{
			name: "Art.Classes",
			usage: `
              Art.Classes is the number of size steps when Art.Classified
              is true.`,
			defaultVal: 5,
			flagsets:   noiseArt,
		},
		{
			name: "Art.Squares.MinSize",
			usage: `
              Art.Squares.MinSize is the smallest square size as a fraction
              of the cell size.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{cfg.squaresCmd.Flags()},
		},
		{
			name: "Art.Squares.MaxSize",
			usage: `
              Art.Squares.MaxSize is the largest square size as a fraction
              of the cell size.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{cfg.squaresCmd.Flags()},
		},
		{
			name: "Art.Squares.Padding",
			usage: `
              Art.Squares.Padding is removed from each side of a square, in
              pixels.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{cfg.squaresCmd.Flags()},
		},
		{
			name: "Art.Squares.Outline",
			usage: `
              Art.Squares.Outline specifies whether grid lines are drawn.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.squaresCmd.Flags()},
		},
		{
			name: "Art.Strokes.Padding",
			usage: `
              Art.Strokes.Padding is the gap between a square and its cell,
              in pixels.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{cfg.strokesCmd.Flags()},
		},
		{
			name: "Art.Strokes.MinStroke",
			usage: `
              Art.Strokes.MinStroke is the smallest stroke width in pixels.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.strokesCmd.Flags()},
		},
		{
			name: "Art.Strokes.MaxStroke",
			usage: `
              Art.Strokes.MaxStroke is the largest stroke width in pixels.
              If zero, half of the padded cell size is used.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.strokesCmd.Flags()},
		},
		{
			name: "Art.Strokes.Threshold",
			usage: `
              Art.Strokes.Threshold is the minimum cell value for a square
              to be drawn.`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{cfg.strokesCmd.Flags()},
		},
		{
			name: "Art.Histogram.Height",
			usage: `
              Art.Histogram.Height is the image height in pixels.`,
			defaultVal: 200.0,
			flagsets:   []*pflag.FlagSet{cfg.histogramCmd.Flags()},
		},
		{
			name: "Art.Histogram.Length",
			usage: `
              Art.Histogram.Length is the image width in pixels.`,
			defaultVal: 2579.0,
			flagsets:   []*pflag.FlagSet{cfg.histogramCmd.Flags()},
		},
		{
			name: "Art.Histogram.Bars",
			usage: `
              Art.Histogram.Bars is the number of bars.`,
			defaultVal: 400,
			flagsets:   []*pflag.FlagSet{cfg.histogramCmd.Flags()},
		},
		{
			name: "Art.Histogram.ExplosionPoint",
			usage: `
              Art.Histogram.ExplosionPoint is the fraction of the bars after
              which bars are high.`,
			defaultVal: 0.7,
			flagsets:   []*pflag.FlagSet{cfg.histogramCmd.Flags()},
		},
	}
}

// bindOptions creates a flag for every option and binds it to the viper
// configuration.
func (cfg *Cfg) bindOptions() {
	cfg.SetEnvPrefix("CELLMAP")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	for _, option := range cfg.options() {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one.
func (cfg *Cfg) setConfig() error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cellmap: problem reading configuration file: %v", err)
		}
	}
	return nil
}

func defaultProcessors() int {
	if n := runtime.GOMAXPROCS(-1) - 1; n > 0 {
		return n
	}
	return 1
}
