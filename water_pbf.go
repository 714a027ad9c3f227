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
	"context"
	"fmt"
	"os"

	"github.com/ctessum/geom/encoding/osm"
)

// DefaultWaterTags are the OpenStreetMap tags that mark water features.
var DefaultWaterTags = map[string][]string{
	"natural":  {"water"},
	"waterway": {},
}

// LoadWaterPBF returns a function that reads polygonal water features from
// the OpenStreetMap extract file (.osm.pbf or .osm) at path. Only features
// with one of the given tags are kept; an empty value list matches any value
// of that key. Features that are not polygons are ignored: unlike LoadWater,
// which closes every way into a ring, open ways such as waterway lines are
// read as lines here and dropped.
func LoadWaterPBF(ctx context.Context, path string, tags map[string][]string, opts WaterOptions) DomainManipulator {
	return func(m *CellMap) error {
		if tags == nil {
			tags = DefaultWaterTags
		}
		m.log().WithField("file", path).Info("extracting water features")
		data, err := osm.ExtractFile(ctx, os.ExpandEnv(path), osm.KeepTags(tags), true)
		if err != nil {
			return fmt.Errorf("cellmap: extracting water features for tags %v: %v", tags, err)
		}
		geomTags, err := data.Geom()
		if err != nil {
			return fmt.Errorf("cellmap: extracting water features for tags %v: %v", tags, err)
		}
		var features []*WaterFeature
		for _, gt := range geomTags {
			t := pbfTags(gt.Tags)
			for _, p := range polygons(gt.Geom) {
				features = append(features, &WaterFeature{Polygon: p, Tags: t})
			}
		}
		return m.addWater(features, opts.SimplifyTolerance)
	}
}

// pbfTags keeps the first value of each tag.
func pbfTags(tags map[string][]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	o := make(map[string]string, len(tags))
	for k, v := range tags {
		if len(v) > 0 {
			o[k] = v[0]
		}
	}
	return o
}
