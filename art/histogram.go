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
	"math"
	"math/rand"

	svg "github.com/ajstarks/svgo/float"
)

// Histogram draws a bar chart of random heights that grow slowly up to an
// explosion point and are high after it.
type Histogram struct {
	Height, Length float64
	Bars           int
	Color          string

	// ExplosionPoint is the fraction of the bars, between 0 and 1, after
	// which bars are high.
	ExplosionPoint float64

	Seed int64
}

// DefaultHistogram returns the default histogram settings.
func DefaultHistogram() *Histogram {
	return &Histogram{
		Height:         200,
		Length:         2579,
		Bars:           400,
		Color:          "#0702FF",
		ExplosionPoint: 0.7,
		Seed:           1,
	}
}

// FileName returns the default output file name.
func (h *Histogram) FileName() string { return "gradual_randomized_histogram.svg" }

// barHeights returns the relative height of every bar.
func (h *Histogram) barHeights() []float64 {
	rnd := rand.New(rand.NewSource(h.Seed))
	uniform := func(lo, hi float64) float64 { return lo + rnd.Float64()*(hi-lo) }
	o := make([]float64, h.Bars)
	for i := range o {
		var x float64
		if h.Bars > 1 {
			x = float64(i) / float64(h.Bars-1)
		}
		if x < h.ExplosionPoint {
			base := 0.3 * math.Pow(x/h.ExplosionPoint, 2)
			o[i] = clamp(base+uniform(-0.05, 0.05), 0, 0.5)
		} else {
			o[i] = uniform(0.5, 0.8)
		}
	}
	return o
}

// Write draws the image to w.
func (h *Histogram) Write(w io.Writer) error {
	if h.Bars < 1 {
		return fmt.Errorf("art: invalid number of bars %d", h.Bars)
	}
	if h.Height <= 0 || h.Length <= 0 {
		return fmt.Errorf("art: invalid histogram size %gx%g", h.Length, h.Height)
	}
	barWidth := h.Length / float64(h.Bars)
	fill := fmt.Sprintf(`fill="%s"`, h.Color)
	heights := h.barHeights()
	return render(w, func(canvas *svg.SVG) {
		canvas.Start(h.Length, h.Height)
		for i, bh := range heights {
			px := bh * h.Height
			canvas.Rect(float64(i)*barWidth, h.Height-px, barWidth, px, fill)
		}
		canvas.End()
	})
}
