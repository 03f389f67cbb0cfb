// Copyright (C) 2020 The datapipe authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package plotting

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jdhp-sap/datapipe/internal/score"
)

// Curve is one score file plotted across the energy buckets.
type Curve struct {
	Label   string
	Buckets [4][]float64
}

// HistOptions shapes the histogram grid.
type HistOptions struct {
	Title string // overall title, drawn on the first panel
	Metric string
	LogX, LogY bool
	Bins int // defaults to 30
}

// SaveEnergyHistograms renders a 2x2 grid of score histograms, one
// panel per decade of simulated energy, one curve per score file.
// Panel legends carry the sample count and mean of every curve.
func SaveEnergyHistograms(curves []Curve, opts HistOptions, fileName string) error {
	if len(curves) == 0 {
		return fmt.Errorf("no curves to plot")
	}
	bins := opts.Bins
	if bins <= 0 {
		bins = 30
	}

	plots := [][]*plot.Plot{
		{nil, nil},
		{nil, nil},
	}
	for bucket := 0; bucket < 4; bucket++ {
		p := plot.New()
		applyFonts(p)
		p.Title.Text = bucketTitle(bucket)
		if bucket == 0 && opts.Title != "" {
			p.Title.Text = opts.Title + "\n" + p.Title.Text
		}
		p.X.Label.Text = opts.Metric
		p.Y.Label.Text = "events"
		p.Legend.Top = true
		p.Legend.TextStyle.Font.Typeface = "Liberation"
		p.Legend.TextStyle.Font.Variant = "Sans"
		p.Legend.TextStyle.Font.Size = vg.Points(9)

		empty := true
		logXOk := opts.LogX
		for i, curve := range curves {
			vals := curve.Buckets[bucket]
			if len(vals) == 0 {
				continue
			}
			empty = false
			for _, v := range vals {
				if v <= 0 {
					logXOk = false
				}
			}
			h, err := plotter.NewHist(plotter.Values(vals), bins)
			if err != nil {
				return err
			}
			h.FillColor = nil
			h.LineStyle.Color = plotutil.Color(i)
			h.LineStyle.Width = vg.Points(1.5)
			h.LogY = opts.LogY
			p.Add(h)
			p.Legend.Add(fmt.Sprintf("%s (n=%d, mean=%.3g)", curve.Label, len(vals), stat.Mean(vals, nil)), h)
		}
		if !empty {
			if logXOk {
				p.X.Scale = plot.LogScale{}
				p.X.Tick.Marker = plot.LogTicks{Prec: -1}
			}
			if opts.LogY {
				p.Y.Scale = plot.LogScale{}
				p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
				p.Y.Min = 0.5
			}
		}
		plots[bucket/2][bucket%2] = p
	}

	return saveTiled(plots, 11*vg.Inch, 8*vg.Inch, fileName)
}

func bucketTitle(bucket int) string {
	lo, hi := score.EnergyDecades[bucket][0], score.EnergyDecades[bucket][1]
	return fmt.Sprintf("%g to %g TeV", lo, hi)
}
