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

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/jdhp-sap/datapipe/internal/fits"
)

// imageGrid adapts a 2-D camera image to the heat map grid interface.
type imageGrid struct {
	img *fits.Image
}

func (g imageGrid) Dims() (c, r int) { return int(g.img.Naxisn[0]), int(g.img.Naxisn[1]) }
func (g imageGrid) X(c int) float64  { return float64(c) }
func (g imageGrid) Y(r int) float64  { return float64(r) }
func (g imageGrid) Z(c, r int) float64 {
	return float64(g.img.Data[r*int(g.img.Naxisn[0])+c])
}

// SaveComparison renders the given 2-D images side by side as heat maps
// sharing one intensity palette, typically input, reference and cleaned
// output. The file extension picks PDF or PNG.
func SaveComparison(images []*fits.Image, titles []string, fileName string) error {
	if len(images) == 0 || len(images) != len(titles) {
		return fmt.Errorf("mismatched images (%d) and titles (%d)", len(images), len(titles))
	}
	pal := NewGradientPalette(255)

	row := make([]*plot.Plot, len(images))
	for i, img := range images {
		if len(img.Naxisn) != 2 {
			return &fits.WrongDimensionError{Naxis: len(img.Naxisn), Want: "2"}
		}
		p := plot.New()
		applyFonts(p)
		p.Title.Text = titles[i]
		p.X.Label.Text = "pixel column"
		p.Y.Label.Text = "pixel row"
		p.Add(plotter.NewHeatMap(imageGrid{img: img}, pal))
		row[i] = p
	}

	width := vg.Length(len(images)) * 4 * vg.Inch
	return saveTiled([][]*plot.Plot{row}, width, 4*vg.Inch, fileName)
}
