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


// Package plotting renders comparison heatmaps and score histograms.
package plotting

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
)

type gradient struct {
	colors []color.Color
}

func (g gradient) Colors() []color.Color { return g.colors }

// NewGradientPalette interpolates a black-violet-orange-white intensity
// ramp with n perceptually blended steps.
func NewGradientPalette(n int) palette.Palette {
	stops := []colorful.Color{
		{R: 0.00, G: 0.00, B: 0.00},
		{R: 0.35, G: 0.00, B: 0.55},
		{R: 0.90, G: 0.45, B: 0.05},
		{R: 1.00, G: 1.00, B: 1.00},
	}
	if n < 2 {
		n = 2
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1) * float64(len(stops)-1)
		seg := int(t)
		if seg >= len(stops)-1 {
			seg = len(stops) - 2
		}
		colors[i] = stops[seg].BlendLuv(stops[seg+1], t-float64(seg)).Clamped()
	}
	return gradient{colors: colors}
}
