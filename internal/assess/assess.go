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


// Package assess scores cleaned event images against their
// photoelectron reference.
package assess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/jdhp-sap/datapipe/internal/fits"
)

// Degenerate images cannot be scored; batch drivers skip them.
var (
	ErrEmptyReferenceImage = errors.New("reference image is empty")
	ErrEmptyOutputImage    = errors.New("cleaned output image is empty")
)

// Methods lists the supported benchmark methods.
var Methods = []string{"mse", "mpdspd", "sspd"}

// Assess scores the cleaned image against the reference with the given
// method and returns its sub-scores:
//
//	mse     mean squared pixel error
//	mpdspd  shape distance of the count-normalized images, and the
//	        relative total-counts error
//	sspd    root of the summed squared pixel differences, normalized by
//	        the reference counts
//
// NaN pixels (grid cells outside the camera) count as zero.
func Assess(cleaned, reference *fits.Image, method string) ([]float64, error) {
	if !cleaned.SameShape(reference) {
		return nil, fmt.Errorf("image shapes differ: %s vs %s",
			cleaned.DimensionsToString(), reference.DimensionsToString())
	}

	c := toFloat64(cleaned.Data)
	r := toFloat64(reference.Data)

	sumR := floats.Sum(r)
	sumC := floats.Sum(c)
	if absSum(r) == 0 {
		return nil, ErrEmptyReferenceImage
	}
	if absSum(c) == 0 {
		return nil, ErrEmptyOutputImage
	}

	switch method {
	case "mse":
		sum := 0.0
		for i := range c {
			d := c[i] - r[i]
			sum += d * d
		}
		return []float64{sum / float64(len(c))}, nil

	case "mpdspd":
		normC := append([]float64(nil), c...)
		normR := append([]float64(nil), r...)
		floats.Scale(1/sumC, normC)
		floats.Scale(1/sumR, normR)
		eShape := floats.Distance(normC, normR, 2)
		eEnergy := math.Abs(sumC-sumR) / sumR
		return []float64{eShape, eEnergy}, nil

	case "sspd":
		return []float64{floats.Distance(c, r, 2) / sumR}, nil

	default:
		return nil, fmt.Errorf("unknown benchmark method %q", method)
	}
}

// toFloat64 widens the pixel values, mapping NaN cells to zero.
func toFloat64(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if !math.IsNaN(float64(v)) {
			out[i] = float64(v)
		}
	}
	return out
}

func absSum(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += math.Abs(v)
	}
	return sum
}
