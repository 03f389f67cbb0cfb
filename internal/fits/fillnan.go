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


package fits

import (
	"errors"
	"math"

	"github.com/valyala/fastrand"
)

// Sampler produces replacement values for NaN pixels.
type Sampler interface {
	Sample() float32
}

// EmpiricalSampler draws values from an observed sample population,
// approximating its distribution by inverse transform sampling.
type EmpiricalSampler struct {
	samples []float32
	rng     fastrand.RNG
}

// NewEmpiricalSampler builds a sampler over the non-NaN entries of the
// given values. Fails on an empty population.
func NewEmpiricalSampler(values []float32) (*EmpiricalSampler, error) {
	samples:=make([]float32, 0, len(values))
	for _,v:=range values {
		if !math.IsNaN(float64(v)) { samples=append(samples, v) }
	}
	if len(samples)==0 {
		return nil, errors.New("empirical sampler needs at least one finite value")
	}
	return &EmpiricalSampler{samples: samples}, nil
}

func (s *EmpiricalSampler) Sample() float32 {
	return s.samples[s.rng.Uint32n(uint32(len(s.samples)))]
}

// FillNaN replaces NaN pixels in place. A nil sampler fills with zeros.
// Returns a mask holding 1 at every replaced position.
func FillNaN(img *Image, sampler Sampler) (mask []float32) {
	mask=make([]float32, len(img.Data))
	for i,v:=range img.Data {
		if !math.IsNaN(float64(v)) { continue }
		if sampler==nil {
			img.Data[i]=0
		} else {
			img.Data[i]=sampler.Sample()
		}
		mask[i]=1
	}
	return mask
}
