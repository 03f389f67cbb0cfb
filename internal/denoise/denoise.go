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


// Package denoise defines the cleaning algorithm interface and its
// baseline implementation.
package denoise

import (
	"github.com/jdhp-sap/datapipe/internal/fits"
)

// Algorithm cleans a single event image. Apply returns an image of the
// same shape and type as its input. Params documents the algorithm
// settings for provenance in score reports.
type Algorithm interface {
	Name() string
	Params() map[string]interface{}
	Apply(img *fits.Image) (*fits.Image, error)
}

// Null is the identity baseline: it returns its input unchanged.
// Benchmarking it yields the reference scores all real algorithms are
// compared against.
type Null struct{}

func (Null) Name() string { return "null" }

func (Null) Params() map[string]interface{} { return map[string]interface{}{} }

func (Null) Apply(img *fits.Image) (*fits.Image, error) { return img, nil }
