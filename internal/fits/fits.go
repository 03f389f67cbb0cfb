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
	"fmt"
	"math"
	"strings"
)

// A FITS image HDU.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	FileName string      // Original file name, if any, for log output.
	HDUIndex int         // Position of this HDU in the file, counted from 0.

	Header Header        // The header with all keys, values, comments, history entries etc.
	Bitpix int32         // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float32       // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float32       // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	                     // Helps implement unsigned values with signed data types.
	Naxisn []int32       // Axis dimensions. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32         // Number of pixels in the image. Product of Naxisn[]

	IsImage bool         // True for the primary HDU and IMAGE extensions; false for tables

	Data   []float32     // The image data
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header:  NewHeader(),
		Bscale:  1,
		IsImage: true,
	}
}

// Creates a FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float32) *Image {
	numPixels:=int32(1)
	for _,naxis:=range(naxisn) {
		numPixels*=naxis
	}
	if data==nil {
		data=make([]float32, numPixels)
	}
	return &Image{
		FileName: "",
		Header:   NewHeader(),
		Bitpix:   -32,
		Bzero:    0,
		Bscale:   1,
		Naxisn:   append([]int32(nil), naxisn...), // clone slice
		Pixels:   numPixels,
		IsImage:  true,
		Data:     data,
	}
}

// Creates a FITS image with the same shape as the given image. New data array will be allocated
func NewImageFromImage(img *Image) *Image {
	data:=make([]float32, img.Pixels)
	return &Image{
		FileName: img.FileName,
		HDUIndex: img.HDUIndex,
		Header:   img.Header,
		Bitpix:   img.Bitpix,
		Bzero:    img.Bzero,
		Bscale:   img.Bscale,
		Naxisn:   append([]int32(nil), img.Naxisn...), // clone slice
		Pixels:   img.Pixels,
		IsImage:  true,
		Data:     data,
	}
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float32
	Strings  map[string]string
	Dates    map[string]string
	KeyComments map[string]string // per-key comment text, carries physical units
	Comments []string
	History  []string
	End      bool
	Length   int32

	continueKey string // string key awaiting CONTINUE cards while parsing
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:   make(map[string]bool),
		Ints:    make(map[string]int32),
		Floats:  make(map[string]float32),
		Strings: make(map[string]string),
		Dates:   make(map[string]string),
		KeyComments: make(map[string]string),
		Comments:make([]string,0),
		History: make([]string,0),
		End:     false,
	}
}

const fitsBlockSize int  = 2880 // Block size of FITS header and data units
const HeaderLineSize int =   80 // Line size of a FITS header

func (f *Image) DimensionsToString() string {
	b:=strings.Builder{}
	for i,naxis:=range(f.Naxisn) {
		if i>0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualInt32Slice(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// SameShape tells whether both images have identical axis dimensions.
func (f *Image) SameShape(other *Image) bool {
	return EqualInt32Slice(f.Naxisn, other.Naxisn)
}

// NaN-aware sum of all pixel values. NaN entries are skipped.
func (f *Image) SumIgnoreNaN() float64 {
	sum:=float64(0)
	for _,v:=range f.Data {
		if !math.IsNaN(float64(v)) { sum+=float64(v) }
	}
	return sum
}

// NaN-aware minimum of all pixel values. Returns NaN for all-NaN data.
func (f *Image) MinIgnoreNaN() float32 {
	min:=float32(math.NaN())
	for _,v:=range f.Data {
		if math.IsNaN(float64(v)) { continue }
		if math.IsNaN(float64(min)) || v<min { min=v }
	}
	return min
}

// NaN-aware maximum of all pixel values. Returns NaN for all-NaN data.
func (f *Image) MaxIgnoreNaN() float32 {
	max:=float32(math.NaN())
	for _,v:=range f.Data {
		if math.IsNaN(float64(v)) { continue }
		if math.IsNaN(float64(max)) || v>max { max=v }
	}
	return max
}
