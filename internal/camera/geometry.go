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


package camera

import (
	"fmt"
	"math"
)

// Geometry maps the flat per-pixel readout order of a camera onto a
// regular 2-D grid derived from the physical pixel positions.
// Grid cells not backed by a physical pixel stay NaN in converted
// images; the companion mask marks the backed cells with 1.
type Geometry struct {
	Cam  Model
	PixX []float32 // physical x position per pixel, meters
	PixY []float32 // physical y position per pixel, meters

	Rows, Cols int

	cells     []int   // pixel index -> row*Cols+col
	neighbors [][]int // pixel index -> adjacent pixel indices
}

// NewGeometry derives a grid geometry from per-pixel positions.
// Both coordinate slices must have the same nonzero length, and the
// positions must snap onto a regular grid without collisions.
func NewGeometry(cam Model, pixX, pixY []float32) (*Geometry, error) {
	if len(pixX)==0 || len(pixX)!=len(pixY) {
		return nil, fmt.Errorf("camera %s: malformed pixel positions (%d x, %d y)", cam, len(pixX), len(pixY))
	}

	minX, pitchX:=gridAxis(pixX)
	minY, pitchY:=gridAxis(pixY)

	g:=&Geometry{
		Cam:  cam,
		PixX: append([]float32(nil), pixX...),
		PixY: append([]float32(nil), pixY...),
	}
	g.cells=make([]int, len(pixX))

	cols, rows:=0, 0
	colIdx:=make([]int, len(pixX))
	rowIdx:=make([]int, len(pixX))
	for i:=range pixX {
		col:=int(math.Round(float64((pixX[i]-minX)/pitchX)))
		row:=int(math.Round(float64((pixY[i]-minY)/pitchY)))
		colIdx[i], rowIdx[i] = col, row
		if col>=cols { cols=col+1 }
		if row>=rows { rows=row+1 }
	}
	g.Rows, g.Cols = rows, cols

	taken:=make(map[int]int, len(pixX))
	for i:=range pixX {
		cell:=rowIdx[i]*cols+colIdx[i]
		if prev, ok:=taken[cell]; ok {
			return nil, fmt.Errorf("camera %s: pixels %d and %d collide on grid cell %d", cam, prev, i, cell)
		}
		taken[cell]=i
		g.cells[i]=cell
	}

	g.buildNeighbors(pitchX, pitchY)
	return g, nil
}

// gridAxis returns the axis origin and the grid pitch, i.e. the smallest
// positive gap between pixel coordinates on that axis.
func gridAxis(coords []float32) (min, pitch float32) {
	sorted:=append([]float32(nil), coords...)
	for i:=1; i<len(sorted); i++ {
		for j:=i; j>0 && sorted[j]<sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	min=sorted[0]
	pitch=float32(1)
	found:=false
	for i:=1; i<len(sorted); i++ {
		gap:=sorted[i]-sorted[i-1]
		if gap>1e-6 && (!found || gap<pitch) {
			pitch=gap
			found=true
		}
	}
	return min, pitch
}

// Pixels within 1.5 grid pitches count as adjacent, which covers the
// 4-neighborhood plus diagonal packing of offset rows.
func (g *Geometry) buildNeighbors(pitchX, pitchY float32) {
	limit:=1.5*pitchX
	if pitchY>pitchX { limit=1.5*pitchY }
	limitSq:=limit*limit

	g.neighbors=make([][]int, len(g.PixX))
	for i:=range g.PixX {
		for j:=i+1; j<len(g.PixX); j++ {
			dx:=g.PixX[i]-g.PixX[j]
			dy:=g.PixY[i]-g.PixY[j]
			if dx*dx+dy*dy<=limitSq {
				g.neighbors[i]=append(g.neighbors[i], j)
				g.neighbors[j]=append(g.neighbors[j], i)
			}
		}
	}
}

// NumPixels returns the number of physical pixels.
func (g *Geometry) NumPixels() int { return len(g.PixX) }

// Neighbors returns the indices of the pixels adjacent to the given one.
func (g *Geometry) Neighbors(pix int) []int { return g.neighbors[pix] }

// To2D injects per-pixel values into the grid. Unbacked cells are NaN
// in the image and 0 in the mask.
func (g *Geometry) To2D(data []float32) (img, mask []float32, err error) {
	if len(data)!=len(g.cells) {
		return nil, nil, fmt.Errorf("camera %s: %d values for %d pixels", g.Cam, len(data), len(g.cells))
	}
	img=make([]float32, g.Rows*g.Cols)
	mask=make([]float32, g.Rows*g.Cols)
	nan:=float32(math.NaN())
	for i:=range img {
		img[i]=nan
	}
	for i, cell:=range g.cells {
		img[cell]=data[i]
		mask[cell]=1
	}
	return img, mask, nil
}

// To1D extracts per-pixel values from a grid image, inverting To2D.
func (g *Geometry) To1D(img []float32) ([]float32, error) {
	if len(img)!=g.Rows*g.Cols {
		return nil, fmt.Errorf("camera %s: image has %d cells, grid has %dx%d", g.Cam, len(img), g.Rows, g.Cols)
	}
	data:=make([]float32, len(g.cells))
	for i, cell:=range g.cells {
		data[i]=img[cell]
	}
	return data, nil
}

// PositionPlanes returns the grid-shaped x and y coordinate planes,
// NaN on unbacked cells.
func (g *Geometry) PositionPlanes() (xs, ys []float32) {
	xs=make([]float32, g.Rows*g.Cols)
	ys=make([]float32, g.Rows*g.Cols)
	nan:=float32(math.NaN())
	for i:=range xs {
		xs[i], ys[i] = nan, nan
	}
	for i, cell:=range g.cells {
		xs[cell]=g.PixX[i]
		ys[cell]=g.PixY[i]
	}
	return xs, ys
}
