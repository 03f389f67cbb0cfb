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
	"math"
	"testing"
)

// 2x2 square grid, pixels in readout order bottom-left, bottom-right,
// top-left, top-right.
func squareGeometry(t *testing.T) *Geometry {
	t.Helper()
	g, err:=NewGeometry(FlashCam,
		[]float32{0, 0.1, 0, 0.1},
		[]float32{0, 0, 0.1, 0.1})
	if err!=nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	return g
}

func TestGeometryGrid(t *testing.T) {
	g:=squareGeometry(t)
	if g.Rows!=2 || g.Cols!=2 {
		t.Errorf("grid=%dx%d; want 2x2", g.Rows, g.Cols)
	}
	if g.NumPixels()!=4 {
		t.Errorf("NumPixels=%d; want 4", g.NumPixels())
	}
}

func TestGeometryRoundTrip(t *testing.T) {
	g:=squareGeometry(t)
	data:=[]float32{10, 20, 30, 40}
	img, mask, err:=g.To2D(data)
	if err!=nil {
		t.Fatalf("To2D: %v", err)
	}
	want:=[]float32{10, 20, 30, 40} // row-major, row 0 is y=0
	for i:=range want {
		if img[i]!=want[i] {
			t.Errorf("img[%d]=%v; want %v", i, img[i], want[i])
		}
		if mask[i]!=1 {
			t.Errorf("mask[%d]=%v; want 1", i, mask[i])
		}
	}

	back, err:=g.To1D(img)
	if err!=nil {
		t.Fatalf("To1D: %v", err)
	}
	for i:=range data {
		if back[i]!=data[i] {
			t.Errorf("back[%d]=%v; want %v", i, back[i], data[i])
		}
	}
}

func TestGeometryUnbackedCells(t *testing.T) {
	// L-shaped layout: cell (1,1) has no pixel
	g, err:=NewGeometry(FlashCam,
		[]float32{0, 1, 0},
		[]float32{0, 0, 1})
	if err!=nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	img, mask, err:=g.To2D([]float32{1, 2, 3})
	if err!=nil {
		t.Fatalf("To2D: %v", err)
	}
	if !math.IsNaN(float64(img[3])) {
		t.Errorf("img[3]=%v; want NaN", img[3])
	}
	if mask[3]!=0 {
		t.Errorf("mask[3]=%v; want 0", mask[3])
	}

	xs, ys:=g.PositionPlanes()
	if !math.IsNaN(float64(xs[3])) || !math.IsNaN(float64(ys[3])) {
		t.Errorf("position planes at unbacked cell=(%v,%v); want NaN", xs[3], ys[3])
	}
	if xs[1]!=1 || ys[1]!=0 {
		t.Errorf("position planes at cell 1=(%v,%v); want (1,0)", xs[1], ys[1])
	}
}

func TestGeometryNeighbors(t *testing.T) {
	g:=squareGeometry(t)
	// on a 2x2 square grid diagonals are within 1.5 pitches
	for pix:=0; pix<4; pix++ {
		if n:=len(g.Neighbors(pix)); n!=3 {
			t.Errorf("pixel %d has %d neighbors; want 3", pix, n)
		}
	}
}

func TestGeometryCollision(t *testing.T) {
	_, err:=NewGeometry(FlashCam,
		[]float32{0, 0, 1},
		[]float32{0, 0, 1})
	if err==nil {
		t.Errorf("NewGeometry with duplicate positions=nil error; want error")
	}
}

func TestTo2DWrongLength(t *testing.T) {
	g:=squareGeometry(t)
	if _, _, err:=g.To2D([]float32{1, 2}); err==nil {
		t.Errorf("To2D with 2 values=nil error; want error")
	}
}
