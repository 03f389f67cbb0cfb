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


package main

import (
	"path/filepath"
	"testing"

	"github.com/jdhp-sap/datapipe/internal/camera"
)

func TestParseIntList(t *testing.T) {
	got, err:=parseIntList("1, 7,42")
	if err!=nil {
		t.Fatalf("parseIntList: %v", err)
	}
	want:=[]int{1, 7, 42}
	if len(got)!=len(want) {
		t.Fatalf("len=%d; want %d", len(got), len(want))
	}
	for i:=range want {
		if got[i]!=want[i] {
			t.Errorf("got[%d]=%d; want %d", i, got[i], want[i])
		}
	}

	if got, err:=parseIntList(""); err!=nil || got!=nil {
		t.Errorf("parseIntList(\"\")=%v, %v; want nil, nil", got, err)
	}
	if _, err:=parseIntList("1,x"); err==nil {
		t.Errorf("parseIntList(\"1,x\")=nil error; want error")
	}
}

func TestParseModelList(t *testing.T) {
	got, err:=parseModelList("LSTCam, FlashCam")
	if err!=nil {
		t.Fatalf("parseModelList: %v", err)
	}
	if len(got)!=2 || got[0]!=camera.LSTCam || got[1]!=camera.FlashCam {
		t.Errorf("got=%v; want [LSTCam FlashCam]", got)
	}
	if _, err:=parseModelList("SCTCam"); err==nil {
		t.Errorf("parseModelList(unknown)=nil error; want error")
	}
}

func TestBenchmarkName(t *testing.T) {
	got:=benchmarkName(filepath.Join("runs", "gamma.simtel.gz"), 4, 31)
	want:=filepath.Join("runs", "gamma_TEL004_EV00031.fits")
	if got!=want {
		t.Errorf("benchmarkName=%q; want %q", got, want)
	}
}
