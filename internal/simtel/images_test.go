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


package simtel

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdhp-sap/datapipe/internal/camera"
	"github.com/jdhp-sap/datapipe/internal/fits"
)

func TestMergeChannelsSaturation(t *testing.T) {
	charges:=[][]float32{
		{10, 11}, // high gain
		{20, 21}, // low gain
	}
	adc:=[][][]uint16{
		{{4095, 0}, {4094, 0}}, // pixel 0 saturates exactly at the threshold
		{{0, 0}, {0, 0}},
	}
	out:=MergeChannels(charges, adc)
	if out[0]!=20 {
		t.Errorf("saturated pixel=%v; want low gain 20", out[0])
	}
	if out[1]!=11 {
		t.Errorf("unsaturated pixel=%v; want high gain 11", out[1])
	}
}

func TestMergeChannelsSingle(t *testing.T) {
	charges:=[][]float32{{1, 2, 3}}
	out:=MergeChannels(charges, [][][]uint16{{{0}, {0}, {0}}})
	for i,v:=range charges[0] {
		if out[i]!=v {
			t.Errorf("out[%d]=%v; want %v", i, out[i], v)
		}
	}
}

func TestGeneratorGridFormat(t *testing.T) {
	tel:=testTelescope(1, camera.LSTCam, 2)
	path:=filepath.Join(t.TempDir(), "run.simtel")
	writeTestRun(t, path, []*Telescope{tel}, []*Event{testEvent(tel)})

	cfg:=GeneratorConfig{Calibrator: DefaultCalibratorConfig()}
	gen, err:=NewGenerator(path, cfg, io.Discard)
	if err!=nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	set, err:=gen.Next()
	if err!=nil {
		t.Fatalf("Next: %v", err)
	}
	shapes:=[]struct{ name string; img *fits.Image; want []int32 }{
		{"input",     set.Input,     []int32{2,2}},
		{"reference", set.Reference, []int32{2,2}},
		{"adc sums",  set.ADCSums,   []int32{2,2,2}},
		{"pedestal",  set.Pedestal,  []int32{2,2,2}},
		{"gains",     set.Gains,     []int32{2,2,2}},
		{"pixel pos", set.PixelPos,  []int32{2,2,2}},
		{"mask",      set.PixelMask, []int32{2,2}},
	}
	for _,s:=range shapes {
		if s.img==nil {
			t.Errorf("%s image missing", s.name)
			continue
		}
		if !fits.EqualInt32Slice(s.img.Naxisn, s.want) {
			t.Errorf("%s Naxisn=%v; want %v", s.name, s.img.Naxisn, s.want)
		}
	}
	for i,v:=range []float32{0, 1, 2, 3} {
		if set.Reference.Data[i]!=v {
			t.Errorf("reference Data[%d]=%v; want %v", i, set.Reference.Data[i], v)
		}
	}

	if v,_:=set.Meta.Int("tel_id"); v!=1 {
		t.Errorf("tel_id=%d; want 1", v)
	}
	if v,_:=set.Meta.Int("event_id"); v!=42 {
		t.Errorf("event_id=%d; want 42", v)
	}
	if v,_:=set.Meta.Int("run_id"); v!=17 {
		t.Errorf("run_id=%d; want 17", v)
	}
	if q,_:=set.Meta.Quantity("mc_energy"); q.Value!=1.5 || q.Unit!="TeV" {
		t.Errorf("mc_energy=%v %s; want 1.5 TeV", q.Value, q.Unit)
	}

	if _, err:=gen.Next(); err!=io.EOF {
		t.Errorf("Next at end=%v; want io.EOF", err)
	}
}

func TestGeneratorCameraFormat(t *testing.T) {
	tel:=testTelescope(1, camera.LSTCam, 2)
	path:=filepath.Join(t.TempDir(), "run.simtel")
	writeTestRun(t, path, []*Telescope{tel}, []*Event{testEvent(tel)})

	cfg:=GeneratorConfig{CameraFormat: true, Calibrator: DefaultCalibratorConfig()}
	gen, err:=NewGenerator(path, cfg, io.Discard)
	if err!=nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	set, err:=gen.Next()
	if err!=nil {
		t.Fatalf("Next: %v", err)
	}
	if !fits.EqualInt32Slice(set.Input.Naxisn, []int32{4}) {
		t.Errorf("input Naxisn=%v; want [4]", set.Input.Naxisn)
	}
	if !fits.EqualInt32Slice(set.ADCSums.Naxisn, []int32{4, 2}) {
		t.Errorf("adc sums Naxisn=%v; want [4 2]", set.ADCSums.Naxisn)
	}
	if !fits.EqualInt32Slice(set.PixelPos.Naxisn, []int32{4, 2}) {
		t.Errorf("pixel pos Naxisn=%v; want [4 2]", set.PixelPos.Naxisn)
	}
	if !fits.EqualInt32Slice(set.PixelMask.Naxisn, []int32{4}) {
		t.Errorf("mask Naxisn=%v; want [4]", set.PixelMask.Naxisn)
	}
	for i,v:=range set.PixelMask.Data {
		if v!=1 {
			t.Errorf("mask[%d]=%v; want 1", i, v)
		}
	}

	// camera format records must survive the save/load cycle
	benchPath:=filepath.Join(t.TempDir(), "bench.fits")
	if err:=fits.SaveBenchmark(set, benchPath); err!=nil {
		t.Fatalf("SaveBenchmark: %v", err)
	}
	got, err:=fits.LoadBenchmark(benchPath, io.Discard)
	if err!=nil {
		t.Fatalf("LoadBenchmark: %v", err)
	}
	if !fits.EqualInt32Slice(got.Input.Naxisn, []int32{4}) {
		t.Errorf("loaded input Naxisn=%v; want [4]", got.Input.Naxisn)
	}
	for i,v:=range set.Reference.Data {
		if got.Reference.Data[i]!=v {
			t.Errorf("loaded reference Data[%d]=%v; want %v", i, got.Reference.Data[i], v)
		}
	}
	if v,_:=got.Meta.Int("tel_id"); v!=1 {
		t.Errorf("loaded tel_id=%d; want 1", v)
	}
}

func TestGeneratorFilters(t *testing.T) {
	tel1:=testTelescope(1, camera.LSTCam, 2)
	tel2:=testTelescope(2, camera.FlashCam, 1)
	ev:=testEvent(tel1)
	ev.Tels=append(ev.Tels, testData(tel2))
	path:=filepath.Join(t.TempDir(), "run.simtel")
	writeTestRun(t, path, []*Telescope{tel1, tel2}, []*Event{ev})

	cfg:=GeneratorConfig{TelescopeIDs: []int{2}, Calibrator: DefaultCalibratorConfig()}
	gen, err:=NewGenerator(path, cfg, io.Discard)
	if err!=nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	set, err:=gen.Next()
	if err!=nil {
		t.Fatalf("Next: %v", err)
	}
	if v,_:=set.Meta.Int("tel_id"); v!=2 {
		t.Errorf("tel_id=%d; want 2", v)
	}
	if v,_:=set.Meta.String("cam_id"); v!="FlashCam" {
		t.Errorf("cam_id=%q; want \"FlashCam\"", v)
	}
	if _, err:=gen.Next(); err!=io.EOF {
		t.Errorf("Next at end=%v; want io.EOF", err)
	}
}

func TestGeneratorMaxImages(t *testing.T) {
	tel:=testTelescope(1, camera.LSTCam, 2)
	path:=filepath.Join(t.TempDir(), "run.simtel")
	writeTestRun(t, path, []*Telescope{tel}, []*Event{testEvent(tel), testEvent(tel)})

	cfg:=GeneratorConfig{MaxImages: 1, Calibrator: DefaultCalibratorConfig()}
	gen, err:=NewGenerator(path, cfg, io.Discard)
	if err!=nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	if _, err:=gen.Next(); err!=nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err:=gen.Next(); err!=io.EOF {
		t.Errorf("Next past cap=%v; want io.EOF", err)
	}
}

func TestGeneratorSkipsUnknownCamera(t *testing.T) {
	tel:=testTelescope(1, camera.Model("SCTCam"), 1)
	path:=filepath.Join(t.TempDir(), "run.simtel")
	writeTestRun(t, path, []*Telescope{tel}, []*Event{testEvent(tel)})

	logBuf:=&bytes.Buffer{}
	gen, err:=NewGenerator(path, GeneratorConfig{Calibrator: DefaultCalibratorConfig()}, logBuf)
	if err!=nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	if _, err:=gen.Next(); err!=io.EOF {
		t.Errorf("Next=%v; want io.EOF", err)
	}
	if !strings.Contains(logBuf.String(), "skipping telescope 1") {
		t.Errorf("log=%q; want skip warning", logBuf.String())
	}
}
