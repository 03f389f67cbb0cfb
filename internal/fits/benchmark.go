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
	"io"
	"os"
)

// Version tag of the benchmark file layout written by SaveBenchmark.
const BenchmarkVersion = 1

// Quantity is a physical value tagged with its unit.
type Quantity struct {
	Value float64
	Unit  string
}

// Meta holds the benchmark metadata of an event image.
// Values are int, float64, string or Quantity.
type Meta map[string]interface{}

func (m Meta) Int(key string) (int, bool) {
	v, ok:=m[key].(int)
	return v, ok
}

func (m Meta) String(key string) (string, bool) {
	v, ok:=m[key].(string)
	return v, ok
}

func (m Meta) Quantity(key string) (Quantity, bool) {
	v, ok:=m[key].(Quantity)
	return v, ok
}

// BenchmarkSet bundles the seven image planes of a benchmark file, in
// their HDU order. Grid-format sets map pixels onto the 2-D camera
// grid; camera-format sets keep the flat 1-D readout order, dropping
// one axis from every plane.
type BenchmarkSet struct {
	Input     *Image // HDU 0, calibrated input image (grid 2-D, camera 1-D)
	Reference *Image // HDU 1, photoelectron reference image (grid 2-D, camera 1-D)
	ADCSums   *Image // HDU 2, raw ADC sums, one plane per gain channel (grid 3-D, camera 2-D)
	Pedestal  *Image // HDU 3, pedestal, one plane per gain channel (grid 3-D, camera 2-D)
	Gains     *Image // HDU 4, gains, one plane per gain channel (grid 3-D, camera 2-D)
	PixelPos  *Image // HDU 5, pixel positions, x and y planes (grid 3-D, camera 2-D)
	PixelMask *Image // HDU 6, geometry mask (grid 2-D, camera 1-D all ones)

	Meta Meta
}

// Axis counts of the seven planes per layout, keyed by the input image
// dimensionality.
var benchmarkAxes = map[int][7]int{
	2: {2, 2, 3, 3, 3, 3, 2}, // grid format
	1: {1, 1, 2, 2, 2, 2, 1}, // camera format
}

// Benchmark metadata keys and their FITS header cards. Card names are
// limited to 8 characters, hence the short forms.
var metaCards = []struct {
	key  string // metadata key
	card string // FITS header keyword
	kind byte   // 'i' int, 's' string, 'q' quantity
}{
	{"version",                     "VERSION",  'i'},
	{"cam_id",                      "CAM_ID",   's'},
	{"tel_id",                      "TEL_ID",   'i'},
	{"event_id",                    "EVENT_ID", 'i'},
	{"run_id",                      "RUN_ID",   'i'},
	{"simtel",                      "SIMTEL",   's'},
	{"num_tel_with_trigger",        "TEL_TRIG", 'i'},
	{"num_tel_with_data",           "TEL_DATA", 'i'},
	{"ev_count",                    "COUNT",    'i'},
	{"mc_energy",                   "ENERGY",   'q'},
	{"mc_azimuth",                  "MC_AZ",    'q'},
	{"mc_altitude",                 "MC_ALT",   'q'},
	{"mc_core_x",                   "MC_COREX", 'q'},
	{"mc_core_y",                   "MC_COREY", 'q'},
	{"mc_height_first_interaction", "MC_HFI",   'q'},
	{"optical_foclen",              "FOCLEN",   'q'},
	{"tel_pos_x",                   "TEL_POSX", 'q'},
	{"tel_pos_y",                   "TEL_POSY", 'q'},
	{"tel_pos_z",                   "TEL_POSZ", 'q'},
}

// SaveBenchmark writes the seven image planes and the metadata to a FITS
// file with the given filename, creating or truncating it as necessary.
func SaveBenchmark(set *BenchmarkSet, fileName string) error {
	inputAxes:=0
	if set.Input!=nil { inputAxes=len(set.Input.Naxisn) }
	wantAxes, ok:=benchmarkAxes[inputAxes]
	if !ok {
		return &WrongDimensionError{Naxis: inputAxes, Want: "1 or 2"}
	}
	planes:=[]*Image{set.Input, set.Reference, set.ADCSums, set.Pedestal, set.Gains, set.PixelPos, set.PixelMask}
	for i, img:=range planes {
		if img==nil || len(img.Naxisn)!=wantAxes[i] {
			naxis:=0
			if img!=nil { naxis=len(img.Naxisn) }
			return &WrongDimensionError{Naxis: naxis, Want: fmt.Sprintf("%d", wantAxes[i])}
		}
	}

	// metadata goes into the primary header; the pixel data is shared
	// with the caller, only the header is rebuilt
	primary:=*set.Input
	primary.Header=NewHeader()
	primary.Header.Ints["VERSION"]=BenchmarkVersion
	for _, mc:=range metaCards {
		val, ok:=set.Meta[mc.key]
		if !ok { continue }
		switch mc.kind {
		case 'i':
			if v, ok:=val.(int); ok { primary.Header.Ints[mc.card]=int32(v) }
		case 's':
			if v, ok:=val.(string); ok { primary.Header.Strings[mc.card]=v }
		case 'q':
			if q, ok:=val.(Quantity); ok {
				primary.Header.Floats[mc.card]=float32(q.Value)
				primary.Header.KeyComments[mc.card]=q.Unit
			}
		}
	}

	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()

	if err=writeHDU(f, &primary, true); err!=nil { return err }
	for _, ext:=range []*Image{set.Reference, set.ADCSums, set.Pedestal, set.Gains, set.PixelPos, set.PixelMask} {
		img:=*ext
		img.Header=NewHeader()
		if err=writeHDU(f, &img, false); err!=nil { return err }
	}
	return nil
}

// LoadBenchmark reads a benchmark FITS file and reconstructs the image
// planes and the metadata, including derived photoelectron statistics.
// Files that do not follow the expected layout yield WrongFileStructureError.
func LoadBenchmark(fileName string, logWriter io.Writer) (*BenchmarkSet, error) {
	hdus, err:=Open(fileName, logWriter)
	if err!=nil { return nil, err }

	if len(hdus)!=7 {
		return nil, &WrongFileStructureError{FilePath: fileName, Reason: fmt.Sprintf("expected 7 HDUs, got %d", len(hdus))}
	}
	wantAxes, ok:=benchmarkAxes[len(hdus[0].Naxisn)]
	if !ok {
		return nil, &WrongFileStructureError{FilePath: fileName,
			Reason: fmt.Sprintf("HDU 0 has %d axes, expected 1 or 2", len(hdus[0].Naxisn))}
	}
	for index, want:=range wantAxes {
		if !hdus[index].IsImage {
			return nil, &WrongFileStructureError{FilePath: fileName, Reason: fmt.Sprintf("HDU %d is not an image", index)}
		}
		if len(hdus[index].Naxisn)!=want {
			return nil, &WrongFileStructureError{FilePath: fileName,
				Reason: fmt.Sprintf("HDU %d has %d axes, expected %d", index, len(hdus[index].Naxisn), want)}
		}
	}
	version:=hdus[0].Header.Ints["VERSION"]
	if version!=BenchmarkVersion {
		return nil, &WrongFileStructureError{FilePath: fileName, Reason: fmt.Sprintf("unsupported file version %d", version)}
	}

	set:=&BenchmarkSet{
		Input:     hdus[0],
		Reference: hdus[1],
		ADCSums:   hdus[2],
		Pedestal:  hdus[3],
		Gains:     hdus[4],
		PixelPos:  hdus[5],
		PixelMask: hdus[6],
		Meta:      Meta{},
	}
	hdr:=&hdus[0].Header
	for _, mc:=range metaCards {
		switch mc.kind {
		case 'i':
			if v, ok:=hdr.Ints[mc.card]; ok { set.Meta[mc.key]=int(v) }
		case 's':
			if v, ok:=hdr.Strings[mc.card]; ok { set.Meta[mc.key]=v }
		case 'q':
			if v, ok:=hdr.Floats[mc.card]; ok {
				set.Meta[mc.key]=Quantity{Value: float64(v), Unit: hdr.KeyComments[mc.card]}
			}
		}
	}
	set.Meta["file_path"]=fileName
	set.Meta["npe"]=set.Reference.SumIgnoreNaN()
	set.Meta["min_npe"]=float64(set.Reference.MinIgnoreNaN())
	set.Meta["max_npe"]=float64(set.Reference.MaxIgnoreNaN())

	return set, nil
}
