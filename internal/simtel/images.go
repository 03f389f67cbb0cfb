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
	"fmt"
	"io"

	"github.com/jdhp-sap/datapipe/internal/camera"
	"github.com/jdhp-sap/datapipe/internal/fits"
)

// HighGainSaturation is the ADC count at which the 12-bit high gain
// channel saturates.
const HighGainSaturation = 4095

// MergeChannels combines dual-channel charges into a single image.
// Pixels whose raw high gain peak reaches the saturation count take the
// low gain charge, all others the high gain charge. A peak of exactly
// 4095 already counts as saturated. Single-channel input passes through.
func MergeChannels(charges [][]float32, adc [][][]uint16) []float32 {
	if len(charges) == 1 {
		return charges[0]
	}
	out := make([]float32, len(charges[0]))
	for pix := range out {
		peak := uint16(0)
		for _, v := range adc[0][pix] {
			if v > peak {
				peak = v
			}
		}
		hi, lo := charges[0][pix], charges[1][pix]
		if peak >= HighGainSaturation {
			hi = 0
		}
		if peak < HighGainSaturation {
			lo = 0
		}
		out[pix] = hi + lo
	}
	return out
}

// GeneratorConfig selects and shapes the records produced from a run.
type GeneratorConfig struct {
	TelescopeIDs []int          // keep only these telescopes; empty keeps all
	EventIDs     []int          // keep only these events; empty keeps all
	Cameras      []camera.Model // keep only these camera models; empty keeps all
	MaxImages    int            // stop after this many records if positive
	CameraFormat bool           // keep the 1-D readout order instead of the 2-D grid
	Calibrator   CalibratorConfig
}

// Generator turns the telescope readouts of a run into benchmark image
// records, one per selected telescope per selected event.
type Generator struct {
	src *Source
	cal *Calibrator
	cfg GeneratorConfig

	log     io.Writer
	cur     *Event
	telIdx  int
	count   int
	evCount int
}

// NewGenerator opens the run file and prepares record extraction.
func NewGenerator(fileName string, cfg GeneratorConfig, logWriter io.Writer) (*Generator, error) {
	cal, err := NewCalibrator(cfg.Calibrator)
	if err != nil {
		return nil, err
	}
	src, err := OpenSource(fileName)
	if err != nil {
		return nil, err
	}
	return &Generator{src: src, cal: cal, cfg: cfg, log: logWriter}, nil
}

// Close releases the underlying run file. Safe to call more than once.
func (g *Generator) Close() error { return g.src.Close() }

// Next produces the next record. Returns io.EOF when the run is
// exhausted or the image cap is reached. Telescopes with an unsupported
// camera are skipped with a log note.
func (g *Generator) Next() (*fits.BenchmarkSet, error) {
	if g.cfg.MaxImages > 0 && g.count >= g.cfg.MaxImages {
		return nil, io.EOF
	}
	for {
		if g.cur == nil || g.telIdx >= len(g.cur.Tels) {
			ev, err := g.src.NextEvent()
			if err != nil {
				return nil, err // io.EOF at end of run
			}
			if len(g.cfg.EventIDs) > 0 && !containsInt(g.cfg.EventIDs, int(ev.EventID)) {
				continue
			}
			g.cur, g.telIdx = ev, 0
			g.evCount++
			continue
		}

		td := g.cur.Tels[g.telIdx]
		g.telIdx++

		if len(g.cfg.TelescopeIDs) > 0 && !containsInt(g.cfg.TelescopeIDs, int(td.Tel.ID)) {
			continue
		}
		if len(g.cfg.Cameras) > 0 && !containsModel(g.cfg.Cameras, td.Tel.Cam) {
			continue
		}
		if !td.Tel.Known() {
			fmt.Fprintf(g.log, "Warning: skipping telescope %d with %v\n", td.Tel.ID, camera.ErrUnknownCamera)
			continue
		}

		set, err := g.buildRecord(td)
		if err != nil {
			return nil, err
		}
		g.count++
		return set, nil
	}
}

func (g *Generator) buildRecord(td *TelescopeData) (*fits.BenchmarkSet, error) {
	charges, err := g.cal.Calibrate(td)
	if err != nil {
		return nil, err
	}
	merged := MergeChannels(charges, td.ADC)

	npix := len(td.Tel.PixX)
	nchan := len(charges)
	adcSums := make([][]float32, nchan)
	for ch := 0; ch < nchan; ch++ {
		adcSums[ch] = make([]float32, npix)
		for pix := 0; pix < npix; pix++ {
			sum := float32(0)
			for _, v := range td.ADC[ch][pix] {
				sum += float32(v)
			}
			adcSums[ch][pix] = sum
		}
	}

	set := &fits.BenchmarkSet{Meta: g.recordMeta(td)}
	if g.cfg.CameraFormat {
		g.fillCameraFormat(set, td, merged, adcSums)
	} else {
		if err := g.fillGridFormat(set, td, merged, adcSums); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// fillGridFormat injects all planes into the 2-D camera grid.
func (g *Generator) fillGridFormat(set *fits.BenchmarkSet, td *TelescopeData, merged []float32, adcSums [][]float32) error {
	geom := td.Tel.Geom
	if geom == nil {
		return fmt.Errorf("telescope %d has no grid geometry", td.Tel.ID)
	}
	cols, rows := int32(geom.Cols), int32(geom.Rows)
	nchan := int32(len(adcSums))

	input, mask, err := geom.To2D(merged)
	if err != nil {
		return err
	}
	reference, _, err := geom.To2D(td.PE)
	if err != nil {
		return err
	}
	set.Input = fits.NewImageFromNaxisn([]int32{cols, rows}, input)
	set.Reference = fits.NewImageFromNaxisn([]int32{cols, rows}, reference)
	set.PixelMask = fits.NewImageFromNaxisn([]int32{cols, rows}, mask)

	stack := func(planes [][]float32) (*fits.Image, error) {
		img := fits.NewImageFromNaxisn([]int32{cols, rows, nchan}, nil)
		for ch, plane := range planes {
			grid, _, err := geom.To2D(plane)
			if err != nil {
				return nil, err
			}
			copy(img.Data[ch*int(cols*rows):(ch+1)*int(cols*rows)], grid)
		}
		return img, nil
	}
	if set.ADCSums, err = stack(adcSums); err != nil {
		return err
	}
	if set.Pedestal, err = stack(td.Pedestal); err != nil {
		return err
	}
	if set.Gains, err = stack(td.Gains); err != nil {
		return err
	}

	xs, ys := geom.PositionPlanes()
	set.PixelPos = fits.NewImageFromNaxisn([]int32{cols, rows, 2}, nil)
	copy(set.PixelPos.Data[:cols*rows], xs)
	copy(set.PixelPos.Data[cols*rows:], ys)
	return nil
}

// fillCameraFormat keeps the flat readout order. Every readout pixel
// is real, so the geometry mask is all ones.
func (g *Generator) fillCameraFormat(set *fits.BenchmarkSet, td *TelescopeData, merged []float32, adcSums [][]float32) {
	npix := int32(len(td.Tel.PixX))
	nchan := int32(len(adcSums))

	set.Input = fits.NewImageFromNaxisn([]int32{npix}, merged)
	set.Reference = fits.NewImageFromNaxisn([]int32{npix}, append([]float32(nil), td.PE...))
	set.PixelMask = fits.NewImageFromNaxisn([]int32{npix}, nil)
	for i := range set.PixelMask.Data {
		set.PixelMask.Data[i] = 1
	}

	stack := func(planes [][]float32) *fits.Image {
		img := fits.NewImageFromNaxisn([]int32{npix, nchan}, nil)
		for ch, plane := range planes {
			copy(img.Data[ch*int(npix):(ch+1)*int(npix)], plane)
		}
		return img
	}
	set.ADCSums = stack(adcSums)
	set.Pedestal = stack(td.Pedestal)
	set.Gains = stack(td.Gains)

	set.PixelPos = fits.NewImageFromNaxisn([]int32{npix, 2}, nil)
	copy(set.PixelPos.Data[:npix], td.Tel.PixX)
	copy(set.PixelPos.Data[npix:], td.Tel.PixY)
}

func (g *Generator) recordMeta(td *TelescopeData) fits.Meta {
	ev := g.cur
	tel := td.Tel
	return fits.Meta{
		"version":                     fits.BenchmarkVersion,
		"cam_id":                      string(tel.Cam),
		"tel_id":                      int(tel.ID),
		"event_id":                    int(ev.EventID),
		"run_id":                      int(g.src.RunID),
		"simtel":                      g.src.Path,
		"num_tel_with_trigger":        ev.NumTelWithTrigger,
		"num_tel_with_data":           len(ev.Tels),
		"ev_count":                    g.evCount,
		"mc_energy":                   fits.Quantity{Value: float64(ev.Energy), Unit: "TeV"},
		"mc_azimuth":                  fits.Quantity{Value: float64(ev.Azimuth), Unit: "rad"},
		"mc_altitude":                 fits.Quantity{Value: float64(ev.Altitude), Unit: "rad"},
		"mc_core_x":                   fits.Quantity{Value: float64(ev.CoreX), Unit: "m"},
		"mc_core_y":                   fits.Quantity{Value: float64(ev.CoreY), Unit: "m"},
		"mc_height_first_interaction": fits.Quantity{Value: float64(ev.HFirstInt), Unit: "m"},
		"optical_foclen":              fits.Quantity{Value: float64(tel.FocLen), Unit: "m"},
		"tel_pos_x":                   fits.Quantity{Value: float64(tel.Pos[0]), Unit: "m"},
		"tel_pos_y":                   fits.Quantity{Value: float64(tel.Pos[1]), Unit: "m"},
		"tel_pos_z":                   fits.Quantity{Value: float64(tel.Pos[2]), Unit: "m"},
	}
}

func containsInt(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func containsModel(vals []camera.Model, v camera.Model) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
