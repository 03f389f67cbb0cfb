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
	"math"
	"strings"
)

// Integrator selects the charge extraction strategy applied to the
// sampled waveforms.
type Integrator int

const (
	Full          Integrator = iota // integrate the whole readout window
	Simple                          // fixed window around a configured t0
	GlobalPeak                      // window at the peak of the camera-wide waveform sum
	LocalPeak                       // window at each pixel's own peak
	NeighbourPeak                   // window at the peak of the neighbor waveform sum
	AverageWfPeak                   // window at the peak of the camera-wide waveform average
)

var integratorNames = map[Integrator]string{
	Full:          "FullIntegrator",
	Simple:        "SimpleIntegrator",
	GlobalPeak:    "GlobalPeakIntegrator",
	LocalPeak:     "LocalPeakIntegrator",
	NeighbourPeak: "NeighbourPeakIntegrator",
	AverageWfPeak: "AverageWfPeakIntegrator",
}

func (i Integrator) String() string {
	if name, ok := integratorNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Integrator(%d)", int(i))
}

// ParseIntegrator maps an integrator name to its value. The trailing
// "Integrator" suffix is optional.
func ParseIntegrator(name string) (Integrator, error) {
	short := strings.TrimSuffix(name, "Integrator")
	for i, full := range integratorNames {
		if name == full || short == strings.TrimSuffix(full, "Integrator") {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown integrator %q", name)
}

// CalibratorConfig holds the charge extraction parameters.
// Negative values leave T0 and the significance cuts unset.
type CalibratorConfig struct {
	Integrator            string  `json:"integrator"`
	WindowWidth           int     `json:"window_width"`
	WindowShift           int     `json:"window_shift"`
	T0                    int     `json:"t0"`
	SigAmpCutHG           float64 `json:"sig_amp_cut_hg"`
	SigAmpCutLG           float64 `json:"sig_amp_cut_lg"`
	LWT                   int     `json:"lwt"`
	IntegrationCorrection bool    `json:"integration_correction"`
}

// DefaultCalibratorConfig returns the standard extraction settings: a
// local peak search with a 5 sample window shifted 2 samples left.
func DefaultCalibratorConfig() CalibratorConfig {
	return CalibratorConfig{
		Integrator:  "LocalPeakIntegrator",
		WindowWidth: 5,
		WindowShift: 2,
		T0:          -1,
		SigAmpCutHG: -1,
		SigAmpCutLG: -1,
		LWT:         0,
	}
}

// Calibrator turns raw ADC samples into per-pixel charges.
type Calibrator struct {
	cfg        CalibratorConfig
	integrator Integrator
}

// NewCalibrator validates the config and builds a calibrator.
func NewCalibrator(cfg CalibratorConfig) (*Calibrator, error) {
	integrator, err := ParseIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if cfg.WindowWidth <= 0 {
		return nil, fmt.Errorf("window width %d must be positive", cfg.WindowWidth)
	}
	if cfg.WindowShift < 0 {
		return nil, fmt.Errorf("window shift %d must not be negative", cfg.WindowShift)
	}
	return &Calibrator{cfg: cfg, integrator: integrator}, nil
}

// Config returns the extraction settings.
func (c *Calibrator) Config() CalibratorConfig { return c.cfg }

// Params returns the extraction settings as a report-friendly map.
func (c *Calibrator) Params() map[string]interface{} {
	return map[string]interface{}{
		"integrator":             c.cfg.Integrator,
		"window_width":           c.cfg.WindowWidth,
		"window_shift":           c.cfg.WindowShift,
		"t0":                     c.cfg.T0,
		"sig_amp_cut_hg":         c.cfg.SigAmpCutHG,
		"sig_amp_cut_lg":         c.cfg.SigAmpCutLG,
		"lwt":                    c.cfg.LWT,
		"integration_correction": c.cfg.IntegrationCorrection,
	}
}

// Calibrate extracts the per-channel, per-pixel charges of one
// telescope readout: samples are pedestal-subtracted, gain-corrected
// and integrated over the window placed by the configured strategy.
func (c *Calibrator) Calibrate(td *TelescopeData) ([][]float32, error) {
	nchan := len(td.ADC)
	npix := len(td.Tel.PixX)
	nsamples := td.Tel.NumSamples
	if c.integrator == NeighbourPeak && td.Tel.Geom == nil {
		return nil, fmt.Errorf("telescope %d has no grid geometry for neighbour peak search", td.Tel.ID)
	}

	width, shift := c.cfg.WindowWidth, c.cfg.WindowShift
	if width > nsamples || c.integrator == Full {
		width, shift = nsamples, 0
	}

	charges := make([][]float32, nchan)
	for ch := 0; ch < nchan; ch++ {
		// calibrated waveforms: pedestal is stored summed over the full
		// readout window, so the per-sample share is pedestal/nsamples
		wf := make([][]float32, npix)
		for pix := 0; pix < npix; pix++ {
			pedSample := td.Pedestal[ch][pix] / float32(nsamples)
			gain := td.Gains[ch][pix]
			samples := make([]float32, nsamples)
			for s := 0; s < nsamples; s++ {
				samples[s] = (float32(td.ADC[ch][pix][s]) - pedSample) * gain
			}
			wf[pix] = samples
		}

		starts, err := c.windowStarts(td, ch, wf, width, shift)
		if err != nil {
			return nil, err
		}

		correction := float32(1)
		if c.cfg.IntegrationCorrection && c.integrator != Full {
			correction = float32(windowCorrection(width, shift))
		}

		charges[ch] = make([]float32, npix)
		for pix := 0; pix < npix; pix++ {
			sum := float32(0)
			for s := starts[pix]; s < starts[pix]+width; s++ {
				sum += wf[pix][s]
			}
			charges[ch][pix] = sum * correction
		}
	}
	return charges, nil
}

// windowStarts places the integration window for every pixel.
func (c *Calibrator) windowStarts(td *TelescopeData, ch int, wf [][]float32, width, shift int) ([]int, error) {
	npix := len(wf)
	nsamples := td.Tel.NumSamples
	starts := make([]int, npix)

	clamp := func(peak int) int {
		start := peak - shift
		if start < 0 {
			start = 0
		}
		if start+width > nsamples {
			start = nsamples - width
		}
		return start
	}

	switch c.integrator {
	case Full:
		// all zeros, the window spans the whole readout

	case Simple:
		t0 := c.cfg.T0
		if t0 < 0 {
			t0 = nsamples / 2
		}
		start := clamp(t0)
		for pix := range starts {
			starts[pix] = start
		}

	case LocalPeak:
		for pix := range starts {
			starts[pix] = clamp(argmax(wf[pix]))
		}

	case GlobalPeak:
		cut := c.cfg.SigAmpCutHG
		if ch == 1 {
			cut = c.cfg.SigAmpCutLG
		}
		summed := make([]float32, nsamples)
		significant := 0
		for pix := 0; pix < npix; pix++ {
			if cut >= 0 && float64(maxOf(wf[pix])) < cut {
				continue
			}
			significant++
			for s := 0; s < nsamples; s++ {
				summed[s] += wf[pix][s]
			}
		}
		if significant == 0 {
			// no pixel passes the cut; fall back to all of them
			for pix := 0; pix < npix; pix++ {
				for s := 0; s < nsamples; s++ {
					summed[s] += wf[pix][s]
				}
			}
		}
		start := clamp(argmax(summed))
		for pix := range starts {
			starts[pix] = start
		}

	case NeighbourPeak:
		for pix := range starts {
			summed := make([]float32, nsamples)
			for _, nb := range td.Tel.Geom.Neighbors(pix) {
				for s := 0; s < nsamples; s++ {
					summed[s] += wf[nb][s]
				}
			}
			if c.cfg.LWT > 0 {
				for s := 0; s < nsamples; s++ {
					summed[s] += float32(c.cfg.LWT) * wf[pix][s]
				}
			}
			starts[pix] = clamp(argmax(summed))
		}

	case AverageWfPeak:
		summed := make([]float32, nsamples)
		for pix := 0; pix < npix; pix++ {
			for s := 0; s < nsamples; s++ {
				summed[s] += wf[pix][s]
			}
		}
		start := clamp(argmax(summed))
		for pix := range starts {
			starts[pix] = start
		}

	default:
		return nil, fmt.Errorf("unknown integrator %d", c.integrator)
	}
	return starts, nil
}

// windowCorrection compensates the charge missed outside the window,
// assuming a Gaussian nominal pulse shape three samples wide.
func windowCorrection(width, shift int) float64 {
	const sigma = 3.0
	total, window := 0.0, 0.0
	for t := -40; t <= 40; t++ {
		v := math.Exp(-float64(t*t) / (2 * sigma * sigma))
		total += v
		if t >= -shift && t < -shift+width {
			window += v
		}
	}
	return total / window
}

func argmax(vals []float32) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

func maxOf(vals []float32) float32 {
	m := vals[0]
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
