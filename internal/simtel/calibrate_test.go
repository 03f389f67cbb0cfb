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
	"math"
	"testing"

	"github.com/jdhp-sap/datapipe/internal/camera"
)

func TestParseIntegrator(t *testing.T) {
	cases:=[]struct{ name string; want Integrator }{
		{"FullIntegrator", Full},
		{"Full", Full},
		{"LocalPeak", LocalPeak},
		{"NeighbourPeakIntegrator", NeighbourPeak},
		{"AverageWfPeak", AverageWfPeak},
	}
	for _,tc:=range cases {
		got, err:=ParseIntegrator(tc.name)
		if err!=nil {
			t.Errorf("ParseIntegrator(%q): %v", tc.name, err)
			continue
		}
		if got!=tc.want {
			t.Errorf("ParseIntegrator(%q)=%v; want %v", tc.name, got, tc.want)
		}
	}
	if _, err:=ParseIntegrator("MedianIntegrator"); err==nil {
		t.Errorf("ParseIntegrator(unknown)=nil error; want error")
	}
}

func TestNewCalibratorValidation(t *testing.T) {
	cfg:=DefaultCalibratorConfig()
	if _, err:=NewCalibrator(cfg); err!=nil {
		t.Errorf("default config: %v", err)
	}

	bad:=cfg
	bad.WindowWidth=0
	if _, err:=NewCalibrator(bad); err==nil {
		t.Errorf("window width 0=nil error; want error")
	}

	bad=cfg
	bad.WindowShift=-1
	if _, err:=NewCalibrator(bad); err==nil {
		t.Errorf("window shift -1=nil error; want error")
	}

	bad=cfg
	bad.Integrator="MedianIntegrator"
	if _, err:=NewCalibrator(bad); err==nil {
		t.Errorf("unknown integrator=nil error; want error")
	}
}

// waveformData builds a single-channel readout with zero pedestal and
// unit gains from raw per-pixel samples.
func waveformData(adc [][]uint16) *TelescopeData {
	npix:=len(adc)
	tel:=&Telescope{
		ID:          1,
		Cam:         camera.FlashCam,
		NumChannels: 1,
		NumSamples:  len(adc[0]),
		PixX:        make([]float32, npix),
		PixY:        make([]float32, npix),
	}
	gains:=make([]float32, npix)
	for i:=range gains { gains[i]=1 }
	return &TelescopeData{
		Tel:      tel,
		Pedestal: [][]float32{make([]float32, npix)},
		Gains:    [][]float32{gains},
		ADC:      [][][]uint16{adc},
	}
}

func calibrate(t *testing.T, cfg CalibratorConfig, td *TelescopeData) [][]float32 {
	t.Helper()
	cal, err:=NewCalibrator(cfg)
	if err!=nil {
		t.Fatalf("NewCalibrator: %v", err)
	}
	charges, err:=cal.Calibrate(td)
	if err!=nil {
		t.Fatalf("Calibrate: %v", err)
	}
	return charges
}

func TestLocalPeakWindow(t *testing.T) {
	td:=waveformData([][]uint16{
		{0, 0, 0, 1, 5, 1, 0, 0}, // peak at sample 4, window covers 3..5
		{9, 1, 0, 0, 0, 0, 0, 0}, // peak at sample 0, window clamps to 0..2
	})
	cfg:=DefaultCalibratorConfig()
	cfg.WindowWidth, cfg.WindowShift = 3, 1

	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=7 {
		t.Errorf("charge[0]=%v; want 7", charges[0][0])
	}
	if charges[0][1]!=10 {
		t.Errorf("charge[1]=%v; want 10", charges[0][1])
	}
}

func TestSimpleWindowWithPedestalAndGain(t *testing.T) {
	td:=waveformData([][]uint16{{3, 4, 5, 6, 3, 3, 3, 3}})
	// pedestal is summed over the readout, 8 counts over 8 samples
	td.Pedestal[0][0]=8
	td.Gains[0][0]=2
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="SimpleIntegrator"
	cfg.WindowWidth, cfg.WindowShift, cfg.T0 = 2, 0, 2

	charges:=calibrate(t, cfg, td)
	// window [2,4): ((5-1)+(6-1))*2
	if charges[0][0]!=18 {
		t.Errorf("charge=%v; want 18", charges[0][0])
	}
}

func TestSimpleDefaultT0(t *testing.T) {
	td:=waveformData([][]uint16{{1, 1, 1, 1, 7, 1, 1, 1}})
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="SimpleIntegrator"
	cfg.WindowWidth, cfg.WindowShift, cfg.T0 = 2, 0, -1

	// t0 defaults to the readout center, sample 4
	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=8 {
		t.Errorf("charge=%v; want 8", charges[0][0])
	}
}

func TestFullIntegratorSumsEverything(t *testing.T) {
	td:=waveformData([][]uint16{{1, 2, 3, 4, 5, 6, 7, 8}})
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="FullIntegrator"
	cfg.WindowWidth, cfg.WindowShift = 3, 1 // ignored for Full

	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=36 {
		t.Errorf("charge=%v; want 36", charges[0][0])
	}
}

func TestWindowWiderThanReadout(t *testing.T) {
	td:=waveformData([][]uint16{{1, 2, 3, 4}})
	cfg:=DefaultCalibratorConfig()
	cfg.WindowWidth=20

	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=10 {
		t.Errorf("charge=%v; want 10", charges[0][0])
	}
}

func TestGlobalPeakSignificanceCut(t *testing.T) {
	td:=waveformData([][]uint16{
		{0, 10, 0, 0},
		{3, 0, 0, 3},
	})
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="GlobalPeakIntegrator"
	cfg.WindowWidth, cfg.WindowShift = 1, 0
	cfg.SigAmpCutHG=5 // only pixel 0 is significant, its peak places the window

	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=10 || charges[0][1]!=0 {
		t.Errorf("charges=%v; want [10 0]", charges[0])
	}

	// with no pixel above the cut, all pixels place the window
	cfg.SigAmpCutHG=100
	charges=calibrate(t, cfg, td)
	if charges[0][0]!=10 || charges[0][1]!=0 {
		t.Errorf("fallback charges=%v; want [10 0]", charges[0])
	}
}

func TestAverageWfPeak(t *testing.T) {
	td:=waveformData([][]uint16{
		{0, 4, 0, 0},
		{0, 6, 0, 2},
	})
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="AverageWfPeakIntegrator"
	cfg.WindowWidth, cfg.WindowShift = 1, 0

	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=4 || charges[0][1]!=6 {
		t.Errorf("charges=%v; want [4 6]", charges[0])
	}
}

func TestNeighbourPeakPlacement(t *testing.T) {
	geom, err:=camera.NewGeometry(camera.FlashCam,
		[]float32{0, 1, 0, 1},
		[]float32{0, 0, 1, 1})
	if err!=nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	td:=waveformData([][]uint16{
		{0, 9, 0, 0, 0, 2, 0, 0},
		{0, 0, 0, 0, 0, 8, 0, 0},
		{0, 0, 0, 0, 0, 8, 0, 0},
		{0, 0, 0, 0, 0, 8, 0, 0},
	})
	td.Tel.Geom=geom
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="NeighbourPeakIntegrator"
	cfg.WindowWidth, cfg.WindowShift = 1, 0

	// pixel 0's own peak at sample 1 is ignored, its neighbors peak at 5
	charges:=calibrate(t, cfg, td)
	if charges[0][0]!=2 {
		t.Errorf("charge[0]=%v; want 2", charges[0][0])
	}
}

func TestNeighbourPeakNeedsGeometry(t *testing.T) {
	td:=waveformData([][]uint16{{0, 1, 0, 0}})
	cfg:=DefaultCalibratorConfig()
	cfg.Integrator="NeighbourPeakIntegrator"
	cal, err:=NewCalibrator(cfg)
	if err!=nil {
		t.Fatalf("NewCalibrator: %v", err)
	}
	if _, err:=cal.Calibrate(td); err==nil {
		t.Errorf("Calibrate without geometry=nil error; want error")
	}
}

func TestIntegrationCorrection(t *testing.T) {
	adc:=[][]uint16{{0, 0, 0, 1, 5, 1, 0, 0}}
	cfg:=DefaultCalibratorConfig()
	cfg.WindowWidth, cfg.WindowShift = 3, 1

	plain:=calibrate(t, cfg, waveformData(adc))
	cfg.IntegrationCorrection=true
	corrected:=calibrate(t, cfg, waveformData(adc))

	want:=plain[0][0]*float32(windowCorrection(3, 1))
	if math.Abs(float64(corrected[0][0]-want))>1e-4 {
		t.Errorf("corrected charge=%v; want %v", corrected[0][0], want)
	}
	if corrected[0][0]<=plain[0][0] {
		t.Errorf("correction did not increase the charge: %v <= %v", corrected[0][0], plain[0][0])
	}
}

func TestWindowCorrectionFullWindowIsUnity(t *testing.T) {
	if c:=windowCorrection(81, 40); math.Abs(c-1)>1e-9 {
		t.Errorf("windowCorrection(81,40)=%v; want 1", c)
	}
}
