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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdhp-sap/datapipe/internal/simtel"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path:=filepath.Join(t.TempDir(), "integrator.json5")
	if err:=os.WriteFile(path, []byte(content), 0644); err!=nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCalibratorConfig(t *testing.T) {
	// JSON5: comments and trailing commas are fine
	path:=writeConfig(t, `{
		// charge extraction for the dual gain cameras
		integrator: "GlobalPeakIntegrator",
		window_width: 7,
		sig_amp_cut_hg: 2.5,
		integration_correction: true,
	}`)

	cfg, err:=loadCalibratorConfig(path, simtel.DefaultCalibratorConfig())
	if err!=nil {
		t.Fatalf("loadCalibratorConfig: %v", err)
	}
	if cfg.Integrator!="GlobalPeakIntegrator" {
		t.Errorf("Integrator=%q; want \"GlobalPeakIntegrator\"", cfg.Integrator)
	}
	if cfg.WindowWidth!=7 {
		t.Errorf("WindowWidth=%d; want 7", cfg.WindowWidth)
	}
	if cfg.SigAmpCutHG!=2.5 {
		t.Errorf("SigAmpCutHG=%v; want 2.5", cfg.SigAmpCutHG)
	}
	if !cfg.IntegrationCorrection {
		t.Errorf("IntegrationCorrection=false; want true")
	}
	// untouched fields keep their defaults
	if cfg.WindowShift!=2 {
		t.Errorf("WindowShift=%d; want default 2", cfg.WindowShift)
	}
}

func TestLoadCalibratorConfigUnknownKey(t *testing.T) {
	path:=writeConfig(t, `{window_widht: 7}`)
	_, err:=loadCalibratorConfig(path, simtel.DefaultCalibratorConfig())
	if err==nil || !strings.Contains(err.Error(), "window_widht") {
		t.Errorf("err=%v; want unknown setting error naming the key", err)
	}
}

func TestLoadCalibratorConfigWrongType(t *testing.T) {
	path:=writeConfig(t, `{integrator: 5}`)
	_, err:=loadCalibratorConfig(path, simtel.DefaultCalibratorConfig())
	if err==nil || !strings.Contains(err.Error(), "integrator") {
		t.Errorf("err=%v; want type error naming the field", err)
	}
}
