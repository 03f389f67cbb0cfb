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
	"fmt"
	"os"

	json "github.com/KevinWang15/go-json5"

	"github.com/jdhp-sap/datapipe/internal/simtel"
)

// loadCalibratorConfig reads charge extraction settings from a JSON5
// file, starting from the given defaults. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func loadCalibratorConfig(fileName string, cfg simtel.CalibratorConfig) (simtel.CalibratorConfig, error) {
	data, err:=os.ReadFile(fileName)
	if err!=nil { return cfg, err }

	var table map[string]interface{}
	if err:=json.Unmarshal(data, &table); err!=nil {
		return cfg, fmt.Errorf("%s: %s", fileName, err.Error())
	}

	known:=map[string]bool{
		"integrator": true, "window_width": true, "window_shift": true, "t0": true,
		"sig_amp_cut_hg": true, "sig_amp_cut_lg": true, "lwt": true,
		"integration_correction": true,
	}
	for key:=range table {
		if !known[key] {
			return cfg, fmt.Errorf("%s: unknown setting %q", fileName, key)
		}
	}

	if v, ok:=table["integrator"]; ok {
		s, ok:=v.(string)
		if !ok { return cfg, fmt.Errorf("%s: integrator: is not a string", fileName) }
		cfg.Integrator=s
	}
	intFields:=[]struct{ key string; dst *int }{
		{"window_width", &cfg.WindowWidth},
		{"window_shift", &cfg.WindowShift},
		{"t0",           &cfg.T0},
		{"lwt",          &cfg.LWT},
	}
	for _, f:=range intFields {
		if v, ok:=table[f.key]; ok {
			n, ok:=v.(float64)
			if !ok { return cfg, fmt.Errorf("%s: %s: is not a number", fileName, f.key) }
			*f.dst=int(n)
		}
	}
	floatFields:=[]struct{ key string; dst *float64 }{
		{"sig_amp_cut_hg", &cfg.SigAmpCutHG},
		{"sig_amp_cut_lg", &cfg.SigAmpCutLG},
	}
	for _, f:=range floatFields {
		if v, ok:=table[f.key]; ok {
			n, ok:=v.(float64)
			if !ok { return cfg, fmt.Errorf("%s: %s: is not a number", fileName, f.key) }
			*f.dst=n
		}
	}
	if v, ok:=table["integration_correction"]; ok {
		b, ok:=v.(bool)
		if !ok { return cfg, fmt.Errorf("%s: integration_correction: is not a bool", fileName) }
		cfg.IntegrationCorrection=b
	}
	return cfg, nil
}
