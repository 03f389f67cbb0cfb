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


// Package score models benchmark score files: the reports written by
// the denoising driver and the record files read by the statistics
// tooling.
package score

import (
	"encoding/json"
	"os"
)

// Report is the output of one benchmark run: parallel per-file
// sequences of scores and execution times, plus provenance.
// Fields are declared in alphabetical order so the marshalled JSON
// carries sorted keys.
type Report struct {
	Algo              string                 `json:"algo"`
	AlgoParams        map[string]interface{} `json:"algo_params"`
	BenchmarkMethod   string                 `json:"benchmark_method"`
	DateTime          string                 `json:"date_time"`
	ExecutionTimeList []float64              `json:"execution_time_list"`
	HDUIndex          int                    `json:"hdu_index"`
	InputFilePathList []string               `json:"input_file_path_list"`
	Label             string                 `json:"label"`
	ScoreList         [][]float64            `json:"score_list"`
	System            string                 `json:"system"`
}

// WriteFile marshals the report, pretty printed, to the given path,
// creating or truncating the file.
func (r *Report) WriteFile(fileName string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, append(data, '\n'), 0644)
}

// ReadReport parses a report file written by WriteFile.
func ReadReport(fileName string) (*Report, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	r := &Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}
