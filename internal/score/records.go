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


package score

import (
	"encoding/json"
	"math"
	"os"
)

// Record is one input/output entry of a score record file. Typical
// fields: mc_energy, tel_id, per-metric scores, and an error object on
// aborted entries.
type Record map[string]interface{}

// Float returns the numeric value of a field.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key].(float64)
	return v, ok
}

// Aborted reports whether the entry carries an error marker instead of
// scores. The marker counts only when truthy: null, false, zero, empty
// string, empty object and empty list all mean the entry completed.
func (r Record) Aborted() bool {
	v, ok := r["error"]
	if !ok || v == nil {
		return false
	}
	switch e := v.(type) {
	case bool:
		return e
	case string:
		return e != ""
	case float64:
		return e != 0
	case map[string]interface{}:
		return len(e) > 0
	case []interface{}:
		return len(e) > 0
	}
	return true
}

// File is a score record file: a curve label and its entries.
type File struct {
	Label string   `json:"label"`
	IO    []Record `json:"io"`

	Path string `json:"-"`
}

// ReadFile parses a score record file.
func ReadFile(fileName string) (*File, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	f.Path = fileName
	return f, nil
}

func (f *File) withIO(io []Record) *File {
	return &File{Label: f.Label, IO: io, Path: f.Path}
}

// FilterEqual keeps the entries whose field equals the given value.
// Entries without the field are dropped.
func (f *File) FilterEqual(key string, val float64) *File {
	kept := []Record{}
	for _, r := range f.IO {
		if v, ok := r.Float(key); ok && v == val {
			kept = append(kept, r)
		}
	}
	return f.withIO(kept)
}

// FilterRange keeps the entries whose field falls in [lo, hi).
// Entries without the field are dropped.
func (f *File) FilterRange(key string, lo, hi float64) *File {
	kept := []Record{}
	for _, r := range f.IO {
		if v, ok := r.Float(key); ok && v >= lo && v < hi {
			kept = append(kept, r)
		}
	}
	return f.withIO(kept)
}

// FilterAborted keeps either only the aborted entries or only the
// completed ones.
func (f *File) FilterAborted(abortedOnly bool) *File {
	kept := []Record{}
	for _, r := range f.IO {
		if r.Aborted() == abortedOnly {
			kept = append(kept, r)
		}
	}
	return f.withIO(kept)
}

// Values collects the finite values of the given metric across all
// entries. Entries without the metric and non-finite values are
// skipped.
func (f *File) Values(metric string) []float64 {
	vals := []float64{}
	for _, r := range f.IO {
		if v, ok := r.Float(metric); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	return vals
}

// EnergyDecades are the histogram buckets in TeV, lower bound
// inclusive, upper bound exclusive.
var EnergyDecades = [4][2]float64{{0.1, 1}, {1, 10}, {10, 100}, {100, 1000}}

// ByEnergyDecade buckets the metric values by decade of simulated
// energy. An energy of exactly 1 TeV falls in the second bucket.
func (f *File) ByEnergyDecade(metric string) [4][]float64 {
	var buckets [4][]float64
	for i, decade := range EnergyDecades {
		buckets[i] = f.FilterRange("mc_energy", decade[0], decade[1]).Values(metric)
	}
	return buckets
}
