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
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Writer produces run files in the container format read by Source.
// Used by simulation tooling and test fixtures.
type Writer struct {
	tels map[int32]*Telescope

	f      *os.File
	gz     *gzip.Writer
	w      *bufio.Writer
	closed bool
}

// CreateRun creates a run file and writes its header. Compresses with
// gzip if a .gz or .gzip suffix is present.
func CreateRun(fileName string, runID int32, tels []*Telescope) (w *Writer, err error) {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	w = &Writer{tels: map[int32]*Telescope{}, f: f}
	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	var out io.Writer = f
	ext := strings.ToLower(path.Ext(fileName))
	if ext == ".gz" || ext == ".gzip" {
		w.gz = gzip.NewWriter(f)
		out = w.gz
	}
	w.w = bufio.NewWriter(out)

	if _, err = w.w.Write(magic[:]); err != nil {
		return nil, err
	}
	if err = w.write(runID, int32(len(tels))); err != nil {
		return nil, err
	}
	for _, tel := range tels {
		if err = w.writeTelescope(tel); err != nil {
			return nil, err
		}
		w.tels[tel.ID] = tel
	}
	return w, nil
}

func (w *Writer) writeTelescope(tel *Telescope) error {
	if err := w.write(tel.ID); err != nil {
		return err
	}
	if err := w.writeString(string(tel.Cam)); err != nil {
		return err
	}
	return w.write(tel.FocLen, tel.Pos,
		int32(len(tel.PixX)), int32(tel.NumChannels), int32(tel.NumSamples),
		tel.PixX, tel.PixY)
}

// WriteEvent appends one event. Telescope payloads must reference
// telescopes declared in the run header.
func (w *Writer) WriteEvent(ev *Event) error {
	if err := w.write(ev.EventID, ev.Energy, ev.Azimuth, ev.Altitude,
		ev.CoreX, ev.CoreY, ev.HFirstInt,
		int32(ev.NumTelWithTrigger), int32(len(ev.Tels))); err != nil {
		return err
	}
	for _, td := range ev.Tels {
		if _, ok := w.tels[td.Tel.ID]; !ok {
			return fmt.Errorf("event %d references undeclared telescope %d", ev.EventID, td.Tel.ID)
		}
		if err := w.write(td.Tel.ID); err != nil {
			return err
		}
		for _, plane := range td.Pedestal {
			if err := w.write(plane); err != nil {
				return err
			}
		}
		for _, plane := range td.Gains {
			if err := w.write(plane); err != nil {
				return err
			}
		}
		for _, plane := range td.ADC {
			for _, samples := range plane {
				if err := w.write(samples); err != nil {
					return err
				}
			}
		}
		if err := w.write(td.PE); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered data and releases the file. Safe to call more
// than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.w != nil {
		if err := w.w.Flush(); err != nil {
			w.f.Close()
			return err
		}
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			w.f.Close()
			return err
		}
	}
	return w.f.Close()
}

func (w *Writer) write(vs ...interface{}) error {
	for _, v := range vs {
		if err := binary.Write(w.w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeString(s string) error {
	if err := w.write(int32(len(s))); err != nil {
		return err
	}
	_, err := w.w.WriteString(s)
	return err
}
