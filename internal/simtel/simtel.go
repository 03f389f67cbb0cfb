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


// Package simtel reads and writes simulated telescope array runs.
//
// A run file is a gzip-transparent binary container in network byte
// order:
//
//	magic     8 bytes "DPSIM001"
//	run id    int32
//	ntel      int32
//	telescope descriptors, ntel times:
//	  tel id      int32
//	  camera      int32 length + name bytes
//	  focal len   float32, meters
//	  position    3 float32, meters
//	  npix        int32
//	  nchan       int32
//	  nsamples    int32
//	  pixel x     npix float32, meters
//	  pixel y     npix float32, meters
//	events until end of stream:
//	  event id    int32
//	  energy      float32, TeV
//	  azimuth     float32, rad
//	  altitude    float32, rad
//	  core x, y   2 float32, meters
//	  h first int float32, meters
//	  ntrig       int32
//	  ndata       int32
//	  telescope payloads, ndata times:
//	    tel id    int32
//	    pedestal  nchan*npix float32, summed over the readout window
//	    gains     nchan*npix float32
//	    adc       nchan*npix*nsamples uint16 raw samples
//	    pe        npix float32, true photoelectron image
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

	"github.com/jdhp-sap/datapipe/internal/camera"
)

var magic = [8]byte{'D', 'P', 'S', 'I', 'M', '0', '0', '1'}

// Telescope describes one instrument of the simulated array.
type Telescope struct {
	ID          int32
	Cam         camera.Model
	FocLen      float32    // optical focal length, meters
	Pos         [3]float32 // position in the array frame, meters
	NumChannels int
	NumSamples  int
	PixX, PixY  []float32

	Geom *camera.Geometry // nil if the pixel layout doesn't form a grid
}

// Known reports whether the camera model belongs to the supported set.
func (t *Telescope) Known() bool {
	_, err := camera.FamilyOf(t.Cam)
	return err == nil
}

// TelescopeData is the readout of one telescope for one event.
type TelescopeData struct {
	Tel      *Telescope
	Pedestal [][]float32  // [channel][pixel], summed over the readout window
	Gains    [][]float32  // [channel][pixel]
	ADC      [][][]uint16 // [channel][pixel][sample] raw samples
	PE       []float32    // [pixel] true photoelectron image
}

// Event is one simulated air shower with its triggered telescopes.
type Event struct {
	EventID           int32
	Energy            float32 // TeV
	Azimuth, Altitude float32 // rad
	CoreX, CoreY      float32 // meters
	HFirstInt         float32 // height of first interaction, meters
	NumTelWithTrigger int
	Tels              []*TelescopeData
}

// Source reads events from a run file.
type Source struct {
	Path       string
	RunID      int32
	Telescopes map[int32]*Telescope

	f      *os.File
	gz     *gzip.Reader
	r      *bufio.Reader
	closed bool
}

// OpenSource opens a run file and reads its header. Decompresses gzip
// if a .gz or .gzip suffix is present.
func OpenSource(fileName string) (s *Source, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	s = &Source{Path: fileName, Telescopes: map[int32]*Telescope{}, f: f}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	var r io.Reader = f
	ext := strings.ToLower(path.Ext(fileName))
	if ext == ".gz" || ext == ".gzip" {
		if s.gz, err = gzip.NewReader(f); err != nil {
			return nil, err
		}
		r = s.gz
	}
	s.r = bufio.NewReader(r)

	if err = s.readRunHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying file. Safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.gz != nil {
		s.gz.Close()
	}
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

func (s *Source) readRunHeader() error {
	var m [8]byte
	if _, err := io.ReadFull(s.r, m[:]); err != nil {
		return fmt.Errorf("%s: reading run header: %s", s.Path, err.Error())
	}
	if m != magic {
		return fmt.Errorf("%s: not a simulated run file", s.Path)
	}
	var ntel int32
	if err := s.read(&s.RunID, &ntel); err != nil {
		return err
	}
	for i := int32(0); i < ntel; i++ {
		tel, err := s.readTelescope()
		if err != nil {
			return err
		}
		s.Telescopes[tel.ID] = tel
	}
	return nil
}

func (s *Source) readTelescope() (*Telescope, error) {
	tel := &Telescope{}
	if err := s.read(&tel.ID); err != nil {
		return nil, err
	}
	cam, err := s.readString()
	if err != nil {
		return nil, err
	}
	tel.Cam = camera.Model(cam)

	var npix, nchan, nsamples int32
	if err := s.read(&tel.FocLen, &tel.Pos, &npix, &nchan, &nsamples); err != nil {
		return nil, err
	}
	if npix <= 0 || nchan <= 0 || nchan > 2 || nsamples <= 0 {
		return nil, fmt.Errorf("%s: telescope %d: malformed descriptor (%d pixels, %d channels, %d samples)",
			s.Path, tel.ID, npix, nchan, nsamples)
	}
	tel.NumChannels, tel.NumSamples = int(nchan), int(nsamples)
	tel.PixX = make([]float32, npix)
	tel.PixY = make([]float32, npix)
	if err := s.read(tel.PixX, tel.PixY); err != nil {
		return nil, err
	}

	// grid derivation can fail for free-form layouts; readout stays usable
	tel.Geom, _ = camera.NewGeometry(tel.Cam, tel.PixX, tel.PixY)
	return tel, nil
}

// NextEvent reads the next event. Returns io.EOF at the end of the run.
func (s *Source) NextEvent() (*Event, error) {
	if s.closed {
		return nil, fmt.Errorf("%s: source is closed", s.Path)
	}
	ev := &Event{}
	err := binary.Read(s.r, binary.BigEndian, &ev.EventID)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading event header: %s", s.Path, err.Error())
	}

	var ntrig, ndata int32
	if err := s.read(&ev.Energy, &ev.Azimuth, &ev.Altitude, &ev.CoreX, &ev.CoreY, &ev.HFirstInt, &ntrig, &ndata); err != nil {
		return nil, err
	}
	ev.NumTelWithTrigger = int(ntrig)

	for i := int32(0); i < ndata; i++ {
		td, err := s.readTelescopeData(ev.EventID)
		if err != nil {
			return nil, err
		}
		ev.Tels = append(ev.Tels, td)
	}
	return ev, nil
}

func (s *Source) readTelescopeData(eventID int32) (*TelescopeData, error) {
	var telID int32
	if err := s.read(&telID); err != nil {
		return nil, err
	}
	tel, ok := s.Telescopes[telID]
	if !ok {
		return nil, fmt.Errorf("%s: event %d references undeclared telescope %d", s.Path, eventID, telID)
	}

	npix := len(tel.PixX)
	td := &TelescopeData{Tel: tel}
	td.Pedestal = make([][]float32, tel.NumChannels)
	td.Gains = make([][]float32, tel.NumChannels)
	td.ADC = make([][][]uint16, tel.NumChannels)
	for ch := 0; ch < tel.NumChannels; ch++ {
		td.Pedestal[ch] = make([]float32, npix)
		if err := s.read(td.Pedestal[ch]); err != nil {
			return nil, err
		}
	}
	for ch := 0; ch < tel.NumChannels; ch++ {
		td.Gains[ch] = make([]float32, npix)
		if err := s.read(td.Gains[ch]); err != nil {
			return nil, err
		}
	}
	for ch := 0; ch < tel.NumChannels; ch++ {
		td.ADC[ch] = make([][]uint16, npix)
		flat := make([]uint16, npix*tel.NumSamples)
		if err := s.read(flat); err != nil {
			return nil, err
		}
		for pix := 0; pix < npix; pix++ {
			td.ADC[ch][pix] = flat[pix*tel.NumSamples : (pix+1)*tel.NumSamples]
		}
	}
	td.PE = make([]float32, npix)
	if err := s.read(td.PE); err != nil {
		return nil, err
	}
	return td, nil
}

// read decodes consecutive big-endian values, mapping any end of stream
// inside a record to a hard error.
func (s *Source) read(vs ...interface{}) error {
	for _, v := range vs {
		if err := binary.Read(s.r, binary.BigEndian, v); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("%s: %s", s.Path, err.Error())
		}
	}
	return nil
}

func (s *Source) readString() (string, error) {
	var n int32
	if err := s.read(&n); err != nil {
		return "", err
	}
	if n < 0 || n > 64 {
		return "", fmt.Errorf("%s: malformed string length %d", s.Path, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return "", fmt.Errorf("%s: %s", s.Path, err.Error())
	}
	return string(buf), nil
}
