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


// Package camera models Cherenkov telescope cameras: the supported
// instrument types, their readout channels and their pixel geometry.
package camera

import (
	"errors"
	"fmt"
)

// Model identifies a camera type by its instrument name.
type Model string

const (
	CHEC      Model = "CHEC"
	DigiCam   Model = "DigiCam"
	FlashCam  Model = "FlashCam"
	ASTRICam  Model = "ASTRICam"
	NectarCam Model = "NectarCam"
	LSTCam    Model = "LSTCam"
)

// Family groups camera models by their readout electronics.
type Family int

const (
	SingleChannel Family = iota + 1 // one gain channel
	DualChannel                     // separate high and low gain channels
)

// Channels returns the number of gain channels of the family.
func (f Family) Channels() int {
	if f==DualChannel { return 2 }
	return 1
}

var families = map[Model]Family{
	CHEC:      SingleChannel,
	DigiCam:   SingleChannel,
	FlashCam:  SingleChannel,
	ASTRICam:  DualChannel,
	NectarCam: DualChannel,
	LSTCam:    DualChannel,
}

// ErrUnknownCamera reports a camera model outside the supported set.
var ErrUnknownCamera = errors.New("unknown camera model")

// FamilyOf returns the readout family of the given camera model.
func FamilyOf(m Model) (Family, error) {
	if f, ok:=families[m]; ok { return f, nil }
	return 0, fmt.Errorf("%w %q", ErrUnknownCamera, m)
}

// Models returns all supported camera models.
func Models() []Model {
	return []Model{CHEC, DigiCam, FlashCam, ASTRICam, NectarCam, LSTCam}
}
