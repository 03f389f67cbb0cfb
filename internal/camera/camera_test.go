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


package camera

import (
	"errors"
	"testing"
)

func TestFamilyOf(t *testing.T) {
	cases:=[]struct{ m Model; channels int }{
		{CHEC, 1}, {DigiCam, 1}, {FlashCam, 1},
		{ASTRICam, 2}, {NectarCam, 2}, {LSTCam, 2},
	}
	for _,tc:=range cases {
		f, err:=FamilyOf(tc.m)
		if err!=nil {
			t.Errorf("FamilyOf(%s): %v", tc.m, err)
			continue
		}
		if f.Channels()!=tc.channels {
			t.Errorf("%s channels=%d; want %d", tc.m, f.Channels(), tc.channels)
		}
	}
}

func TestFamilyOfUnknown(t *testing.T) {
	_, err:=FamilyOf(Model("SCTCam"))
	if !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("err=%v; want ErrUnknownCamera", err)
	}
}
