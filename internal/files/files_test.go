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


package files

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err:=os.WriteFile(path, []byte("x"), 0644); err!=nil {
		t.Fatal(err)
	}
}

func TestHasImageExt(t *testing.T) {
	cases:=[]struct{ name string; want bool }{
		{"a.fits", true},
		{"a.FIT", true},
		{"run.simtel", true},
		{"run.SimTel.GZ", true},
		{"a.txt", false},
		{"a.fits.bak", false},
	}
	for _,tc:=range cases {
		if got:=HasImageExt(tc.name); got!=tc.want {
			t.Errorf("HasImageExt(%q)=%v; want %v", tc.name, got, tc.want)
		}
	}
}

func TestIteratorExpandsDirectories(t *testing.T) {
	dir:=t.TempDir()
	touch(t, filepath.Join(dir, "a.fits"))
	touch(t, filepath.Join(dir, "b.FIT"))
	touch(t, filepath.Join(dir, "c.txt"))
	touch(t, filepath.Join(dir, "run.simtel.gz"))

	got, err:=List([]string{dir}, 0)
	if err!=nil {
		t.Fatalf("List: %v", err)
	}
	want:=[]string{
		filepath.Join(dir, "a.fits"),
		filepath.Join(dir, "b.FIT"),
		filepath.Join(dir, "run.simtel.gz"),
	}
	if len(got)!=len(want) {
		t.Fatalf("len=%d; want %d (%v)", len(got), len(want), got)
	}
	for i:=range want {
		if got[i]!=want[i] {
			t.Errorf("got[%d]=%q; want %q", i, got[i], want[i])
		}
	}
}

func TestIteratorKeepsExplicitFiles(t *testing.T) {
	dir:=t.TempDir()
	path:=filepath.Join(dir, "notes.txt")
	touch(t, path)

	// explicitly named files bypass the extension filter
	got, err:=List([]string{path}, 0)
	if err!=nil {
		t.Fatalf("List: %v", err)
	}
	if len(got)!=1 || got[0]!=path {
		t.Errorf("got=%v; want [%q]", got, path)
	}
}

func TestIteratorMax(t *testing.T) {
	dir:=t.TempDir()
	touch(t, filepath.Join(dir, "a.fits"))
	touch(t, filepath.Join(dir, "b.fits"))
	touch(t, filepath.Join(dir, "c.fits"))

	got, err:=List([]string{dir}, 2)
	if err!=nil {
		t.Fatalf("List: %v", err)
	}
	if len(got)!=2 {
		t.Errorf("len=%d; want 2", len(got))
	}
}

func TestIteratorInvalidPath(t *testing.T) {
	it:=NewIterator([]string{filepath.Join(t.TempDir(), "missing.fits")}, 0)
	if it.Next() {
		t.Errorf("Next()=true; want false")
	}
	if it.Err()==nil {
		t.Errorf("Err()=nil; want error")
	}
}
