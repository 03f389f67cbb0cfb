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


package logf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogAlsoToFileTees(t *testing.T) {
	path:=filepath.Join(t.TempDir(), "run.log")
	w, err:=LogAlsoToFile(path)
	if err!=nil {
		t.Fatalf("LogAlsoToFile: %v", err)
	}
	fmt.Fprintf(w, "Processing %s\n", "ev1.fits")
	fmt.Fprintln(w, "Done")
	LogSync()

	data, err:=os.ReadFile(path)
	if err!=nil {
		t.Fatal(err)
	}
	got:=string(data)
	if !strings.Contains(got, "Processing ev1.fits") || !strings.Contains(got, "Done") {
		t.Errorf("log file=%q; want the teed messages", got)
	}
}

func TestLogAlsoToFileBadPath(t *testing.T) {
	if _, err:=LogAlsoToFile(filepath.Join(t.TempDir(), "no", "such", "dir.log")); err==nil {
		t.Errorf("LogAlsoToFile(missing dir)=nil error; want error")
	}
}
