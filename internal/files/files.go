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


// Package files discovers event image files on disk.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions of recognized event image files, lowercase.
var Extensions = []string{".simtel", ".simtel.gz", ".fits", ".fit"}

// HasImageExt reports whether the file name carries a recognized
// extension. The comparison is case-insensitive.
func HasImageExt(name string) bool {
	lower:=strings.ToLower(name)
	for _,ext:=range Extensions {
		if strings.HasSuffix(lower, ext) { return true }
	}
	return false
}

// Iterator walks a list of file and directory paths and yields event
// image files one at a time. Directories are expanded one level deep,
// keeping only entries with a recognized extension; explicitly listed
// files are yielded as given. A non-positive max yields everything.
type Iterator struct {
	pending []string // remaining top-level paths, in argument order
	entries []string // remaining entries of the directory being expanded
	max     int
	count   int
	path    string
	err     error
}

// NewIterator returns an iterator over the given paths, yielding at
// most max files if max is positive.
func NewIterator(paths []string, max int) *Iterator {
	return &Iterator{pending: append([]string(nil), paths...), max: max}
}

// Next advances to the next file. It returns false when the sequence is
// exhausted or an error occurred; check Err afterwards.
func (it *Iterator) Next() bool {
	if it.err!=nil { return false }
	if it.max>0 && it.count>=it.max { return false }

	for {
		if len(it.entries)>0 {
			it.path=it.entries[0]
			it.entries=it.entries[1:]
			it.count++
			return true
		}
		if len(it.pending)==0 { return false }

		path:=it.pending[0]
		it.pending=it.pending[1:]
		info, err:=os.Stat(path)
		if err!=nil {
			it.err=fmt.Errorf("invalid path %s: %w", path, err)
			return false
		}
		switch {
		case info.Mode().IsRegular():
			it.path=path
			it.count++
			return true
		case info.IsDir():
			dirents, err:=os.ReadDir(path)
			if err!=nil {
				it.err=err
				return false
			}
			for _,de:=range dirents {
				if de.Type().IsRegular() && HasImageExt(de.Name()) {
					it.entries=append(it.entries, filepath.Join(path, de.Name()))
				}
			}
		default:
			it.err=fmt.Errorf("invalid path %s: not a file or directory", path)
			return false
		}
	}
}

// Path returns the file yielded by the last successful call to Next.
func (it *Iterator) Path() string { return it.path }

// Err returns the first error encountered while iterating, if any.
func (it *Iterator) Err() error { return it.err }

// List eagerly collects all files the iterator would yield.
func List(paths []string, max int) ([]string, error) {
	it:=NewIterator(paths, max)
	res:=[]string{}
	for it.Next() {
		res=append(res, it.Path())
	}
	return res, it.Err()
}
