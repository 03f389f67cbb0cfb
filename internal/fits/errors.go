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


package fits

import "fmt"

// WrongHDUError reports a request for an HDU index the file does not have.
type WrongHDUError struct {
	FilePath string
	HDUIndex int
}

func (e *WrongHDUError) Error() string {
	return fmt.Sprintf("file %s doesn't contain data in HDU %d", e.FilePath, e.HDUIndex)
}

// NotAnImageError reports a request for image data from a non-image HDU
// (e.g. a binary table extension).
type NotAnImageError struct {
	FilePath string
	HDUIndex int
}

func (e *NotAnImageError) Error() string {
	return fmt.Sprintf("HDU %d of file %s doesn't contain image data", e.HDUIndex, e.FilePath)
}

// WrongDimensionError reports an image whose number of axes is unsupported
// by the requested operation.
type WrongDimensionError struct {
	Naxis int
	Want  string
}

func (e *WrongDimensionError) Error() string {
	return fmt.Sprintf("wrong number of image axes %d, want %s", e.Naxis, e.Want)
}

// WrongFileStructureError reports a file that doesn't follow the expected
// benchmark HDU layout.
type WrongFileStructureError struct {
	FilePath string
	Reason   string
}

func (e *WrongFileStructureError) Error() string {
	return fmt.Sprintf("unexpected structure in file %s: %s", e.FilePath, e.Reason)
}
