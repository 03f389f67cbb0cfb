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

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// SaveImage writes an in-memory image to a single-HDU FITS file with the
// given filename, creating or truncating the file as necessary.
// Only 2-D and 3-D images are supported.
func SaveImage(img *Image, fileName string) error {
	if len(img.Naxisn)!=2 && len(img.Naxisn)!=3 {
		return &WrongDimensionError{Naxis: len(img.Naxisn), Want: "2 or 3"}
	}
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()
	return writeHDU(f, img, true)
}

// Writes one image HDU: header cards, END, block padding, payload, padding.
// The first HDU of a file is primary, all others are IMAGE extensions.
func writeHDU(f io.Writer, img *Image, primary bool) error {
	// Build header in string buffer
	sb:=strings.Builder{}
	if primary {
		writeBool(&sb, "SIMPLE", true, "    FITS standard 4.0")
	} else {
		writeCardString(&sb, "XTENSION", "IMAGE", "    Image extension")
	}
	writeInt32(&sb, "BITPIX", -32, "    32-bit floating point")
	writeInt32(&sb, "NAXIS",  int32(len(img.Naxisn)), "[1] Number of axis")
	for i:=0; i<len(img.Naxisn); i++ {
		writeInt32(&sb, fmt.Sprintf("NAXIS%d",i+1), img.Naxisn[i], "[1] Axis size")
	}
	if !primary {
		writeInt32(&sb, "PCOUNT", 0, "[1] Parameter count")
		writeInt32(&sb, "GCOUNT", 1, "[1] Group count")
	}
	for _,key:=range sortedBoolKeys(img.Header.Bools) {
		writeBool(&sb, key, img.Header.Bools[key], img.Header.KeyComments[key])
	}
	for _,key:=range sortedInt32Keys(img.Header.Ints) {
		writeInt32(&sb, key, img.Header.Ints[key], img.Header.KeyComments[key])
	}
	for _,key:=range sortedFloat32Keys(img.Header.Floats) {
		writeFloat32(&sb, key, img.Header.Floats[key], img.Header.KeyComments[key])
	}
	for _,key:=range sortedStringKeys(img.Header.Strings) {
		writeCardString(&sb, key, img.Header.Strings[key], img.Header.KeyComments[key])
	}
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	bytesInHeaderBlock:=(sb.Len() % fitsBlockSize)
	if bytesInHeaderBlock>0 {
		for i:=bytesInHeaderBlock; i<fitsBlockSize; i++ {
			sb.WriteRune(' ')
		}
	}

	// Write header block(s)
	_, err:=f.Write([]byte(sb.String()))
	if err!=nil { return err }

	// Write payload data followed by block padding
	if err=writeFloat32Array(f, img.Data, false); err!=nil { return err }
	return writeDataPadding(f, len(img.Data)*4)
}

// Pads the data unit to a multiple of the FITS block size with zero bytes
func writeDataPadding(f io.Writer, dataBytes int) error {
	rem:=dataBytes % fitsBlockSize
	if rem==0 { return nil }
	_, err:=f.Write(make([]byte, fitsBlockSize-rem))
	return err
}

func sortedBoolKeys(m map[string]bool) []string {
	keys:=make([]string, 0, len(m))
	for key:=range m { keys=append(keys, key) }
	sortStrings(keys)
	return keys
}

func sortedInt32Keys(m map[string]int32) []string {
	keys:=make([]string, 0, len(m))
	for key:=range m { keys=append(keys, key) }
	sortStrings(keys)
	return keys
}

func sortedFloat32Keys(m map[string]float32) []string {
	keys:=make([]string, 0, len(m))
	for key:=range m { keys=append(keys, key) }
	sortStrings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys:=make([]string, 0, len(m))
	for key:=range m { keys=append(keys, key) }
	sortStrings(keys)
	return keys
}

// insertion sort, key counts are tiny
func sortStrings(keys []string) {
	for i:=1; i<len(keys); i++ {
		for j:=i; j>0 && keys[j]<keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	v:="F"
	if value { v="T" }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header int32 value
func writeInt32(w io.Writer, key string, value int32, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float32 value. The exponent form always carries a
// decimal point, so the header parser round-trips it.
func writeFloat32(w io.Writer, key string, value float32, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, strconv.FormatFloat(float64(value), 'E', 7, 32), comment)
}

// Writes a FITS header float64 value
func writeFloat64(w io.Writer, key string, value float64, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, strconv.FormatFloat(value, 'E', 10, 64), comment)
}

// Writes a FITS header string value, with escaping and continuations if necessary.
func writeCardString(w io.Writer, key, value, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }

	// escape ' characters
	value=strings.Join(strings.Split(value, "'"), "''")

	if len(value)<=18 {
		fmt.Fprintf(w, "%-8s= '%s'%s / %-47s", key, value, strings.Repeat(" ", 18-len(value)), comment)
	} else {
		fmt.Fprintf(w, "%-8s= '%s&' / %-47s", key, value[0:17], comment)
		value=value[17:]
		for ; len(value)>66 ; {
			fmt.Fprintf(w, "CONTINUE  '%s&' ", value[0:66])
			value=value[66:]
		}
		fmt.Fprintf(w, "CONTINUE  '%s'%s", value, strings.Repeat(" ", 50+(18-len(value))))
	}
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Writes FITS binary body data in network byte order.
// Optionally replaces NaNs with zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32, replaceNaNs bool) error {
	buf:=make([]byte,bufLen)

	for block:=0; block<len(data); block+=(bufLen>>2) {
		size:=len(data)-block
		if size>(bufLen>>2) { size=(bufLen>>2) }

		for offset:=0; offset<size; offset++ {
			d:=data[block+offset]
			if replaceNaNs && math.IsNaN(float64(d)) { d=0 }
			val:=math.Float32bits(d)
			buf[(offset<<2)+0]=byte(val>>24)
			buf[(offset<<2)+1]=byte(val>>16)
			buf[(offset<<2)+2]=byte(val>> 8)
			buf[(offset<<2)+3]=byte(val    )
		}
		_, err:=w.Write(buf[:(size<<2)])
		if err!=nil { return err }
	}
	return nil
}
