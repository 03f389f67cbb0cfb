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
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

// Open reads all HDUs of the FITS file with the given name.
// Decompresses gzip if .gz or .gzip suffix is present.
func Open(fileName string, logWriter io.Writer) (hdus []*Image, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	ext := strings.ToLower(path.Ext(fileName))
	if ext == ".gz" || ext == ".gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return ReadAll(r, fileName, logWriter)
}

// ReadAll reads consecutive HDUs from the reader until end of stream.
// Image HDUs are decoded to float32; other extensions keep header only.
func ReadAll(r io.Reader, fileName string, logWriter io.Writer) (hdus []*Image, err error) {
	hdus = []*Image{}
	for index := 0; ; index++ {
		img := NewImage()
		img.FileName = fileName
		img.HDUIndex = index
		err = img.read(r, index == 0, logWriter)
		if err == io.EOF {
			if index == 0 {
				return nil, &WrongFileStructureError{FilePath: fileName, Reason: "empty file"}
			}
			break
		}
		if err != nil {
			return nil, err
		}
		hdus = append(hdus, img)
	}
	return hdus, nil
}

// LoadImage returns the image stored in the given HDU of a FITS file.
func LoadImage(fileName string, hduIndex int, logWriter io.Writer) (*Image, error) {
	hdus, err := Open(fileName, logWriter)
	if err != nil {
		return nil, err
	}
	if hduIndex < 0 || hduIndex >= len(hdus) {
		return nil, &WrongHDUError{FilePath: fileName, HDUIndex: hduIndex}
	}
	img := hdus[hduIndex]
	if !img.IsImage {
		return nil, &NotAnImageError{FilePath: fileName, HDUIndex: hduIndex}
	}
	return img, nil
}

func (fits *Image) PopHeaderInt32(key string) (res int32, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.HDUIndex, key)
}

func (fits *Image) PopHeaderInt32OrFloat(key string) (res float32, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return float32(val), nil
	} else if val, ok := fits.Header.Floats[key]; ok {
		delete(fits.Header.Floats, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.HDUIndex, key)
}

// Reads one HDU: header, then data for image HDUs, skipping block padding.
// Returns io.EOF if the reader is exhausted at an HDU boundary.
func (fits *Image) read(r io.Reader, primary bool, logWriter io.Writer) (err error) {
	err = fits.Header.read(r, fits.HDUIndex, logWriter)
	if err != nil {
		return err
	}

	if primary {
		// check mandatory fields as per standard
		if !fits.Header.Bools["SIMPLE"] {
			return fmt.Errorf("%d: not a valid FITS file; SIMPLE=T missing in header", fits.HDUIndex)
		}
		delete(fits.Header.Bools, "SIMPLE")
		fits.IsImage = true
	} else {
		xtension := strings.TrimRight(fits.Header.Strings["XTENSION"], " ")
		delete(fits.Header.Strings, "XTENSION")
		fits.IsImage = xtension == "IMAGE"
	}

	if fits.Bitpix, err = fits.PopHeaderInt32("BITPIX"); err != nil {
		return err
	}
	var naxis int32
	if naxis, err = fits.PopHeaderInt32("NAXIS"); err != nil {
		return err
	}
	fits.Naxisn = make([]int32, naxis)
	fits.Pixels = int32(1)
	for i := int32(1); i <= naxis; i++ {
		name := "NAXIS" + strconv.FormatInt(int64(i), 10)
		var nai int32
		if nai, err = fits.PopHeaderInt32(name); err != nil {
			return err
		}
		fits.Naxisn[i-1] = nai
		fits.Pixels *= int32(nai)
	}
	if naxis == 0 {
		fits.Pixels = 0
	}

	// extension data size includes the parameter and group counts
	pcount, err := fits.PopHeaderInt32("PCOUNT")
	if err != nil {
		pcount = 0
	}
	gcount, err := fits.PopHeaderInt32("GCOUNT")
	if err != nil {
		gcount = 1
	}

	if fits.Bzero, err = fits.PopHeaderInt32OrFloat("BZERO"); err != nil {
		fits.Bzero = 0
	}
	if fits.Bscale, err = fits.PopHeaderInt32OrFloat("BSCALE"); err != nil {
		fits.Bscale = 1
	}

	bytesPerValue := int64(fits.Bitpix) / 8
	if bytesPerValue < 0 {
		bytesPerValue = -bytesPerValue
	}
	dataBytes := bytesPerValue * int64(gcount) * (int64(pcount) + int64(fits.Pixels))
	bytesConsumed := int64(0)

	if fits.IsImage && fits.Pixels > 0 {
		if err = fits.readData(r, logWriter); err != nil {
			return err
		}
		bytesConsumed = bytesPerValue * int64(fits.Pixels)
	}

	// skip unread payload bytes and block padding; missing padding on the
	// last HDU of a stream is tolerated
	skip := dataBytes - bytesConsumed
	if rem := dataBytes % int64(fitsBlockSize); rem > 0 {
		skip += int64(fitsBlockSize) - rem
	}
	if skip > 0 {
		if _, err = io.CopyN(io.Discard, r, skip); err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}

// Batched read of image data, converting from network byte order and
// applying Bzero/Bscale. NaN values pass through unchanged.
func (fits *Image) readData(r io.Reader, logWriter io.Writer) (err error) {
	switch fits.Bitpix {
	case 8, 16, -32:
		// no precision loss
	case 32, 64:
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting int%d to float32 values\n", fits.HDUIndex, fits.Bitpix)
	case -64:
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting float%d to float32 values\n", fits.HDUIndex, -fits.Bitpix)
	default:
		return fmt.Errorf("%d: unknown BITPIX value %d", fits.HDUIndex, fits.Bitpix)
	}

	bytesPerValue := int(fits.Bitpix) / 8
	if bytesPerValue < 0 {
		bytesPerValue = -bytesPerValue
	}

	fits.Data = make([]float32, int(fits.Pixels))
	buf := make([]byte, bufLen)

	dataIndex := 0
	leftoverBytes := 0
	for dataIndex < len(fits.Data) {
		bytesToRead := (len(fits.Data)-dataIndex)*bytesPerValue - leftoverBytes
		if bytesToRead > bufLen-leftoverBytes {
			bytesToRead = bufLen - leftoverBytes
		}
		bytesRead, err := r.Read(buf[leftoverBytes : leftoverBytes+bytesToRead])
		if bytesRead == 0 && err != nil {
			return fmt.Errorf("%d: %s", fits.HDUIndex, err.Error())
		}

		availableBytes := leftoverBytes + bytesRead
		usableBytes := availableBytes - availableBytes%bytesPerValue
		for i := 0; i < usableBytes; i += bytesPerValue {
			var val float32
			switch fits.Bitpix {
			case 8:
				val = float32(buf[i])
			case 16:
				val = float32(int16((uint16(buf[i]) << 8) | uint16(buf[i+1])))
			case 32:
				val = float32(int32((uint32(buf[i]) << 24) | (uint32(buf[i+1]) << 16) | (uint32(buf[i+2]) << 8) | uint32(buf[i+3])))
			case 64:
				val = float32(int64((uint64(buf[i]) << 56) | (uint64(buf[i+1]) << 48) | (uint64(buf[i+2]) << 40) | (uint64(buf[i+3]) << 32) |
					(uint64(buf[i+4]) << 24) | (uint64(buf[i+5]) << 16) | (uint64(buf[i+6]) << 8) | uint64(buf[i+7])))
			case -32:
				bits := (uint32(buf[i]) << 24) | (uint32(buf[i+1]) << 16) | (uint32(buf[i+2]) << 8) | uint32(buf[i+3])
				val = math.Float32frombits(bits)
			case -64:
				bits := (uint64(buf[i]) << 56) | (uint64(buf[i+1]) << 48) | (uint64(buf[i+2]) << 40) | (uint64(buf[i+3]) << 32) |
					(uint64(buf[i+4]) << 24) | (uint64(buf[i+5]) << 16) | (uint64(buf[i+6]) << 8) | uint64(buf[i+7])
				val = float32(math.Float64frombits(bits))
			}
			fits.Data[dataIndex+i/bytesPerValue] = val*fits.Bscale + fits.Bzero
		}
		dataIndex += usableBytes / bytesPerValue
		leftoverBytes = availableBytes - usableBytes
		copy(buf[:leftoverBytes], buf[usableBytes:availableBytes])
	}
	fits.Bzero, fits.Bscale = 0, 1 // reflect that data values incorporate these now
	return nil
}

const bufLen int = 16 * 1024 // input buffer length for reading from file

func (h *Header) read(r io.Reader, id int, logWriter io.Writer) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		bytesRead, err := io.ReadFull(r, buf)
		if err == io.EOF && h.Length == 0 {
			return io.EOF // clean end of stream at HDU boundary
		}
		if err != nil || bytesRead != fitsBlockSize {
			return fmt.Errorf("%d: %s", id, err.Error())
		}
		h.Length += int32(bytesRead)

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				fmt.Fprintf(logWriter, "%d: Warning:Cannot parse '%s', ignoring\n", id, string(line))
			} else {
				subNames := reParser.SubexpNames()
				h.readLine(subNames, subValues, id, lineNo, logWriter)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, logWriter io.Writer) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] != nil && len(subNames[i]) == 1 {
			switch c := subNames[i][0]; c {
			case byte('E'): // end line
				h.End = true
			case byte('H'): // history line
				h.History = append(h.History, string(subValues[i]))
			case byte('C'): // comment line
				h.Comments = append(h.Comments, string(subValues[i]))
			case byte('k'): // key
				key = string(subValues[i])
			case byte('b'): // boolean
				h.continueKey = ""
				if len(subValues[i]) > 0 {
					v := subValues[i][0]
					h.Bools[key] = v == byte('t') || v == byte('T')
				}
			case byte('i'): // int
				h.continueKey = ""
				val, err := strconv.ParseInt(string(subValues[i]), 10, 64)
				if err == nil {
					h.Ints[key] = int32(val)
				}
			case byte('f'): // float
				h.continueKey = ""
				val, err := strconv.ParseFloat(string(subValues[i]), 64)
				if err == nil {
					h.Floats[key] = float32(val)
				}
			case byte('s'): // string; a trailing & continues on the next card
				v := strings.TrimRight(string(subValues[i]), " ")
				if strings.HasSuffix(v, "&") {
					v = v[:len(v)-1]
					h.continueKey = key
				} else {
					h.continueKey = ""
				}
				h.Strings[key] = v
			case byte('n'): // continuation of the preceding string value
				if h.continueKey != "" {
					v := string(subValues[i])
					more := strings.HasSuffix(v, "&")
					if more {
						v = v[:len(v)-1]
					}
					h.Strings[h.continueKey] += v
					if !more {
						h.continueKey = ""
					}
				} else {
					fmt.Fprintf(logWriter, "%d:%d:Warning:CONTINUE without a preceding string, ignoring\n", id, lineNo)
				}
			case byte('d'): // date
				h.continueKey = ""
				h.Dates[key] = string(subValues[i])
			case byte('c'): // value comment, carries units
				if key != "" {
					comment := strings.TrimSpace(string(subValues[i]))
					if comment != "" {
						h.KeyComments[key] = comment
					}
				}
			default:
				fmt.Fprintf(logWriter, "%d:%d:Warning:Unknown token '%s'\n", id, lineNo, string(c))
			}
		}
	}
}

func (h *Header) Print() {
	fmt.Printf("Bools   : %v\n", h.Bools)
	fmt.Printf("Ints    : %v\n", h.Ints)
	fmt.Printf("Floats  : %v\n", h.Floats)
	fmt.Printf("Strings : %v\n", h.Strings)
	fmt.Printf("Dates   : %v\n", h.Dates)
	fmt.Printf("History : %v\n", h.History)
	fmt.Printf("Comments: %v\n", h.Comments)
	fmt.Printf("End     : %v\n", h.End)
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + white + "(?P<H>" + rest + ")"

	commKey := "COMMENT"
	commLine := commKey + white + "(?P<C>" + rest + ")"

	contKey := "CONTINUE"
	contLine := contKey + white + "'(?P<n>[^']*)'" + whiteOpt

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?[0-9]*\\.[0-9]*(?:[ED][-+]?[0-9]+)?)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)" // FIXME: other variants possible, see ISO8601
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	// missing: complex int: (nr, nr)
	// missing: complex float: (nr, nr)

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + contLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
