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


// Package logf tees the program log to an optional file.
// Does not add prefixes, or force newlines.
package logf

import (
	"bufio"
	"io"
	"os"
)

// The optional additional file to log into
var logFile   *bufio.Writer
var logFileOS *os.File

// LogAlsoToFile returns a writer that copies everything to stdout and
// to the given file. Call LogSync before exiting to flush the file.
func LogAlsoToFile(fileName string) (w io.Writer, err error) {
	if logFile!=nil {
		err=logFile.Flush()
		if err!=nil { return nil, err }
		err=logFileOS.Close()
		if err!=nil { return nil, err }
	}
	logFileOS, err = os.OpenFile(fileName, os.O_CREATE | os.O_TRUNC | os.O_WRONLY, 0666)
	if err!=nil {
		logFile=nil
		return nil, err
	}
	logFile=bufio.NewWriter(logFileOS)
	return io.MultiWriter(os.Stdout, logFile), nil
}

// LogSync flushes buffered log output to the file, if one is set.
func LogSync() {
	if logFile==nil { return }
	logFile.Flush()
	logFileOS.Sync()
}
