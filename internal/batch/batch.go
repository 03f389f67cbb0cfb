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


// Package batch drives a denoising algorithm over a set of benchmark
// files, scoring or visualizing the results.
package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"

	"github.com/jdhp-sap/datapipe/internal/assess"
	"github.com/jdhp-sap/datapipe/internal/denoise"
	"github.com/jdhp-sap/datapipe/internal/files"
	"github.com/jdhp-sap/datapipe/internal/fits"
	"github.com/jdhp-sap/datapipe/internal/plotting"
	"github.com/jdhp-sap/datapipe/internal/score"
)

// Context carries the environment of a batch run.
type Context struct {
	Log        io.Writer // output for log messages
	MemoryMB   int       // total physical memory in MiB
	MaxThreads int       // maximum number of threads to use
}

// NewContext sizes a context from the host.
func NewContext(logWriter io.Writer) *Context {
	return &Context{
		Log:        logWriter,
		MemoryMB:   int(memory.TotalMemory() / 1024 / 1024),
		MaxThreads: runtime.NumCPU(),
	}
}

// Config selects the algorithm and the run mode.
type Config struct {
	Algorithm       denoise.Algorithm
	Label           string // curve label in reports; defaults to the algorithm name
	BenchmarkMethod string // scoring method; empty renders comparison plots instead
	HDUIndex        int    // HDU holding the input image, default 0
	OutputPath      string // report path; empty derives one from label and method
	MaxFiles        int    // cap on processed files if positive
	ExportTIFF      bool   // additionally export cleaned images as 16-bit TIFF
}

// The reference photoelectron image lives in the second HDU of
// benchmark files.
const referenceHDU = 1

// Run processes all benchmark FITS files reachable from the given
// paths. With a benchmark method it accumulates scores and writes a
// JSON report; without one it renders a side-by-side comparison plot
// per file. Files with degenerate images are skipped with a log note.
func Run(ctx *Context, cfg Config, paths []string) error {
	if cfg.Label == "" {
		cfg.Label = cfg.Algorithm.Name()
	}
	report := &score.Report{
		Algo:              cfg.Algorithm.Name(),
		AlgoParams:        cfg.Algorithm.Params(),
		BenchmarkMethod:   cfg.BenchmarkMethod,
		DateTime:          time.Now().Format("2006-01-02T15:04:05"),
		ExecutionTimeList: []float64{},
		HDUIndex:          cfg.HDUIndex,
		InputFilePathList: []string{},
		Label:             cfg.Label,
		ScoreList:         [][]float64{},
		System:            SystemDescription(),
	}

	it := files.NewIterator(paths, cfg.MaxFiles)
	for it.Next() {
		path := it.Path()
		lower := strings.ToLower(path)
		if strings.HasSuffix(lower, ".simtel") || strings.HasSuffix(lower, ".simtel.gz") {
			fmt.Fprintf(ctx.Log, "Skipping %s: convert simulated runs to FITS first\n", path)
			continue
		}
		if err := processFile(ctx, &cfg, report, path); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	if cfg.BenchmarkMethod == "" {
		return nil
	}
	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = fmt.Sprintf("score_%s_benchmark_%s.json", cfg.Label, cfg.BenchmarkMethod)
	}
	fmt.Fprintf(ctx.Log, "Writing %s\n", outputPath)
	return report.WriteFile(outputPath)
}

func processFile(ctx *Context, cfg *Config, report *score.Report, path string) error {
	fmt.Fprintf(ctx.Log, "Processing %s\n", path)
	input, err := fits.LoadImage(path, cfg.HDUIndex, ctx.Log)
	if err != nil {
		return err
	}

	start := time.Now()
	cleaned, err := cfg.Algorithm.Apply(input)
	if err != nil {
		return err
	}
	elapsed := time.Since(start).Seconds()

	if cfg.ExportTIFF && len(cleaned.Naxisn) == 2 {
		tiffPath := outputName(path, cfg.Label, ".tiff")
		if err := cleaned.WriteMonoTIFF16ToFile(tiffPath, cleaned.MinIgnoreNaN(), cleaned.MaxIgnoreNaN()); err != nil {
			return err
		}
	}

	if cfg.BenchmarkMethod == "" {
		return plotFile(ctx, cfg, path, input, cleaned)
	}

	reference, err := fits.LoadImage(path, referenceHDU, ctx.Log)
	if err != nil {
		return err
	}
	scores, err := assess.Assess(cleaned, reference, cfg.BenchmarkMethod)
	if errors.Is(err, assess.ErrEmptyReferenceImage) || errors.Is(err, assess.ErrEmptyOutputImage) {
		fmt.Fprintf(ctx.Log, "Skipping %s: %v\n", path, err)
		return nil
	}
	if err != nil {
		return err
	}

	report.InputFilePathList = append(report.InputFilePathList, path)
	report.ScoreList = append(report.ScoreList, scores)
	report.ExecutionTimeList = append(report.ExecutionTimeList, elapsed)
	return nil
}

func plotFile(ctx *Context, cfg *Config, path string, input, cleaned *fits.Image) error {
	images := []*fits.Image{input}
	titles := []string{"Input image"}
	if reference, err := fits.LoadImage(path, referenceHDU, ctx.Log); err == nil {
		images = append(images, reference)
		titles = append(titles, "Reference image")
	}
	images = append(images, cleaned)
	titles = append(titles, "Cleaned image")

	plotPath := outputName(path, cfg.Label, ".pdf")
	fmt.Fprintf(ctx.Log, "Writing %s\n", plotPath)
	return plotting.SaveComparison(images, titles, plotPath)
}

// outputName derives a per-file artifact name next to the input file:
// <base>_<label><ext>.
func outputName(path, label, ext string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{".gz", ".fits", ".fit"} {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			base = base[:len(base)-len(suffix)]
		}
	}
	return filepath.Join(filepath.Dir(path), base+"_"+label+ext)
}

// SystemDescription identifies the host a report was produced on.
func SystemDescription() string {
	host, _ := os.Hostname()
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s", runtime.GOOS, runtime.GOARCH, host, cpuid.CPU.BrandName))
}
