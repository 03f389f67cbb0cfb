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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jdhp-sap/datapipe/internal/batch"
	"github.com/jdhp-sap/datapipe/internal/camera"
	"github.com/jdhp-sap/datapipe/internal/denoise"
	"github.com/jdhp-sap/datapipe/internal/fits"
	"github.com/jdhp-sap/datapipe/internal/logf"
	"github.com/jdhp-sap/datapipe/internal/plotting"
	"github.com/jdhp-sap/datapipe/internal/rest"
	"github.com/jdhp-sap/datapipe/internal/score"
	"github.com/jdhp-sap/datapipe/internal/simtel"
)

const version = "0.3.1"

var out  = flag.String("o", "", "save output to `file`. Default depends on the command")
var log  = flag.String("log", "", "save log output to `file` in addition to stdout")
var max  = flag.Int64("max", 0, "process at most `n` files or images, 0=no limit")

// extract
var integrator = flag.String("integrator", "LocalPeakIntegrator", "charge extraction strategy, one of Full, Simple, GlobalPeak, LocalPeak, NeighbourPeak, AverageWfPeak")
var winWidth   = flag.Int64("window-width", 5, "integration window width in samples")
var winShift   = flag.Int64("window-shift", 2, "integration window shift left of the peak in samples")
var t0         = flag.Int64("t0", -1, "window start sample for the Simple integrator, -1=center of readout")
var sigCutHG   = flag.Float64("sig-amp-cut-hg", -1, "high gain significance cut for the GlobalPeak integrator, <0=off")
var sigCutLG   = flag.Float64("sig-amp-cut-lg", -1, "low gain significance cut for the GlobalPeak integrator, <0=off")
var lwt        = flag.Int64("lwt", 0, "weight of the local pixel in the NeighbourPeak sum, 0=neighbors only")
var intCorr    = flag.Bool("integration-correction", false, "compensate charge outside the integration window")
var config     = flag.String("config", "", "load integrator settings from JSON5 `file`. Flags set on the command line take precedence")
var telID      = flag.String("telid", "", "comma separated telescope `ids` to keep, empty=all. A single id for the stats command")
var eventID    = flag.String("eventid", "", "comma separated event `ids` to keep, empty=all")
var cams       = flag.String("camid", "", "comma separated camera `models` to keep, e.g. LSTCam,NectarCam, empty=all")
var camFormat  = flag.Bool("camera-format", false, "keep the 1D readout order instead of mapping onto the 2D camera grid")

// denoise
var benchmark = flag.String("b", "", "benchmark `method`: mse, mpdspd or sspd. Empty renders comparison plots instead of scoring")
var hdu       = flag.Int64("hdu", 0, "read the input image from this `HDU`")
var label     = flag.String("label", "", "curve label for reports, defaults to the algorithm name")
var tiff      = flag.Bool("tiff", false, "additionally export cleaned images as 16-bit TIFF")

// stats
var metric    = flag.String("m", "", "score `metric` to plot, e.g. score_0")
var bins      = flag.Int64("bins", 30, "number of histogram bins")
var logX      = flag.Bool("logx", false, "logarithmic metric axis")
var logY      = flag.Bool("logy", false, "logarithmic event count axis")
var title     = flag.String("title", "", "overall plot title")
var exclAbort = flag.Bool("exclude-aborted", false, "drop aborted entries before plotting")
var abortOnly = flag.Bool("aborted-only", false, "keep only aborted entries")
var quiet     = flag.Bool("q", false, "suppress per-bucket summaries on stdout")

// serve
var chroot = flag.String("chroot", "", "(linux root only) serve from chroot jail `directory`")
var setuid = flag.Int64("setuid", -1, "(linux root only) serve as user `id`")

func main() {
	logWriter:=io.Writer(os.Stdout)
	start:=time.Now()
	flag.Usage=func(){
 	    fmt.Fprintf(logWriter, `Datapipe Copyright (c) 2020 The datapipe authors
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (extract|denoise|stats|serve) (file0 ... filen)

Commands:
  extract Convert simulated telescope runs (.simtel, .simtel.gz) to benchmark FITS images
  denoise Run a denoising algorithm over benchmark FITS files, scoring or plotting the results
  stats   Plot score histograms by decade of simulated energy from JSON score files
  serve   Offer the denoise and stats commands as an HTTP API
  version Show version information

Flags:
`, os.Args[0])
	    flag.PrintDefaults()
	}
	flag.Parse()

	if *log!="" {
		w, err:=logf.LogAlsoToFile(*log)
		if err!=nil {
			fmt.Fprintf(os.Stderr, "Unable to open logfile '%s'\n", *log)
			os.Exit(-1)
		}
		logWriter=w
	}

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "extract":
		err=cmdExtract(args[1:], logWriter)

	case "denoise":
		err=cmdDenoise(args[1:], logWriter)

	case "stats":
		err=cmdStats(args[1:], logWriter)

	case "serve":
		rest.MakeSandbox(*chroot, int(*setuid))
		rest.Serve()

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed:=time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
	logf.LogSync()
}

// Convert each simulated run given on the command line into one
// benchmark FITS file per selected telescope image.
func cmdExtract(args []string, logWriter io.Writer) error {
	if len(args)<1 {
		return fmt.Errorf("extract needs at least one .simtel or .simtel.gz run file")
	}

	calCfg:=simtel.DefaultCalibratorConfig()
	if *config!="" {
		var err error
		calCfg, err=loadCalibratorConfig(*config, calCfg)
		if err!=nil { return err }
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "integrator":             calCfg.Integrator=*integrator
		case "window-width":           calCfg.WindowWidth=int(*winWidth)
		case "window-shift":           calCfg.WindowShift=int(*winShift)
		case "t0":                     calCfg.T0=int(*t0)
		case "sig-amp-cut-hg":         calCfg.SigAmpCutHG=*sigCutHG
		case "sig-amp-cut-lg":         calCfg.SigAmpCutLG=*sigCutLG
		case "lwt":                    calCfg.LWT=int(*lwt)
		case "integration-correction": calCfg.IntegrationCorrection=*intCorr
		}
	})

	telIDs, err:=parseIntList(*telID)
	if err!=nil { return fmt.Errorf("-telid: %s", err.Error()) }
	eventIDs, err:=parseIntList(*eventID)
	if err!=nil { return fmt.Errorf("-eventid: %s", err.Error()) }
	models, err:=parseModelList(*cams)
	if err!=nil { return fmt.Errorf("-camid: %s", err.Error()) }

	cfg:=simtel.GeneratorConfig{
		TelescopeIDs: telIDs,
		EventIDs:     eventIDs,
		Cameras:      models,
		MaxImages:    int(*max),
		CameraFormat: *camFormat,
		Calibrator:   calCfg,
	}

	for _, path:=range args {
		if err:=extractRun(path, cfg, logWriter); err!=nil { return err }
	}
	return nil
}

func extractRun(path string, cfg simtel.GeneratorConfig, logWriter io.Writer) error {
	fmt.Fprintf(logWriter, "Extracting %s\n", path)
	gen, err:=simtel.NewGenerator(path, cfg, logWriter)
	if err!=nil { return err }
	defer gen.Close()

	for {
		set, err:=gen.Next()
		if err==io.EOF { return nil }
		if err!=nil { return err }

		telID, _:=set.Meta.Int("tel_id")
		eventID, _:=set.Meta.Int("event_id")
		outPath:=benchmarkName(path, telID, eventID)
		fmt.Fprintf(logWriter, "Writing %s\n", outPath)
		if err:=fits.SaveBenchmark(set, outPath); err!=nil { return err }
	}
}

// benchmarkName derives the per-image FITS name from the run file:
// <base>_TEL<tel>_EV<event>.fits next to the run, or under -o if given.
func benchmarkName(runPath string, telID, eventID int) string {
	base:=filepath.Base(runPath)
	for _, suffix:=range []string{".gz", ".simtel"} {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			base=base[:len(base)-len(suffix)]
		}
	}
	dir:=filepath.Dir(runPath)
	if *out!="" { dir=*out }
	return filepath.Join(dir, fmt.Sprintf("%s_TEL%03d_EV%05d.fits", base, telID, eventID))
}

func cmdDenoise(args []string, logWriter io.Writer) error {
	if len(args)<1 {
		return fmt.Errorf("denoise needs at least one benchmark FITS file or directory")
	}
	ctx:=batch.NewContext(logWriter)
	fmt.Fprintf(logWriter, "Using %d MiB of memory and up to %d threads\n", ctx.MemoryMB, ctx.MaxThreads)
	cfg:=batch.Config{
		Algorithm:       denoise.Null{},
		Label:           *label,
		BenchmarkMethod: *benchmark,
		HDUIndex:        int(*hdu),
		OutputPath:      *out,
		MaxFiles:        int(*max),
		ExportTIFF:      *tiff,
	}
	return batch.Run(ctx, cfg, args)
}

func cmdStats(args []string, logWriter io.Writer) error {
	if len(args)<1 {
		return fmt.Errorf("stats needs at least one JSON score file")
	}
	if *metric=="" {
		return fmt.Errorf("stats needs a metric, e.g. -m score_0")
	}
	if *exclAbort && *abortOnly {
		return fmt.Errorf("-exclude-aborted and -aborted-only are mutually exclusive")
	}
	statTelID:=float64(-1)
	if *telID!="" {
		v, err:=strconv.ParseFloat(*telID, 64)
		if err!=nil { return fmt.Errorf("-telid: invalid id '%s'", *telID) }
		statTelID=v
	}

	curves:=make([]plotting.Curve, 0, len(args))
	for _, path:=range args {
		f, err:=score.ReadFile(path)
		if err!=nil { return err }
		if *exclAbort { f=f.FilterAborted(false) }
		if *abortOnly { f=f.FilterAborted(true)  }
		if statTelID>=0 { f=f.FilterEqual("tel_id", statTelID) }

		buckets:=f.ByEnergyDecade(*metric)
		if !*quiet {
			fmt.Fprintf(logWriter, "%s (%s):\n", path, f.Label)
			for i, decade:=range score.EnergyDecades {
				fmt.Fprintf(logWriter, "  %g to %g TeV: %d values\n", decade[0], decade[1], len(buckets[i]))
			}
		}
		curves=append(curves, plotting.Curve{Label: f.Label, Buckets: buckets})
	}

	outPath:=*out
	if outPath=="" {
		outPath=fmt.Sprintf("score_histogram_%s.pdf", *metric)
	}
	fmt.Fprintf(logWriter, "Writing %s\n", outPath)
	return plotting.SaveEnergyHistograms(curves, plotting.HistOptions{
		Title:  *title,
		Metric: *metric,
		LogX:   *logX,
		LogY:   *logY,
		Bins:   int(*bins),
	}, outPath)
}

// parseIntList splits a comma separated list of non-negative integers.
func parseIntList(s string) ([]int, error) {
	if s=="" { return nil, nil }
	parts:=strings.Split(s, ",")
	vals:=make([]int, 0, len(parts))
	for _, p:=range parts {
		v, err:=strconv.Atoi(strings.TrimSpace(p))
		if err!=nil { return nil, fmt.Errorf("invalid id '%s'", p) }
		vals=append(vals, v)
	}
	return vals, nil
}

func parseModelList(s string) ([]camera.Model, error) {
	if s=="" { return nil, nil }
	parts:=strings.Split(s, ",")
	models:=make([]camera.Model, 0, len(parts))
	for _, p:=range parts {
		m:=camera.Model(strings.TrimSpace(p))
		if _, err:=camera.FamilyOf(m); err!=nil {
			return nil, fmt.Errorf("%s. Known models: %v", err.Error(), camera.Models())
		}
		models=append(models, m)
	}
	return models, nil
}
