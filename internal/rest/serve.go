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


package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/stat"

	"github.com/jdhp-sap/datapipe/internal/batch"
	"github.com/jdhp-sap/datapipe/internal/denoise"
	"github.com/jdhp-sap/datapipe/internal/score"
)

func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",    getPing)
			v1.POST("/denoise", postDenoise)
			v1.POST("/stats",   postStats)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m,err:=json.MarshalIndent(args, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// checkPaths rejects absolute paths and parent references, keeping
// requests inside the server working directory.
func checkPaths(paths []string) error {
	for _,p:=range paths {
		if filepath.IsAbs(p) {
			return fmt.Errorf("absolute path %s not allowed", p)
		}
		for _,part:=range strings.Split(filepath.ToSlash(p), "/") {
			if part==".." {
				return fmt.Errorf("parent reference in path %s not allowed", p)
			}
		}
	}
	return nil
}

type postDenoiseArgs struct {
	Paths     []string `json:"paths"`
	Benchmark string   `json:"benchmark"`
	HDU       int      `json:"hdu"`
	Output    string   `json:"output"`
	MaxFiles  int      `json:"maxFiles"`
}

func postDenoise(c *gin.Context) {
	logWriter := c.Writer
	var args postDenoiseArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if err:=checkPaths(append(append([]string{}, args.Paths...), args.Output)); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err:=printArgs(logWriter, "Arguments:\n", "\n", args); err!=nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx:=batch.NewContext(logWriter)
	cfg:=batch.Config{
		Algorithm:       denoise.Null{},
		BenchmarkMethod: args.Benchmark,
		HDUIndex:        args.HDU,
		OutputPath:      args.Output,
		MaxFiles:        args.MaxFiles,
	}
	if err:=batch.Run(ctx, cfg, args.Paths); err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}

type postStatsArgs struct {
	Files  []string `json:"files"`
	Metric string   `json:"metric"`
	TelID  *float64 `json:"telId"`
}

type bucketSummary struct {
	Energy [2]float64 `json:"energy_tev"`
	Count  int        `json:"count"`
	Mean   float64    `json:"mean"`
	StdDev float64    `json:"std_dev"`
}

func postStats(c *gin.Context) {
	var args postStatsArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if args.Metric=="" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric is required"} )
		return
	}
	if err:=checkPaths(args.Files); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	res:=map[string][]bucketSummary{}
	for _,path:=range args.Files {
		f, err:=score.ReadFile(path)
		if err!=nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
			return
		}
		f=f.FilterAborted(false)
		if args.TelID!=nil {
			f=f.FilterEqual("tel_id", *args.TelID)
		}
		summaries:=make([]bucketSummary, 0, len(score.EnergyDecades))
		for bucket, vals:=range f.ByEnergyDecade(args.Metric) {
			s:=bucketSummary{Energy: score.EnergyDecades[bucket], Count: len(vals)}
			if len(vals)>0 {
				s.Mean=stat.Mean(vals, nil)
				s.StdDev=stat.StdDev(vals, nil)
			}
			summaries=append(summaries, s)
		}
		res[f.Label]=summaries
	}
	c.JSON(http.StatusOK, res)
}
