package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/bcdannyboy/heston/models"
	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/cpu"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"github.com/xhhuango/json"
	"gonum.org/v1/gonum/stat"
)

type schemeSummary struct {
	Scheme        string  `json:"scheme"`
	Steps         int     `json:"steps"`
	Paths         int     `json:"paths"`
	TerminalMean  float64 `json:"terminal_mean"`
	TerminalStd   float64 `json:"terminal_std"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	SeriesCapHits int64   `json:"series_cap_hits,omitempty"`
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func main() {
	_ = godotenv.Load() // optional .env with HESTON_* overrides

	paths := envInt("HESTON_PATHS", 20000)
	steps := envInt("HESTON_STEPS", 100)
	exactPaths := envInt("HESTON_EXACT_PATHS", 2000)
	seed := uint64(envInt("HESTON_SEED", 42))
	workers := envInt("HESTON_WORKERS", runtime.GOMAXPROCS(0))

	if ncpu, err := cpu.Counts(true); err == nil {
		fmt.Printf("logical CPUs: %d, workers: %d\n", ncpu, workers)
	}

	model, err := models.NewHeston(100, 0.04, 2.0, 0.04, 0.3, -0.7, 0.0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(model)

	price, err := model.CallPrice(1, 100)
	if err != nil {
		log.Fatal(err)
	}
	iv, err := model.ImpliedVol(1, 100)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("call(t=1, k=100) = %.6f, implied vol = %.6f\n", price, iv)

	strikes := []float64{80, 90, 95, 100, 105, 110, 120}
	smile, err := model.ImpliedVols([]float64{1}, strikes)
	if err != nil {
		log.Fatal(err)
	}
	fitted, calRes, err := models.Calibrate([]float64{1}, strikes, smile, 100, 0,
		models.CalibrateOptions{MaxIterations: 150})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("calibrated: %v\n", fitted)
	fmt.Printf("calibration: method=%s status=%q objective=%.2e evals=%d\n",
		calRes.Method, calRes.Status, calRes.Objective, calRes.FuncEvals)

	runs := []struct {
		scheme models.Scheme
		steps  int
		paths  int
	}{
		{models.SchemeEuler, steps, paths},
		{models.SchemeQE, steps, paths},
		// The exact scheme reproduces the terminal law with a single step.
		{models.SchemeExact, 1, exactPaths},
	}

	progress := mpb.New(mpb.WithWidth(64))
	var summaries []schemeSummary
	for _, run := range runs {
		bar := progress.AddBar(int64(run.paths),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("%-6s", run.scheme)),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
		start := time.Now()
		ens, err := model.Simulate(run.scheme, 1, run.steps, run.paths, models.SimOptions{
			Seed:     seed,
			Workers:  workers,
			Progress: func(n int) { bar.IncrBy(n) },
		})
		if err != nil {
			log.Fatal(err)
		}
		term := ens.Terminal()
		summaries = append(summaries, schemeSummary{
			Scheme:        string(run.scheme),
			Steps:         run.steps,
			Paths:         run.paths,
			TerminalMean:  stat.Mean(term, nil),
			TerminalStd:   math.Sqrt(stat.Variance(term, nil)),
			ElapsedMs:     time.Since(start).Milliseconds(),
			SeriesCapHits: ens.SeriesCapHits,
		})
	}
	progress.Wait()

	out, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}
