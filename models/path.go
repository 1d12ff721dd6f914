package models

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/bcdannyboy/heston/variates"
	"golang.org/x/exp/rand"
)

// Scheme selects a path-simulation method.
type Scheme string

const (
	SchemeEuler Scheme = "euler"
	SchemeQE    Scheme = "qe"
	SchemeExact Scheme = "exact"
)

// SimOptions configures a simulate call.
type SimOptions struct {
	// Seed seeds the variate streams. Each worker derives its own
	// sub-stream deterministically from it, so runs with the same seed and
	// worker count are reproducible. Zero means a random seed.
	Seed uint64
	// Workers is the number of goroutines paths are fanned out over.
	// Zero means GOMAXPROCS.
	Workers int
	// ReturnVariance requests the variance grid alongside the price grid.
	ReturnVariance bool
	// Progress, if non-nil, is called once per completed path. It must be
	// safe for concurrent use.
	Progress func(n int)
	// Exact holds the options consumed by the exact scheme only.
	Exact ExactOptions
}

// PathEnsemble holds simulated paths on the uniform grid t_i = i*Dt.
// S[i][j] is path j of the price process at t_i; V is present only when
// requested. The ensemble is owned by the caller and never cached.
type PathEnsemble struct {
	S  [][]float64
	V  [][]float64
	Dt float64

	Steps int
	Paths int

	// SeriesCapHits counts, for the exact scheme, CDF evaluations whose
	// series truncation was forced by the term cap rather than the
	// tolerance rule. Nonzero values flag parameter regimes where the cap
	// may bias the inversion.
	SeriesCapHits int64
	// InversionFailures counts, for the exact scheme, integrated-variance
	// draws whose CDF root-find exhausted its iteration budget. Such draws
	// keep the root-finder's best iterate; nonzero values flag regimes
	// where the inversion tolerance was not met.
	InversionFailures int64
}

// Simulate draws paths of the price (and optionally variance) processes over
// [0, t] with the selected scheme. The output grids have shape
// (steps+1, paths).
func (h Heston) Simulate(scheme Scheme, t float64, steps, paths int, opts SimOptions) (*PathEnsemble, error) {
	if !(t > 0) {
		return nil, fmt.Errorf("heston: simulation horizon must be positive, got %g", t)
	}
	if steps < 1 {
		return nil, fmt.Errorf("heston: steps must be at least 1, got %d", steps)
	}
	if paths < 1 {
		return nil, fmt.Errorf("heston: paths must be at least 1, got %d", paths)
	}
	switch scheme {
	case SchemeEuler:
		return h.SimulateEuler(t, steps, paths, opts)
	case SchemeQE:
		return h.SimulateQE(t, steps, paths, opts)
	case SchemeExact:
		return h.SimulateExact(t, steps, paths, opts)
	}
	return nil, fmt.Errorf("heston: unknown scheme %q", scheme)
}

func newEnsemble(t float64, steps, paths int, withV bool) *PathEnsemble {
	ens := &PathEnsemble{
		S:     newGrid(steps+1, paths),
		Dt:    t / float64(steps),
		Steps: steps,
		Paths: paths,
	}
	if withV {
		ens.V = newGrid(steps+1, paths)
	}
	return ens
}

func newGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

// Terminal returns the final row of the price grid.
func (p *PathEnsemble) Terminal() []float64 {
	return p.S[p.Steps]
}

// runPaths fans the path axis out over workers. Paths are statistically
// independent, so workers share nothing but the (disjoint-column) output
// grids; fn simulates paths [lo, hi) with its own variate source.
func runPaths(paths int, opts SimOptions, fn func(src *variates.Source, lo, hi int)) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > paths {
		workers = paths
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var wg sync.WaitGroup
	chunk := (paths + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > paths {
			hi = paths
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			// Golden-ratio increment keeps worker sub-streams apart.
			fn(variates.New(seed+uint64(w)*0x9e3779b97f4a7c15), lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()
}

func addCounter(addr *int64, n int64) {
	if n != 0 {
		atomic.AddInt64(addr, n)
	}
}

func tickProgress(opts SimOptions) {
	if opts.Progress != nil {
		opts.Progress(1)
	}
}
