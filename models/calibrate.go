package models

import (
	"fmt"
	"math"
	mrand "math/rand"

	"github.com/MaxHalford/eaopt"
	"gonum.org/v1/gonum/optimize"
)

// Calibration bounds: v, kappa, theta and sigma are bounded below by zero and
// rho by [-1, 1]; the upper bounds are the finite box differential evolution
// searches (generous for equity-index smiles).
var (
	calibLower = [5]float64{0, 0, 0, 0, -1}
	calibUpper = [5]float64{2, 10, 2, 5, 1}
)

// paramFloor keeps strictly-positive parameters away from the boundary where
// the characteristic function degenerates.
const paramFloor = 1e-6

// CalibrateOptions configures Calibrate.
type CalibrateOptions struct {
	// Method is "neldermead" (gonum simplex, default) or "diffevo"
	// (eaopt differential evolution over the bounded box).
	Method string
	// MaxIterations bounds the optimizer's major iterations (NelderMead)
	// or generations (diffevo). Zero means a method default.
	MaxIterations int
	// Seed seeds the differential-evolution RNG; ignored by neldermead.
	Seed uint64
}

// CalibrateResult carries optimizer diagnostics: non-convergence is not
// fatal, the caller inspects Converged and decides.
type CalibrateResult struct {
	Method     string
	Converged  bool
	Status     string
	Objective  float64
	FuncEvals  int
	Parameters []float64 // (v, kappa, theta, sigma, rho) at the optimum
}

// Calibrate fits the model parameters v, kappa, theta, sigma, rho to market
// implied volatilities by bounded least squares, minimizing
// ||modelIV(t, k) - iv||. t broadcasts against k; iv must match the
// broadcast length. The initial guess takes the at-the-money market variance
// for v and theta, matching the reference calibration.
//
// The returned model is a fresh instance; nothing is mutated. The optimizer's
// best iterate is returned even when it did not formally converge.
func Calibrate(t, k, iv []float64, s, r float64, opts CalibrateOptions) (Heston, *CalibrateResult, error) {
	n, err := broadcastLen(len(t), len(k))
	if err != nil {
		return Heston{}, nil, err
	}
	if len(iv) != n {
		return Heston{}, nil, fmt.Errorf("heston: %d market vols for %d quotes", len(iv), n)
	}
	if !(s > 0) {
		return Heston{}, nil, fmt.Errorf("heston: initial price must be positive, got %g", s)
	}

	// ATM market variance seeds v and theta.
	atm := 0
	for i := range iv {
		if math.Abs(bcast(k, i)-s) < math.Abs(bcast(k, atm)-s) {
			atm = i
		}
	}
	v0 := iv[atm] * iv[atm]
	x0 := []float64{v0, 1.0, v0, 1.0, -0.5}

	objective := func(p []float64) float64 {
		m := paramModel(p, s, r)
		loss := 0.0
		for i := 0; i < n; i++ {
			mv, err := m.ImpliedVol(bcast(t, i), bcast(k, i))
			if err != nil || math.IsNaN(mv) {
				// Unpriceable point: steer the optimizer away
				// without aborting the search.
				loss += 10
				continue
			}
			loss += (mv - iv[i]) * (mv - iv[i])
		}
		return math.Sqrt(loss)
	}

	var res *CalibrateResult
	switch opts.Method {
	case "", "neldermead":
		res = calibrateNelderMead(objective, x0, opts)
	case "diffevo":
		res = calibrateDiffEvo(objective, opts)
	default:
		return Heston{}, nil, fmt.Errorf("heston: unknown calibration method %q", opts.Method)
	}

	fitted := paramModel(res.Parameters, s, r)
	res.Parameters = []float64{fitted.V, fitted.Kappa, fitted.Theta, fitted.Sigma, fitted.Rho}
	return fitted, res, nil
}

// paramModel clamps an optimizer iterate into the bounded box and builds the
// model. Clamping applies to optimizer-internal iterates only; user-facing
// construction stays strict.
func paramModel(p []float64, s, r float64) Heston {
	c := func(x, lo, hi float64) float64 {
		return math.Max(lo, math.Min(hi, x))
	}
	return Heston{
		S:     s,
		V:     c(p[0], calibLower[0], calibUpper[0]),
		Kappa: c(p[1], calibLower[1]+paramFloor, calibUpper[1]),
		Theta: c(p[2], calibLower[2]+paramFloor, calibUpper[2]),
		Sigma: c(p[3], calibLower[3]+paramFloor, calibUpper[3]),
		Rho:   c(p[4], calibLower[4]+paramFloor, calibUpper[4]-paramFloor),
		R:     r,
	}
}

func calibrateNelderMead(objective func([]float64) float64, x0 []float64, opts CalibrateOptions) *CalibrateResult {
	settings := &optimize.Settings{}
	if opts.MaxIterations > 0 {
		settings.MajorIterations = opts.MaxIterations
	}
	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})

	res := &CalibrateResult{Method: "neldermead"}
	if result != nil {
		// Budget exhaustion is a normal termination in gonum, not an
		// error; it still is not convergence.
		limited := result.Status == optimize.IterationLimit ||
			result.Status == optimize.FunctionEvaluationLimit ||
			result.Status == optimize.RuntimeLimit
		res.Converged = err == nil && !limited
		res.Status = result.Status.String()
		res.Objective = result.F
		res.FuncEvals = result.FuncEvaluations
		res.Parameters = result.X
	} else {
		// No iterate at all: fall back to the initial guess.
		res.Status = fmt.Sprintf("failed: %v", err)
		res.Objective = objective(x0)
		res.Parameters = x0
	}
	return res
}

func calibrateDiffEvo(objective func([]float64) float64, opts CalibrateOptions) *CalibrateResult {
	generations := uint(60)
	if opts.MaxIterations > 0 {
		generations = uint(opts.MaxIterations)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}

	// eaopt's DiffEvo takes one scalar bound pair, so the search runs in
	// the unit cube and maps to the per-parameter box.
	fromCube := func(u []float64) []float64 {
		p := make([]float64, len(u))
		for i := range u {
			p[i] = calibLower[i] + u[i]*(calibUpper[i]-calibLower[i])
		}
		return p
	}
	cubeObjective := func(u []float64) float64 {
		return objective(fromCube(u))
	}

	res := &CalibrateResult{Method: "diffevo"}
	de, err := eaopt.NewDiffEvo(40, generations, 0, 1, 0.5, 0.2, false, mrand.New(mrand.NewSource(int64(seed))))
	if err != nil {
		res.Status = fmt.Sprintf("failed: %v", err)
		res.Parameters = []float64{0.04, 1, 0.04, 1, -0.5}
		res.Objective = objective(res.Parameters)
		return res
	}
	best, bestF, err := de.Minimize(cubeObjective, 5)
	if err != nil {
		res.Status = fmt.Sprintf("failed: %v", err)
		res.Parameters = []float64{0.04, 1, 0.04, 1, -0.5}
		res.Objective = objective(res.Parameters)
		return res
	}
	res.Converged = true
	res.Status = "generations exhausted"
	res.Objective = bestF
	res.FuncEvals = int(generations) * 40
	res.Parameters = fromCube(best)
	return res
}
