package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// ConvergenceError reports a numerical routine that stopped before reaching
// the requested tolerance. Residual is the last error estimate.
type ConvergenceError struct {
	Routine  string
	Residual float64
	Tol      float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("numeric: %s did not converge (residual %.3e, tol %.3e)", e.Routine, e.Residual, e.Tol)
}

const (
	quadMinNodes = 64
	quadMaxNodes = 16384

	tailPanelWidth = 32.0
	tailMaxPanels  = 64
)

// Quad integrates f over [a, b] with Gauss-Legendre rules, doubling the node
// count until two successive estimates agree to tol. Legendre nodes are
// interior, so integrands with removable endpoint singularities are fine.
func Quad(f func(float64) float64, a, b, tol float64) (float64, error) {
	prev := quad.Fixed(f, a, b, quadMinNodes, nil, 0)
	resid := math.Inf(1)
	for n := 2 * quadMinNodes; n <= quadMaxNodes; n *= 2 {
		cur := quad.Fixed(f, a, b, n, nil, 0)
		resid = math.Abs(cur - prev)
		if resid <= tol*(1+math.Abs(cur)) {
			return cur, nil
		}
		prev = cur
	}
	return prev, &ConvergenceError{Routine: "quad", Residual: resid, Tol: tol}
}

// QuadToInf integrates f over [a, inf) by summing fixed-width panels until a
// panel's contribution falls below tol. The integrand must decay; if the
// panel budget runs out first, the last panel magnitude is reported as the
// residual.
func QuadToInf(f func(float64) float64, a, tol float64) (float64, error) {
	total := 0.0
	lo := a
	lastPanel := math.Inf(1)
	for i := 0; i < tailMaxPanels; i++ {
		hi := lo + tailPanelWidth
		panel, err := Quad(f, lo, hi, tol)
		if err != nil {
			return total + panel, err
		}
		total += panel
		lastPanel = math.Abs(panel)
		if lastPanel <= tol {
			return total, nil
		}
		lo = hi
	}
	return total, &ConvergenceError{Routine: "quad tail", Residual: lastPanel, Tol: tol}
}
