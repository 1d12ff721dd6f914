package models

import (
	"math"

	"github.com/bcdannyboy/heston/variates"
)

// SimulateEuler discretizes the SDE system directly with the full-truncation
// Euler scheme: V enters square roots and diffusion coefficients as
// max(V, 0), but the stored variance itself is not truncated, so V can dip
// negative between steps. The price is simulated in the log domain and
// exponentiated, so it stays positive. Fastest scheme, O(dt) error.
func (h Heston) SimulateEuler(t float64, steps, paths int, opts SimOptions) (*PathEnsemble, error) {
	ens := newEnsemble(t, steps, paths, true)
	dt := ens.Dt
	rhoBar := math.Sqrt(1 - h.Rho*h.Rho)
	logS0 := math.Log(h.S)

	runPaths(paths, opts, func(src *variates.Source, lo, hi int) {
		for j := lo; j < hi; j++ {
			v := h.V
			x := logS0
			ens.V[0][j] = v
			ens.S[0][j] = h.S
			for i := 0; i < steps; i++ {
				z0 := src.Normal()
				z1 := src.Normal()
				vplus := math.Max(v, 0)
				sqv := math.Sqrt(vplus * dt)

				x += (h.R-0.5*vplus)*dt + sqv*(h.Rho*z0+rhoBar*z1)
				v += h.Kappa*(h.Theta-vplus)*dt + h.Sigma*sqv*z0

				ens.V[i+1][j] = v
				ens.S[i+1][j] = math.Exp(x)
			}
			tickProgress(opts)
		}
	})

	if !opts.ReturnVariance {
		ens.V = nil
	}
	return ens, nil
}
