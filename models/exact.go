package models

import (
	"math"
	"math/cmplx"

	"github.com/bcdannyboy/heston/numeric"
	"github.com/bcdannyboy/heston/variates"
)

// ExactOptions tunes the Broadie-Kaya scheme's inversion of the conditional
// integrated-variance distribution.
type ExactOptions struct {
	// TruncationError is the acceptable error in the CDF series (epsilon
	// in Broadie and Kaya, formula (15)). Default 1e-5.
	TruncationError float64
	// SmallTailStddev is the number of standard deviations past the
	// conditional mean at which the tail is assumed below
	// TruncationError; it sets the series' fundamental frequency.
	// Default 5.
	SmallTailStddev float64
	// MaxSeriesTerms caps the series length. Evaluations stopped by the
	// cap instead of the tolerance rule are counted into
	// PathEnsemble.SeriesCapHits. Default 1000.
	MaxSeriesTerms int
	// SupportFactor bounds the integrated-variance support at
	// SupportFactor*dt*(Vprev+Vnext). A tail policy, not a derived
	// bound: draws past it clamp to it. Default 10.
	SupportFactor float64
}

func (o ExactOptions) withDefaults() ExactOptions {
	if o.TruncationError <= 0 {
		o.TruncationError = 1e-5
	}
	if o.SmallTailStddev <= 0 {
		o.SmallTailStddev = 5
	}
	if o.MaxSeriesTerms <= 0 {
		o.MaxSeriesTerms = 1000
	}
	if o.SupportFactor <= 0 {
		o.SupportFactor = 10
	}
	return o
}

// cfDiffStep is the finite-difference step used to estimate the mean and
// second moment of the integrated variance from the characteristic function.
const cfDiffStep = 1e-3

// bkCF is the conditional characteristic function of the integrated variance,
//
//	phi(u) = E[exp(iu Int_t^{t+dt} V_s ds) | V_t = vprev, V_{t+dt} = vnext],
//
// from Broadie and Kaya. The Bessel ratio is evaluated in the log domain so
// large arguments (small dt) do not overflow.
func (h Heston) bkCF(u, vprev, vnext, dt float64) complex128 {
	sigma2 := h.Sigma * h.Sigma
	kappa := complex(h.Kappa, 0)
	g := cmplx.Sqrt(complex(h.Kappa*h.Kappa, 0) - complex(0, 2*sigma2*u))
	c1 := math.Exp(-h.Kappa * dt)
	c1c := complex(c1, 0)
	c2 := cmplx.Exp(-g * complex(dt, 0))

	pref := g * cmplx.Sqrt(c2/c1c) * (1 - c1c) / (kappa * (1 - c2))
	expo := cmplx.Exp(complex((vprev+vnext)/sigma2, 0) *
		(kappa*(1+c1c)/(1-c1c) - g*(1+c2)/(1-c2)))

	nu := 2*h.Theta*h.Kappa/sigma2 - 1 // df/2 - 1
	coefNum := 4 * g * cmplx.Sqrt(c2) / complex(sigma2, 0) / (1 - c2)
	coefDen := complex(4*h.Kappa*math.Sqrt(c1)/(sigma2*(1-c1)), 0)

	x := math.Sqrt(vprev * vnext)
	var ratio complex128
	if x == 0 {
		// I_nu(z) ~ (z/2)^nu/Gamma(nu+1) as z -> 0, so the ratio tends
		// to (z1/z2)^nu.
		ratio = cmplx.Exp(complex(nu, 0) * (cmplx.Log(coefNum) - cmplx.Log(coefDen)))
	} else {
		xc := complex(x, 0)
		ratio = besselIRatio(nu, xc*coefNum, xc*coefDen)
	}
	return pref * expo * ratio
}

// bkDist is the conditional distribution of the integrated variance for one
// (vprev, vnext, dt) triple. It is stateless across paths: vprev and vnext
// differ per path, so one is built per (path, step) and discarded. Series
// terms are cached across the CDF evaluations of a single root-find.
type bkDist struct {
	h                Heston
	vprev, vnext, dt float64
	freq             float64
	opts             ExactOptions

	reTerms  []float64
	absTerms []float64
	capHits  int64
}

func (h Heston) newBKDist(vprev, vnext, dt float64, opts ExactOptions) *bkDist {
	cf := func(u float64) complex128 {
		return h.bkCF(u, vprev, vnext, dt)
	}
	// Conditional mean and a second-moment width from symmetric stencils
	// at u = 0: phi'(0) = i*E[X], phi''(0) = -E[X^2].
	m := real(numeric.Diff1(cf, 0, cfDiffStep) / 1i)
	s := math.Sqrt(math.Max(0, -real(numeric.Diff2(cf, 0, cfDiffStep))))
	return &bkDist{
		h:     h,
		vprev: vprev,
		vnext: vnext,
		dt:    dt,
		freq:  math.Pi / (m + s*opts.SmallTailStddev),
		opts:  opts,
	}
}

func (d *bkDist) term(j int) (re, abs float64) {
	for len(d.reTerms) < j {
		u := d.freq * float64(len(d.reTerms)+1)
		phi := d.h.bkCF(u, d.vprev, d.vnext, d.dt)
		d.reTerms = append(d.reTerms, real(phi))
		d.absTerms = append(d.absTerms, cmplx.Abs(phi))
	}
	return d.reTerms[j-1], d.absTerms[j-1]
}

// cdf evaluates P(Int V_s ds <= x | vprev, vnext) by the trigonometric
// expansion (18) of Broadie and Kaya, truncated when the term bound
// |phi(h*j)|/j drops below pi*TruncationError/2 or the term cap is reached.
func (d *bkDist) cdf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	threshold := math.Pi * d.opts.TruncationError / 2
	prob := d.freq * x / math.Pi
	j := 1
	for ; j < d.opts.MaxSeriesTerms; j++ {
		re, abs := d.term(j)
		if abs/float64(j) < threshold {
			break
		}
		prob += 2 / math.Pi * math.Sin(d.freq*float64(j)*x) / float64(j) * re
	}
	if j == d.opts.MaxSeriesTerms {
		d.capHits++
	}
	return math.Max(math.Min(prob, 1), 0)
}

// SimulateExact simulates paths with the exact scheme of Broadie and Kaya.
//
// Per step, the variance transition is sampled exactly from its noncentral
// chi-squared law, then the integrated variance over the step is recovered
// by inverting its conditional CDF at a uniform draw with a bracketing
// root-finder; the two Brownian integral components follow in closed form.
// The scheme reproduces the exact marginal laws (up to series truncation),
// so steps=1 suffices when only the terminal distribution matters. It is the
// slowest scheme: every (path, step) pair runs a root-find over the series.
func (h Heston) SimulateExact(t float64, steps, paths int, opts SimOptions) (*PathEnsemble, error) {
	ens := newEnsemble(t, steps, paths, true)
	dt := ens.Dt
	exOpts := opts.Exact.withDefaults()

	sigma2 := h.Sigma * h.Sigma
	df := 4 * h.Theta * h.Kappa / sigma2
	emkt := math.Exp(-h.Kappa * dt)
	scale := sigma2 * (1 - emkt) / (4 * h.Kappa)
	ncFactor := 4 * h.Kappa * emkt / (sigma2 * (1 - emkt))
	rhoBar := math.Sqrt(1 - h.Rho*h.Rho)
	kappaThetaDt := h.Kappa * h.Theta * dt

	runPaths(paths, opts, func(src *variates.Source, lo, hi int) {
		var capHits, invFailures int64
		for j := lo; j < hi; j++ {
			v := h.V
			s := h.S
			ens.V[0][j] = v
			ens.S[0][j] = s
			for i := 0; i < steps; i++ {
				vNext := scale * src.NoncentralChiSquared(df, ncFactor*v)

				// Scaling by 0.9999 keeps the draw away from 1,
				// where the inversion loses its bracket.
				u := src.Uniform() * 0.9999

				intV := 0.0
				xmax := exOpts.SupportFactor * dt * (v + vNext)
				if xmax > 0 {
					dist := h.newBKDist(v, vNext, dt, exOpts)
					if dist.cdf(xmax) <= u {
						// Tail policy: clamp to the support bound.
						intV = xmax
					} else {
						root, rerr := numeric.Brent(func(x float64) float64 {
							return dist.cdf(x) - u
						}, 0, xmax, xmax*1e-10, 200)
						if rerr != nil {
							// Budget exhausted: keep the best
							// iterate, but report it.
							invFailures++
						}
						intV = root
					}
					capHits += dist.capHits
				}

				intW1 := (vNext - v - kappaThetaDt + h.Kappa*intV) / h.Sigma
				intW2 := src.Normal() * math.Sqrt(intV)

				s *= math.Exp(h.R*dt - 0.5*intV + h.Rho*intW1 + rhoBar*intW2)
				v = vNext

				ens.V[i+1][j] = v
				ens.S[i+1][j] = s
			}
			tickProgress(opts)
		}
		addCounter(&ens.SeriesCapHits, capHits)
		addCounter(&ens.InversionFailures, invFailures)
	})

	if !opts.ReturnVariance {
		ens.V = nil
	}
	return ens, nil
}
