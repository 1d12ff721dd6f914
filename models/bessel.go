package models

import (
	"math"
	"math/cmplx"
)

// Modified Bessel function of the first kind, in the log domain and for
// complex arguments. The Broadie-Kaya conditional characteristic function
// needs the ratio I_nu(z1)/I_nu(z2) where both arguments grow like
// 1/dt, so the functions themselves overflow float64 long before the ratio
// does; only log values are ever materialized.

const (
	besselSeriesMaxIter = 1000
	besselSeriesEps     = 1e-15
	// Power series below this modulus, asymptotic expansion above.
	besselAsympCutoff = 25.0
)

// logBesselI returns log I_nu(z) for nu >= 0 and Re(z) > 0.
func logBesselI(nu float64, z complex128) complex128 {
	if cmplx.Abs(z) < besselAsympCutoff {
		return logBesselISeries(nu, z)
	}
	return logBesselIAsymp(nu, z)
}

// logBesselISeries sums the ascending power series
// I_nu(z) = (z/2)^nu/Gamma(nu+1) * sum_k (z^2/4)^k / (k! (nu+1)_k)
// with the leading factor kept in logs.
func logBesselISeries(nu float64, z complex128) complex128 {
	q := z * z / 4
	sum := complex(1, 0)
	term := complex(1, 0)
	for k := 0; k < besselSeriesMaxIter; k++ {
		term *= q / complex(float64(k+1)*(nu+float64(k+1)), 0)
		sum += term
		if cmplx.Abs(term) < besselSeriesEps*cmplx.Abs(sum) {
			break
		}
	}
	lg, _ := math.Lgamma(nu + 1)
	return complex(nu, 0)*cmplx.Log(z/2) - complex(lg, 0) + cmplx.Log(sum)
}

// logBesselIAsymp uses the large-argument expansion
// I_nu(z) ~ e^z/sqrt(2 pi z) * (1 - (mu-1)/(8z) + (mu-1)(mu-9)/(2!(8z)^2) - ...)
// with mu = 4 nu^2. Three correction terms are ample beyond the cutoff.
func logBesselIAsymp(nu float64, z complex128) complex128 {
	mu := 4 * nu * nu
	z8 := 8 * z
	corr := complex(1, 0) -
		complex(mu-1, 0)/z8 +
		complex((mu-1)*(mu-9), 0)/(2*z8*z8) -
		complex((mu-1)*(mu-9)*(mu-25), 0)/(6*z8*z8*z8)
	return z - 0.5*cmplx.Log(2*math.Pi*z) + cmplx.Log(corr)
}

// besselIRatio returns I_nu(z1)/I_nu(z2), overflow-safe for large arguments.
func besselIRatio(nu float64, z1, z2 complex128) complex128 {
	return cmplx.Exp(logBesselI(nu, z1) - logBesselI(nu, z2))
}
