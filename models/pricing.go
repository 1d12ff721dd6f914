package models

import (
	"fmt"
	"math"

	"github.com/bcdannyboy/heston/blackscholes"
	"github.com/bcdannyboy/heston/numeric"
)

// quadTol is the relative tolerance requested from the pricing quadrature.
const quadTol = 1e-8

// CallPrice computes the price of a European call with expiry t and strike k
// by the semi-closed Heston formula
//
//	0.5*(s - e^{-rt}k) + e^{-rt}/pi * Int_0^inf Re[e^{-iu ln k}/(iu) *
//	    (phi(u-i) - k*phi(u))] du.
//
// A quadrature that fails to reach its tolerance surfaces a
// *numeric.ConvergenceError with the residual estimate; a biased value is
// never returned silently.
func (h Heston) CallPrice(t, k float64) (float64, error) {
	if !(t > 0) {
		return 0, fmt.Errorf("heston: expiry must be positive, got %g", t)
	}
	if !(k > 0) {
		return 0, fmt.Errorf("heston: strike must be positive, got %g", k)
	}
	integral, err := numeric.QuadToInf(func(u float64) float64 {
		return h.priceIntegrand(u, t, k)
	}, 0, quadTol)
	if err != nil {
		return 0, err
	}
	disc := math.Exp(-h.R * t)
	return 0.5*(h.S-disc*k) + disc/math.Pi*integral, nil
}

// CallPrices prices elementwise over t and k under 1-D broadcasting: the
// slices must have equal length, or either may have length 1 and is
// stretched. The output length is the broadcast length.
func (h Heston) CallPrices(t, k []float64) ([]float64, error) {
	n, err := broadcastLen(len(t), len(k))
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		p, err := h.CallPrice(bcast(t, i), bcast(k, i))
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// ImpliedVol computes the model call price and inverts the Black-Scholes
// formula for it. Inversion failure is not an error: it yields NaN, so batch
// callers keep their shapes. The error reports pricing failures only.
func (h Heston) ImpliedVol(t, k float64) (float64, error) {
	price, err := h.CallPrice(t, k)
	if err != nil {
		return math.NaN(), err
	}
	return blackscholes.CallIV(h.S, h.R, price, t, k), nil
}

// ImpliedVols is the broadcasting form of ImpliedVol.
func (h Heston) ImpliedVols(t, k []float64) ([]float64, error) {
	n, err := broadcastLen(len(t), len(k))
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		iv, err := h.ImpliedVol(bcast(t, i), bcast(k, i))
		if err != nil {
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

func broadcastLen(a, b int) (int, error) {
	switch {
	case a == 0 || b == 0:
		return 0, fmt.Errorf("heston: empty input slice")
	case a == b:
		return a, nil
	case a == 1:
		return b, nil
	case b == 1:
		return a, nil
	}
	return 0, fmt.Errorf("heston: cannot broadcast lengths %d and %d", a, b)
}

func bcast(x []float64, i int) float64 {
	if len(x) == 1 {
		return x[0]
	}
	return x[i]
}
