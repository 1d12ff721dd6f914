// Package blackscholes prices European calls under the Black-Scholes model
// and inverts the formula for implied volatility.
package blackscholes

import (
	"math"

	"github.com/bcdannyboy/heston/numeric"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	ivLower = 1e-9
	ivUpper = 10.0
)

// CallPrice returns the Black-Scholes price of a European call.
// sigma = 0 and t = 0 degenerate to the discounted intrinsic value.
func CallPrice(s, k, r, sigma, t float64) float64 {
	if t <= 0 || sigma <= 0 {
		return math.Max(s-k*math.Exp(-r*t), 0)
	}
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	return s*distuv.UnitNormal.CDF(d1) - k*math.Exp(-r*t)*distuv.UnitNormal.CDF(d2)
}

// CallIV inverts the Black-Scholes formula for the volatility that reproduces
// price. Returns NaN when no volatility in [1e-9, 10] does, e.g. when the
// price violates static no-arbitrage bounds. NaN is a sentinel, not an error:
// batch callers keep their array shapes.
func CallIV(s, r, price, t, k float64) float64 {
	if math.IsNaN(price) || t <= 0 || k <= 0 || s <= 0 {
		return math.NaN()
	}
	intrinsic := math.Max(s-k*math.Exp(-r*t), 0)
	if price < intrinsic || price >= s {
		return math.NaN()
	}
	f := func(sigma float64) float64 {
		return CallPrice(s, k, r, sigma, t) - price
	}
	if f(ivLower) > 0 || f(ivUpper) < 0 {
		return math.NaN()
	}
	iv, err := numeric.Brent(f, ivLower, ivUpper, 1e-12, 200)
	if err != nil {
		return math.NaN()
	}
	return iv
}
