// Package models implements the Heston stochastic-volatility model: the
// semi-closed-form call pricing formula built on the stable characteristic
// function, Black-Scholes implied volatilities, calibration to market smiles,
// and path simulation by the Euler, Andersen QE and Broadie-Kaya schemes.
//
// Under the pricing measure the model is
//
//	dS_t = r*S_t*dt + sqrt(V_t)*S_t*dW1_t
//	dV_t = kappa*(theta - V_t)*dt + sigma*sqrt(V_t)*dW2_t
//
// with corr(dW1, dW2) = rho.
package models

import (
	"fmt"
	"math"
)

// Heston holds a validated parameter set. Values are immutable: operations
// never mutate the receiver, and calibration returns a fresh instance.
type Heston struct {
	S     float64 // Initial price
	V     float64 // Initial variance
	Kappa float64 // Mean reversion speed of variance
	Theta float64 // Long-term variance
	Sigma float64 // Volatility of variance
	Rho   float64 // Correlation between asset returns and variance
	R     float64 // Risk-free rate
}

// NewHeston validates the parameter ranges and returns the model. Range
// violations are construction-time errors, never clamped.
func NewHeston(s, v, kappa, theta, sigma, rho, r float64) (Heston, error) {
	switch {
	case !(s > 0):
		return Heston{}, fmt.Errorf("heston: initial price must be positive, got %g", s)
	case !(v >= 0):
		return Heston{}, fmt.Errorf("heston: initial variance must be non-negative, got %g", v)
	case !(kappa > 0):
		return Heston{}, fmt.Errorf("heston: kappa must be positive, got %g", kappa)
	case !(theta > 0):
		return Heston{}, fmt.Errorf("heston: theta must be positive, got %g", theta)
	case !(sigma > 0):
		return Heston{}, fmt.Errorf("heston: sigma must be positive, got %g", sigma)
	case !(rho > -1 && rho < 1):
		return Heston{}, fmt.Errorf("heston: rho must lie in (-1, 1), got %g", rho)
	case math.IsNaN(r) || math.IsInf(r, 0):
		return Heston{}, fmt.Errorf("heston: rate must be finite, got %g", r)
	}
	return Heston{S: s, V: v, Kappa: kappa, Theta: theta, Sigma: sigma, Rho: rho, R: r}, nil
}

// FellerCondition reports whether 2*kappa*theta >= sigma^2, under which the
// variance process stays strictly positive in continuous time.
func (h Heston) FellerCondition() bool {
	return 2*h.Kappa*h.Theta >= h.Sigma*h.Sigma
}

func (h Heston) String() string {
	return fmt.Sprintf("Heston(s=%g, v=%g, kappa=%g, theta=%g, sigma=%g, rho=%g, r=%g)",
		h.S, h.V, h.Kappa, h.Theta, h.Sigma, h.Rho, h.R)
}
