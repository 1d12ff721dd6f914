// Package variates supplies the pseudo-random draws the simulation schemes
// consume: i.i.d. standard normals, uniforms on [0,1) and exact noncentral
// chi-squared variates.
package variates

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Source is a seedable stream of variates. It is not safe for concurrent
// use; give each worker its own Source.
type Source struct {
	src     rand.Source
	normal  distuv.Normal
	uniform distuv.Uniform
}

func New(seed uint64) *Source {
	src := rand.NewSource(seed)
	return &Source{
		src:     src,
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// Normal returns a standard normal draw.
func (s *Source) Normal() float64 {
	return s.normal.Rand()
}

// Uniform returns a uniform draw on [0, 1).
func (s *Source) Uniform() float64 {
	return s.uniform.Rand()
}

// NoncentralChiSquared returns a draw from the noncentral chi-squared
// distribution with df degrees of freedom and noncentrality nc, via the
// Poisson mixture of central chi-squared laws: X ~ chi2(df + 2N),
// N ~ Poisson(nc/2). This is exact for any df > 0, nc >= 0.
func (s *Source) NoncentralChiSquared(df, nc float64) float64 {
	k := df
	if nc > 0 {
		n := distuv.Poisson{Lambda: nc / 2, Src: s.src}.Rand()
		k += 2 * n
	}
	return distuv.ChiSquared{K: k, Src: s.src}.Rand()
}
