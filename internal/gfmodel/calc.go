// Public domain.

package gfmodel

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// LocalIndex is the logarithmic slope d ln(dN/dE) / d ln E at e.
//
// It does not depend on normalization; a zero normalization in p is
// replaced by 1.
func LocalIndex(s Spectrum, e float64, p []float64) float64 {
	if p[0] <= 0 {
		q := append([]float64{}, p...)
		q[0] = 1
		p = q
	}
	return fd.Derivative(func(u float64) float64 {
		return math.Log(s.DNdE(math.Exp(u), p))
	}, math.Log(e), &fd.Settings{Formula: fd.Central, Step: 1e-4})
}

// Centroid is the flux weighted mean energy between e1 and e2 of a power
// law with index gamma.
func Centroid(e1, e2, gamma float64) float64 {
	const tol = 1e-9
	switch {
	case math.Abs(gamma+1) < tol:
		return (e2 - e1) / math.Log(e2/e1)
	case math.Abs(gamma+2) < tol:
		return math.Log(e2/e1) / (1/e1 - 1/e2)
	}
	g1, g2 := gamma+1, gamma+2
	return g1 / g2 * (math.Pow(e2, g2) - math.Pow(e1, g2)) /
		(math.Pow(e2, g1) - math.Pow(e1, g1))
}

// quadPoints is the Gauss-Legendre order for flux integrals.
const quadPoints = 64

// Flux integrates dN/dE from e1 to e2, giving cm⁻² s⁻¹.
func Flux(s Spectrum, p []float64, e1, e2 float64) float64 {
	if !(e2 > e1) || !(e1 > 0) {
		return 0
	}
	return quad.Fixed(func(u float64) float64 {
		e := math.Exp(u)
		return s.DNdE(e, p) * e
	}, math.Log(e1), math.Log(e2), quadPoints, nil, 0)
}

// Variance propagates covariance cov of p to the variance of dN/dE at e,
// gᵀCg with g the analytic partial derivatives of the spectrum.
func Variance(s Spectrum, p []float64, cov mat.Symmetric, e float64) float64 {
	g := make([]float64, s.NPar())
	s.Grad(g, e, p)
	v := mat.NewVecDense(len(g), g)
	return mat.Inner(v, cov, v)
}
