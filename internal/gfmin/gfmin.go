// Public domain.

// Package gfmin defines the minimizer used for likelihood fits and a
// backend built on gonum/optimize.
//
// A Minimizer works in external parameter space: bounded parameters are
// mapped to unbounded internal coordinates, errors and covariance are
// reported for the external values.  The error level up is the change in
// the objective defining one standard deviation, 0.5 for a negative log
// likelihood and 1 for χ².
package gfmin

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Status reports how a minimization ended.  Results are available for
// every status; only OK results are reliable.
type Status int

const (
	OK        Status = iota
	CallLimit        // function evaluation limit reached
	NotPosDef        // minimum found, curvature matrix not positive definite
	Failed
)

var statusNames = []string{"ok", "call limit", "not positive definite", "failed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Func is an objective function of external parameter values.
type Func func(x []float64) float64

// Param is one parameter of the objective.
type Param struct {
	Name     string
	Value    float64
	Step     float64 // initial step, also the scale of internal coordinates
	Min, Max float64 // infinite for no bound
	Fixed    bool
}

// Unbounded returns a free parameter without bounds.
func Unbounded(name string, value, step float64) Param {
	return Param{Name: name, Value: value, Step: step, Min: math.Inf(-1), Max: math.Inf(1)}
}

// Minimizer is the capability the fitter needs.
type Minimizer interface {
	SetFunc(f Func, up float64)
	SetParams(ps []Param)
	// Fix holds parameter i at v; Release frees it again.
	Fix(i int, v float64)
	Release(i int)
	Minimize() Status
	Values() []float64
	// Errors are symmetric errors from the covariance, zero for fixed
	// parameters.
	Errors() []float64
	FMin() float64
	// Covariance of all parameters, fixed rows and columns zero.
	Covariance() *mat.SymDense
	// MinosError returns profile errors below and above the minimum,
	// lo ≤ 0 ≤ hi.  Ok is false if a side reached a bound or the search
	// failed; that side is then the distance to the bound or zero.
	MinosError(i int) (lo, hi float64, ok bool)
	// Contour returns n points of the up contour in parameters i and j
	// with the others profiled.
	Contour(i, j, n int) ([][2]float64, error)
	NCalls() int
}
