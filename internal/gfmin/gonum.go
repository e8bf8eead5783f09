// Public domain.

package gfmin

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/soniakeys/gammafit/internal/gflog"
)

// Gonum is a Minimizer running Nelder-Mead from gonum/optimize, then
// optionally BFGS on finite difference gradients from the simplex
// minimum.  Covariance comes from a finite difference Hessian.
type Gonum struct {
	Polish  bool    // run BFGS after the simplex
	MaxEval int     // function evaluation limit per minimization
	Tol     float64 // absolute convergence tolerance on the objective

	f  Func
	up float64
	ps []Param

	// results
	x      []float64
	fmin   float64
	cov    *mat.SymDense
	errs   []float64
	status Status
	ncalls int
}

var _ Minimizer = (*Gonum)(nil)

// NewGonum returns a Gonum minimizer with BFGS polishing.
func NewGonum() *Gonum {
	return &Gonum{Polish: true, MaxEval: 20000, Tol: 1e-7, up: .5}
}

func (g *Gonum) SetFunc(f Func, up float64) {
	g.f, g.up = f, up
}

// SetParams copies ps.
func (g *Gonum) SetParams(ps []Param) {
	g.ps = append([]Param{}, ps...)
	g.x = nil
}

func (g *Gonum) Fix(i int, v float64) {
	g.ps[i].Value = v
	g.ps[i].Fixed = true
}

func (g *Gonum) Release(i int) {
	g.ps[i].Fixed = false
}

func (g *Gonum) Values() []float64 { return append([]float64{}, g.x...) }
func (g *Gonum) Errors() []float64 { return append([]float64{}, g.errs...) }
func (g *Gonum) FMin() float64     { return g.fmin }
func (g *Gonum) NCalls() int       { return g.ncalls }

func (g *Gonum) Covariance() *mat.SymDense {
	c := mat.NewSymDense(max(len(g.ps), 1), nil)
	if g.cov != nil {
		c.CopySym(g.cov)
	}
	return c
}

// Minimize runs the minimization and computes the covariance.
func (g *Gonum) Minimize() Status {
	g.status = g.minimize(true)
	return g.status
}

// space maps between external parameters and scaled internal coordinates
// of the free parameters.
type space struct {
	ps    []Param
	free  []int
	scale []float64
}

func newSpace(ps []Param) *space {
	s := &space{ps: ps}
	for k := range ps {
		if !ps[k].Fixed {
			s.free = append(s.free, k)
			s.scale = append(s.scale, ps[k].scale(ps[k].Value))
		}
	}
	return s
}

func (s *space) ext(v []float64) []float64 {
	x := make([]float64, len(s.ps))
	for k := range s.ps {
		x[k] = s.ps[k].Value
	}
	for m, k := range s.free {
		x[k] = s.ps[k].ext(v[m] * s.scale[m])
	}
	return x
}

func (s *space) intern(x []float64) []float64 {
	v := make([]float64, len(s.free))
	for m, k := range s.free {
		v[m] = s.ps[k].intern(x[k]) / s.scale[m]
	}
	return v
}

// jacobian is dx/dv for each free parameter.
func (s *space) jacobian(v []float64) []float64 {
	j := make([]float64, len(v))
	for m, k := range s.free {
		j[m] = s.ps[k].dext(v[m]*s.scale[m]) * s.scale[m]
	}
	return j
}

func (g *Gonum) minimize(withCov bool) Status {
	sp := newSpace(g.ps)
	n := len(g.ps)
	obj := func(v []float64) float64 {
		g.ncalls++
		return g.f(sp.ext(v))
	}
	g.cov = mat.NewSymDense(max(n, 1), nil)
	g.errs = make([]float64, n)
	if len(sp.free) == 0 {
		g.x = sp.ext(nil)
		g.ncalls++
		g.fmin = g.f(g.x)
		return OK
	}
	start := make([]float64, n)
	for k := range g.ps {
		start[k] = g.ps[k].Value
	}
	v0 := sp.intern(start)

	status := OK
	res, err := optimize.Minimize(optimize.Problem{Func: obj}, v0,
		&optimize.Settings{
			FuncEvaluations: g.MaxEval,
			Converger:       &optimize.FunctionConverge{Absolute: g.Tol, Iterations: 100},
		}, &optimize.NelderMead{SimplexSize: 1})
	if res == nil {
		gflog.L.Warn().Err(err).Msg("simplex failed")
		g.x, g.fmin = start, obj(v0)
		return Failed
	}
	if res.Status == optimize.FunctionEvaluationLimit {
		status = CallLimit
	} else if err != nil {
		status = Failed
	}
	vmin, fmin := res.X, res.F

	if g.Polish && status == OK {
		grad := func(dst, v []float64) {
			fd.Gradient(dst, obj, v, &fd.Settings{Formula: fd.Central, Step: 1e-5})
		}
		pr, err := optimize.Minimize(optimize.Problem{Func: obj, Grad: grad}, vmin,
			&optimize.Settings{
				FuncEvaluations:   g.MaxEval,
				GradientThreshold: 1e-6,
				Converger:         &optimize.FunctionConverge{Absolute: g.Tol * 1e-2, Iterations: 20},
			}, &optimize.BFGS{})
		switch {
		case pr != nil && pr.F <= fmin:
			vmin, fmin = pr.X, pr.F
		case err != nil:
			gflog.L.Debug().Err(err).Msg("BFGS polish rejected")
		}
	}
	g.x, g.fmin = sp.ext(vmin), fmin
	if !withCov || status != OK {
		return status
	}

	m := len(sp.free)
	h := mat.NewSymDense(m, nil)
	fd.Hessian(h, obj, vmin, &fd.Settings{Formula: fd.Central, Step: 1e-3})
	ci := mat.NewSymDense(m, nil)
	var chol mat.Cholesky
	if ok := chol.Factorize(h); ok && chol.InverseTo(ci) == nil {
		ci.ScaleSym(2*g.up, ci)
	} else {
		// diagonal estimate where curvature is positive
		status = NotPosDef
		for a := 0; a < m; a++ {
			if d := h.At(a, a); d > 0 {
				ci.SetSym(a, a, 2*g.up/d)
			}
		}
	}
	jac := sp.jacobian(vmin)
	for a, ka := range sp.free {
		for b := a; b < m; b++ {
			kb := sp.free[b]
			g.cov.SetSym(ka, kb, jac[a]*jac[b]*ci.At(a, b))
		}
		g.errs[ka] = math.Sqrt(g.cov.At(ka, ka))
	}
	return status
}

// profile minimizes with parameters in fix held at the given values,
// starting from the current minimum.
func (g *Gonum) profile(fix map[int]float64) float64 {
	sub := &Gonum{Polish: g.Polish, MaxEval: g.MaxEval, Tol: g.Tol, f: g.f, up: g.up}
	sub.ps = append([]Param{}, g.ps...)
	for k := range sub.ps {
		sub.ps[k].Value = g.x[k]
	}
	for k, v := range fix {
		sub.ps[k].Value = v
		sub.ps[k].Fixed = true
	}
	sub.minimize(false)
	g.ncalls += sub.ncalls
	return sub.fmin
}
