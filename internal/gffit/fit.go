// Public domain.

// Package gffit fits spectra to datasets by maximum likelihood and derives
// the products of a fit: confidence bands, spectral points, profiles,
// contours and a time binned variability index with its light curve.
//
// A Fit returns a Session.  Everything downstream takes the Session as an
// argument, nothing is cached between calls.
package gffit

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/gammafit/internal/gflike"
	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfmin"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
)

// Error levels of −logL: one standard deviation, and the 95% one sided
// upper limit at Δ(−2logL) = 2.71.
const (
	upSigma = .5
	upUL    = 2.71 / 2
)

var (
	ErrParamCount = errors.New("gffit: parameter count does not match spectrum")
	ErrMethod     = errors.New("gffit: unknown minimization method")
)

// Options configure a Fitter.
type Options struct {
	// Method is "migrad", simplex polished by gradient descent, or
	// "simplex" alone.  Empty is migrad.
	Method  string
	MaxEval int // evaluation limit, zero for the minimizer default

	// Profile errors for the listed parameters, or all free ones.
	Minos    []int
	MinosAll bool

	// Contours for parameter pairs, ContourPoints each.
	Contours      [][2]int
	ContourPoints int

	// Fixed holds parameters at the given values.
	Fixed map[int]float64
}

// Fitter fits Spectrum to the dataset of Engine.
type Fitter struct {
	Engine   *gflike.Engine
	Spectrum gfmodel.Spectrum
	Options  Options

	// NewMinimizer, if set, replaces the gonum backend.
	NewMinimizer func() gfmin.Minimizer
}

// Contour is an up contour of parameters I and J.
type Contour struct {
	I, J   int
	Points [][2]float64
}

// Session is the result of a fit.
type Session struct {
	ID       uuid.UUID
	Spectrum gfmodel.Spectrum
	Values   []float64
	Errors   []float64
	// Profile errors, ErrLo ≤ 0 ≤ ErrHi, zero where not computed.
	ErrLo, ErrHi []float64
	MinosOK      []bool
	Cov          *mat.SymDense
	Status       gfmin.Status
	LogL, LogL0  float64
	NBins, NFree int
	NCalls       int
	Fixed        map[int]float64
	Exclusions   *gfrun.Exclusions
	EMin, EMax   float64 // fit range resolved against the grid, TeV
	Contours     []Contour
}

// LogL evaluates the fit objective, the likelihood of the dataset.
func (f *Fitter) LogL(p []float64) float64 {
	return f.Engine.LogL(f.Spectrum, p)
}

func (f *Fitter) minimizer() (gfmin.Minimizer, error) {
	if f.NewMinimizer != nil {
		return f.NewMinimizer(), nil
	}
	g := gfmin.NewGonum()
	switch f.Options.Method {
	case "", "migrad":
	case "simplex":
		g.Polish = false
	default:
		return nil, fmt.Errorf("%w %q", ErrMethod, f.Options.Method)
	}
	if f.Options.MaxEval > 0 {
		g.MaxEval = f.Options.MaxEval
	}
	return g, nil
}

// minimize runs −l from init with the spectrum's parameter steps and
// bounds.
func (f *Fitter) minimize(l func(p []float64) float64, init []float64, fixed map[int]float64, up float64) (gfmin.Minimizer, gfmin.Status, error) {
	m, err := f.minimizer()
	if err != nil {
		return nil, 0, err
	}
	defs := f.Spectrum.Params()
	ps := make([]gfmin.Param, len(defs))
	for k, d := range defs {
		ps[k] = gfmin.Param{Name: d.Name, Value: init[k], Step: d.Step, Min: d.Min, Max: d.Max}
		if v := ps[k].Value; v < d.Min || v > d.Max {
			ps[k].Value = math.Max(d.Min, math.Min(d.Max, v))
		}
	}
	m.SetFunc(func(p []float64) float64 { return -l(p) }, up)
	m.SetParams(ps)
	for k, v := range fixed {
		m.Fix(k, v)
	}
	return m, m.Minimize(), nil
}

func (f *Fitter) check(init []float64) error {
	n := f.Spectrum.NPar()
	if len(init) != n {
		return fmt.Errorf("%w: %d values for %s with %d", ErrParamCount, len(init), f.Spectrum.Name(), n)
	}
	for k := range f.Options.Fixed {
		if k < 0 || k >= n {
			return fmt.Errorf("%w: fixed parameter %d", ErrParamCount, k)
		}
	}
	return nil
}

// Fit maximizes the likelihood from init, or from the spectrum defaults if
// init is nil.  Errors are returned only for malformed input, convergence
// trouble is reported in Session.Status.
func (f *Fitter) Fit(init []float64) (*Session, error) {
	if init == nil {
		init = gfmodel.Init(f.Spectrum)
	}
	if err := f.check(init); err != nil {
		return nil, err
	}
	m, st, err := f.minimize(f.LogL, init, f.Options.Fixed, upSigma)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:         uuid.New(),
		Spectrum:   f.Spectrum,
		Values:     m.Values(),
		Errors:     m.Errors(),
		Cov:        m.Covariance(),
		Status:     st,
		Exclusions: f.Engine.Exclusions(),
		Fixed:      map[int]float64{},
	}
	for k, v := range f.Options.Fixed {
		s.Fixed[k] = v
	}
	s.NFree = f.Spectrum.NPar() - len(s.Fixed)
	r := f.Engine.Eval(f.Spectrum, s.Values)
	s.LogL, s.LogL0, s.NBins = r.LogL, r.LogL0, r.NBins
	s.EMin, s.EMax = f.fitRange()

	n := len(s.Values)
	s.ErrLo = make([]float64, n)
	s.ErrHi = make([]float64, n)
	s.MinosOK = make([]bool, n)
	for _, i := range f.minosList() {
		if _, fixed := s.Fixed[i]; fixed {
			continue
		}
		lo, hi, ok := m.MinosError(i)
		s.ErrLo[i], s.ErrHi[i], s.MinosOK[i] = lo, hi, ok
		if !ok {
			gflog.L.Warn().Stringer("session", s.ID).Int("param", i).
				Msg("profile error reached a bound")
		}
	}
	s.Contours = contours(m, f.Options.Contours, f.Options.ContourPoints, s.ID)
	s.NCalls = m.NCalls()

	gflog.L.Info().Stringer("session", s.ID).Str("model", f.Spectrum.Name()).
		Stringer("status", st).Float64("logL", s.LogL).Int("bins", s.NBins).
		Int("calls", s.NCalls).Msg("fit")
	return s, nil
}

func (f *Fitter) minosList() []int {
	if !f.Options.MinosAll {
		return f.Options.Minos
	}
	l := make([]int, f.Spectrum.NPar())
	for i := range l {
		l[i] = i
	}
	return l
}

// fitRange resolves the engine range against the analysis grid.
func (f *Fitter) fitRange() (emin, emax float64) {
	o := f.Engine.Options()
	g := f.Engine.Dataset().Grid
	emin, emax = g.EnergyLo(0), g.EnergyHi(g.N()-1)
	if o.EMin > emin {
		emin = o.EMin
	}
	if o.EMax > 0 && o.EMax < emax {
		emax = o.EMax
	}
	return
}

func contours(m gfmin.Minimizer, pairs [][2]int, n int, id uuid.UUID) []Contour {
	if n < 3 {
		n = 20
	}
	var cs []Contour
	for _, p := range pairs {
		pts, err := m.Contour(p[0], p[1], n)
		if err != nil {
			gflog.L.Warn().Err(err).Stringer("session", id).
				Ints("pair", p[:]).Msg("contour")
			continue
		}
		cs = append(cs, Contour{I: p[0], J: p[1], Points: pts})
	}
	return cs
}

// Contours computes up contours for parameter pairs after the fact,
// minimizing again from the session values.
func Contours(f *Fitter, s *Session, pairs [][2]int, n int) ([]Contour, error) {
	m, _, err := f.minimize(f.LogL, s.Values, s.Fixed, upSigma)
	if err != nil {
		return nil, err
	}
	return contours(m, pairs, n, s.ID), nil
}

// Chi2 returns Λ = −2(logL − logL0) and degrees of freedom.
func (s *Session) Chi2() (float64, int) {
	return -2 * (s.LogL - s.LogL0), s.NBins - s.NFree
}

// Prob is the χ² probability of a worse fit.  It is NaN without degrees
// of freedom.
func (s *Session) Prob() float64 {
	c, ndf := s.Chi2()
	if ndf < 1 {
		return math.NaN()
	}
	return distuv.ChiSquared{K: float64(ndf)}.Survival(math.Max(c, 0))
}

// DecorrelationEnergy is the energy where normalization and index
// (parameter 1) are uncorrelated, E0·exp(−cov(N,Γ)/(N σ_Γ²)) for
// dN/dE ∝ E^Γ.  It is E0 when the index is fixed or missing.
func (s *Session) DecorrelationEnergy() float64 {
	e0 := s.Spectrum.Pivot()
	if len(s.Values) < 2 {
		return e0
	}
	vg := s.Cov.At(1, 1)
	n := s.Values[0]
	if !(vg > 0) || !(n > 0) {
		return e0
	}
	return e0 * math.Exp(-s.Cov.At(0, 1)/(n*vg))
}

// FreeParams lists parameters not fixed, in order.
func (s *Session) FreeParams() []int {
	var l []int
	for i := range s.Values {
		if _, ok := s.Fixed[i]; !ok {
			l = append(l, i)
		}
	}
	return l
}

// normOnly holds all parameters but the normalization at p.
func normOnly(p []float64) map[int]float64 {
	fx := map[int]float64{}
	for k := 1; k < len(p); k++ {
		fx[k] = p[k]
	}
	return fx
}

// with returns a copy of p with p[i] = v.
func with(p []float64, i int, v float64) []float64 {
	q := append([]float64{}, p...)
	q[i] = v
	return q
}
