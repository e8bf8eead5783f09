// Public domain.

// Package gflike evaluates the joint on/off Poisson likelihood of a
// dataset for a spectrum, with the background in each bin profiled out by
// its closed form maximum.
//
// Per run and bin, with S the predicted excess and b the background mean
// in the off region,
//
//	logL = N_on ln(S + αb) + N_off ln b − (α+1)b − S
//
// with 0·ln 0 taken as 0.  The saturated likelihood logL0 sets the on and
// off means to the observed counts, so Λ = −2(logL − logL0) is never
// negative.
//
// An Engine is immutable and safe for repeated evaluation in any order.
package gflike

import (
	"fmt"
	"math"

	"github.com/soniakeys/gammafit/internal/gffold"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
	"github.com/soniakeys/gammafit/internal/gfsig"
)

// Options select the bins entering the likelihood.
type Options struct {
	// Fit range in TeV applied to the spectrally weighted centroid of each
	// reconstructed bin.  Zero EMax is unbounded.
	EMin, EMax float64

	// Truncate each run after the last bin with non-zero on counts, off
	// counts or predicted excess respectively.
	StopOn, StopOff, StopModel bool
}

// Engine evaluates likelihoods over a prepared dataset.
type Engine struct {
	f   *gffold.Folder
	x   *gfrun.Exclusions
	opt Options
}

// New returns an Engine.  A nil x excludes nothing.
func New(f *gffold.Folder, x *gfrun.Exclusions, opt Options) (*Engine, error) {
	if err := opt.check(); err != nil {
		return nil, err
	}
	return &Engine{f: f, x: x.Clone(), opt: opt}, nil
}

func (o Options) check() error {
	if o.EMin < 0 || o.EMax < 0 || o.EMax > 0 && o.EMax <= o.EMin {
		return fmt.Errorf("gflike: invalid energy range %g..%g", o.EMin, o.EMax)
	}
	return nil
}

func (e *Engine) Folder() *gffold.Folder        { return e.f }
func (e *Engine) Dataset() *gfrun.Dataset       { return e.f.Dataset() }
func (e *Engine) Options() Options              { return e.opt }
func (e *Engine) Exclusions() *gfrun.Exclusions { return e.x.Clone() }

// WithRange returns a copy of e restricted to [emin, emax].
func (e *Engine) WithRange(emin, emax float64) (*Engine, error) {
	o := e.opt
	o.EMin, o.EMax = emin, emax
	if err := o.check(); err != nil {
		return nil, err
	}
	return &Engine{f: e.f, x: e.x, opt: o}, nil
}

// WithExclusions returns a copy of e using exclusions x.
func (e *Engine) WithExclusions(x *gfrun.Exclusions) *Engine {
	return &Engine{f: e.f, x: x.Clone(), opt: e.opt}
}

// Active returns indexes of runs that enter likelihood sums: not excluded
// and with instrument response.
func (e *Engine) Active() []int {
	ds := e.f.Dataset()
	var a []int
	for i, r := range ds.Runs {
		if e.f.Usable(i) && !e.x.Excluded(r) {
			a = append(a, i)
		}
	}
	return a
}

// Result is a likelihood evaluation.
type Result struct {
	LogL, LogL0 float64
	NBins       int
}

// Lambda is −2(logL − logL0).
func (r Result) Lambda() float64 { return -2 * (r.LogL - r.LogL0) }

// Eval sums logL and logL0 over active runs and selected bins.
func (e *Engine) Eval(s gfmodel.Spectrum, p []float64) (r Result) {
	inRange := e.rangeMask(s, p)
	var pred []float64
	ds := e.f.Dataset()
	for _, i := range e.Active() {
		run := ds.Runs[i]
		pred = e.f.Predict(i, s, p, pred)
		use := e.binMask(run, pred, inRange)
		for j, ok := range use {
			if !ok {
				continue
			}
			non, noff := run.On.Counts[j], run.Off.Counts[j]
			r.LogL += BinLogL(non, noff, run.Alpha, pred[j])
			r.LogL0 += BinLogL0(non, noff)
			r.NBins++
		}
	}
	return
}

// LogL is Eval(s, p).LogL.
func (e *Engine) LogL(s gfmodel.Spectrum, p []float64) float64 {
	return e.Eval(s, p).LogL
}

// LogL0 is the saturated likelihood over the bins Eval(s, p) uses.
func (e *Engine) LogL0(s gfmodel.Spectrum, p []float64) float64 {
	return e.Eval(s, p).LogL0
}

// Chi2 returns Λ and degrees of freedom, bins used less nFree.
func (e *Engine) Chi2(s gfmodel.Spectrum, p []float64, nFree int) (float64, int) {
	r := e.Eval(s, p)
	return r.Lambda(), r.NBins - nFree
}

// BinLogL is the profiled likelihood of one bin.
func BinLogL(non, noff, alpha, s float64) float64 {
	b := gfsig.OffMean(non, noff, alpha, s)
	return xlny(non, s+alpha*b) + xlny(noff, b) - (alpha+1)*b - s
}

// BinLogL0 is the saturated likelihood of one bin.
func BinLogL0(non, noff float64) float64 {
	return xlny(non, non) - non + xlny(noff, noff) - noff
}

// xlny is x ln y with 0 ln 0 = 0.  A zero y with positive x also gives 0.
func xlny(x, y float64) float64 {
	if x == 0 || !(y > 0) {
		return 0
	}
	return x * math.Log(y)
}

// rangeMask flags reconstructed bins whose centroid is inside the fit
// range.
func (e *Engine) rangeMask(s gfmodel.Spectrum, p []float64) []bool {
	g := e.f.Dataset().Grid
	m := make([]bool, g.N())
	for j := range m {
		c := BinCentroid(g.EnergyLo(j), g.EnergyHi(j), s, p)
		m[j] = c >= e.opt.EMin && (e.opt.EMax == 0 || c <= e.opt.EMax)
	}
	return m
}

// BinCentroid is the centroid of [e1, e2] weighted by s at its local
// index.
func BinCentroid(e1, e2 float64, s gfmodel.Spectrum, p []float64) float64 {
	g := gfmodel.LocalIndex(s, math.Sqrt(e1*e2), p)
	return gfmodel.Centroid(e1, e2, g)
}

// binMask applies the run threshold, the fit range and truncation.
func (e *Engine) binMask(r *gfrun.Run, pred []float64, inRange []bool) []bool {
	g := e.f.Dataset().Grid
	last := len(pred) - 1
	stop := func(c []float64) {
		k := len(c) - 1
		for k >= 0 && c[k] <= 0 {
			k--
		}
		last = min(last, k)
	}
	if e.opt.StopOn {
		stop(r.On.Counts)
	}
	if e.opt.StopOff {
		stop(r.Off.Counts)
	}
	if e.opt.StopModel {
		stop(pred)
	}
	m := make([]bool, len(pred))
	for j := range m {
		m[j] = j <= last && inRange[j] && g.EnergyLo(j) >= r.Threshold
	}
	return m
}
