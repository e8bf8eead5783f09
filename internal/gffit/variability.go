// Public domain.

package gffit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/gammafit/internal/gflike"
	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfmin"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
	"github.com/soniakeys/gammafit/internal/gfsig"
)

var ErrNoRuns = errors.New("gffit: no active runs")

// defaultFluxEMax bounds light curve flux integrals when VarOptions gives
// no upper energy.
const defaultFluxEMax = 100.

// VarOptions configure VariabilityIndex.
type VarOptions struct {
	Width       float64 // days
	Start, Stop float64 // MJD, zero for the span of the active runs

	// Light curve fluxes integrate from FluxEMin, zero for the fit range
	// minimum, to FluxEMax in TeV.
	FluxEMin, FluxEMax float64

	// Windows less significant than ULSigma get an upper limit.  Zero
	// computes none.
	ULSigma float64
}

// LightCurvePoint is the fit of one time window.
type LightCurvePoint struct {
	Window      gfrun.Window
	Runs        int
	MJD         float64 // mean run start
	Live        float64 // dead time corrected, s
	Norm        float64
	Flux, Err   float64 // integral flux, cm⁻² s⁻¹
	ErrLo       float64
	ErrHi       float64
	UL          float64 // zero when not computed
	Sigma       float64
	On, Off     float64
	Alpha       float64
	LogL, LogL0 float64 // refit, and at the time binned fit
	Status      gfmin.Status
}

// Variability is a time binned fit and its variability index.
type Variability struct {
	Values []float64 // time binned best fit
	Status gfmin.Status
	TS     float64
	NDF    int
	Prob   float64
	Points []LightCurvePoint // one per populated window
}

// VariabilityIndex fits the dataset with each time window stacked
// separately, then refits normalization alone per window.  The index
// TS = −2 Σ (logL0_w − logL_w) compares the common fit with the per
// window refits and is χ² distributed with one less degree of freedom
// than there are windows for a steady source.
func VariabilityIndex(f *Fitter, s *Session, o VarOptions) (*Variability, error) {
	e := f.Engine
	start, stop, ok := activeSpan(e)
	if !ok {
		return nil, ErrNoRuns
	}
	if o.Start > 0 {
		start = o.Start
	}
	if o.Stop > 0 {
		stop = o.Stop
	}
	bins, err := gfrun.TimeBins(start, stop, o.Width)
	if err != nil {
		return nil, err
	}
	var ws []gfrun.Window
	var runs [][]int
	for _, w := range bins {
		if r := e.InWindow(w); len(r) > 0 {
			ws = append(ws, w)
			runs = append(runs, r)
		}
	}
	if len(ws) == 0 {
		return nil, fmt.Errorf("%w in %g..%g", ErrNoRuns, start, stop)
	}

	m, st, err := f.minimize(func(p []float64) float64 {
		return e.WindowsLogL(ws, f.Spectrum, p)
	}, s.Values, s.Fixed, upSigma)
	if err != nil {
		return nil, err
	}
	tb := m.Values()
	v := &Variability{Values: tb, Status: st, NDF: len(ws) - 1}

	e1, e2 := o.FluxEMin, o.FluxEMax
	if e1 == 0 {
		e1 = s.EMin
	}
	if e2 == 0 {
		e2 = defaultFluxEMax
	}
	unit := gfmodel.Flux(f.Spectrum, with(tb, 0, 1), e1, e2)

	ds := e.Dataset()
	for k, w := range ws {
		rs := runs[k]
		stacked := func(p []float64) float64 {
			return gflike.EvalStacked(e.Stack(rs, f.Spectrum, p)).LogL
		}
		bc := e.Stack(rs, f.Spectrum, tb)
		l0 := gflike.EvalStacked(bc).LogL
		on, off, alpha := totals(bc)
		sig := gfsig.Significance(on, off, alpha, gfsig.LiMa17)
		nf, err := f.fitNorm(stacked, tb, o.ULSigma > 0 && sig < o.ULSigma)
		if err != nil {
			return nil, err
		}
		v.TS += math.Max(0, -2*(l0-nf.LogL))

		pt := LightCurvePoint{
			Window: w,
			Runs:   len(rs),
			Norm:   nf.Norm,
			Flux:   nf.Norm * unit,
			Err:    nf.Err * unit,
			ErrLo:  nf.ErrLo * unit,
			ErrHi:  nf.ErrHi * unit,
			UL:     nf.UL * unit,
			Sigma:  sig,
			On:     on,
			Off:    off,
			Alpha:  alpha,
			LogL:   nf.LogL,
			LogL0:  l0,
			Status: nf.Status,
		}
		for _, i := range rs {
			pt.MJD += ds.Runs[i].MJD
			pt.Live += ds.Runs[i].LiveSeconds()
		}
		pt.MJD /= float64(len(rs))
		v.Points = append(v.Points, pt)
	}
	if v.NDF > 0 {
		v.Prob = distuv.ChiSquared{K: float64(v.NDF)}.Survival(v.TS)
	} else {
		v.Prob = math.NaN()
	}
	gflog.L.Info().Stringer("session", s.ID).Int("windows", len(ws)).
		Float64("TS", v.TS).Float64("prob", v.Prob).Msg("variability")
	return v, nil
}

// LightCurve is the points of VariabilityIndex.
func LightCurve(f *Fitter, s *Session, o VarOptions) ([]LightCurvePoint, error) {
	v, err := VariabilityIndex(f, s, o)
	if err != nil {
		return nil, err
	}
	return v.Points, nil
}

// activeSpan is the MJD span of the active runs.
func activeSpan(e *gflike.Engine) (start, stop float64, ok bool) {
	ds := e.Dataset()
	for k, i := range e.Active() {
		r := ds.Runs[i]
		if k == 0 || r.MJD < start {
			start = r.MJD
		}
		if k == 0 || r.End() > stop {
			stop = r.End()
		}
		ok = true
	}
	return
}

// totals sums stacked bins, α weighted by off counts.
func totals(bc []gflike.BinCounts) (on, off, alpha float64) {
	var aOff, aSum float64
	var n int
	for _, c := range bc {
		if c.Runs == 0 {
			continue
		}
		on += c.On
		off += c.Off
		aOff += c.Alpha * c.Off
		aSum += c.Alpha
		n++
	}
	switch {
	case off > 0:
		alpha = aOff / off
	case n > 0:
		alpha = aSum / float64(n)
	}
	return
}
