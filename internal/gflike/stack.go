// Public domain.

package gflike

import (
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
)

// BinCounts are counts of one reconstructed bin summed over runs.
type BinCounts struct {
	On, Off float64
	Alpha   float64 // off count weighted, live time weighted without off counts
	Pred    float64 // predicted excess
	Runs    int     // runs contributing
}

// Stack sums the selected bins of the given runs.  Bins no run
// contributes to have Runs == 0.
func (e *Engine) Stack(runs []int, s gfmodel.Spectrum, p []float64) []BinCounts {
	ds := e.f.Dataset()
	inRange := e.rangeMask(s, p)
	bc := make([]BinCounts, ds.Grid.N())
	aOff := make([]float64, len(bc)) // Σ α N_off
	aLive := make([]float64, len(bc))
	live := make([]float64, len(bc))
	var pred []float64
	for _, i := range runs {
		r := ds.Runs[i]
		pred = e.f.Predict(i, s, p, pred)
		if pred == nil {
			continue
		}
		t := r.LiveSeconds()
		for j, ok := range e.binMask(r, pred, inRange) {
			if !ok {
				continue
			}
			c := &bc[j]
			c.On += r.On.Counts[j]
			c.Off += r.Off.Counts[j]
			c.Pred += pred[j]
			c.Runs++
			aOff[j] += r.Alpha * r.Off.Counts[j]
			aLive[j] += r.Alpha * t
			live[j] += t
		}
	}
	for j := range bc {
		c := &bc[j]
		switch {
		case c.Off > 0:
			c.Alpha = aOff[j] / c.Off
		case live[j] > 0:
			c.Alpha = aLive[j] / live[j]
		}
	}
	return bc
}

// Counts stacks all active runs.
func (e *Engine) Counts(s gfmodel.Spectrum, p []float64) []BinCounts {
	return e.Stack(e.Active(), s, p)
}

// EvalStacked evaluates the likelihood of stacked bins.
func EvalStacked(bc []BinCounts) (r Result) {
	for _, c := range bc {
		if c.Runs == 0 || !(c.Alpha > 0) {
			continue
		}
		r.LogL += BinLogL(c.On, c.Off, c.Alpha, c.Pred)
		r.LogL0 += BinLogL0(c.On, c.Off)
		r.NBins++
	}
	return
}

// InWindow returns active runs starting in w.
func (e *Engine) InWindow(w gfrun.Window) []int {
	ds := e.f.Dataset()
	var in []int
	for _, i := range e.Active() {
		if w.Contains(ds.Runs[i].MJD) {
			in = append(in, i)
		}
	}
	return in
}

// Windows evaluates each time window separately, runs inside a window
// stacked bin by bin.  A window without active runs gives a zero Result.
func (e *Engine) Windows(ws []gfrun.Window, s gfmodel.Spectrum, p []float64) []Result {
	res := make([]Result, len(ws))
	for k, w := range ws {
		if runs := e.InWindow(w); len(runs) > 0 {
			res[k] = EvalStacked(e.Stack(runs, s, p))
		}
	}
	return res
}

// WindowsLogL is the sum of Windows logL, the objective of a time binned
// fit.
func (e *Engine) WindowsLogL(ws []gfrun.Window, s gfmodel.Spectrum, p []float64) (l float64) {
	for _, r := range e.Windows(ws, s, p) {
		l += r.LogL
	}
	return
}
