// Public domain.

// Package gffold folds a spectrum through the instrument response of each
// run, predicting excess counts per reconstructed energy bin.
//
//	S[j] = Σ_l dN/dE(Ē_l) · Aeff_l · M[j][l] · T_live · ΔE_l · 10⁴
//
// Ē_l is the flux weighted centroid of true bin l for the local index of
// the spectrum, Aeff is in m² and 10⁴ converts to cm².  T_live is dead-time
// corrected.
package gffold

import (
	"math"

	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
)

// m2ToCm2 converts effective area to the flux unit area.
const m2ToCm2 = 1e4

// DefaultMaxBias is the energy bias above which a true energy column is
// not folded.
const DefaultMaxBias = .25

// Folder holds per-run column selections for a dataset.  It is built
// once, before fitting, and is read-only afterward.
type Folder struct {
	MaxBias float64
	ds      *gfrun.Dataset
	runs    []*runFold // parallel to ds.Runs, nil without response
}

type runFold struct {
	run  *gfrun.Run
	live float64
	cols []column
}

// column is one usable true energy bin.
type column struct {
	l          int
	e1, e2, de float64 // TeV
	area       float64 // cm²
}

// Prepare selects usable true energy columns for each run of ds.
//
// A column is used if its effective area is positive, its migration
// column is not empty and its energy bias |E_true − mean(E_rec)|/E_true
// does not exceed maxBias.  MaxBias ≤ 0 disables the bias cut.
//
// Runs without effective area or migration matrix are logged and yield
// no prediction.
func Prepare(ds *gfrun.Dataset, maxBias float64) *Folder {
	f := &Folder{MaxBias: maxBias, ds: ds, runs: make([]*runFold, len(ds.Runs))}
	for i, r := range ds.Runs {
		if !r.HasResponse() {
			gflog.L.Warn().Int("run", r.ID).Msg("no instrument response, run skipped")
			continue
		}
		f.runs[i] = f.prepareRun(r)
	}
	return f
}

func (f *Folder) prepareRun(r *gfrun.Run) *runFold {
	rf := &runFold{run: r, live: r.LiveSeconds()}
	tb := r.Aeff.Bins
	m := r.Migration
	var biased int
	for l := 0; l < tb.N(); l++ {
		a := r.Aeff.Counts[l]
		if !(a > 0) {
			continue
		}
		b := m.Bias(l)
		if math.IsInf(b, 1) {
			continue
		}
		if f.MaxBias > 0 && b > f.MaxBias {
			biased++
			continue
		}
		rf.cols = append(rf.cols, column{
			l:    l,
			e1:   tb.EnergyLo(l),
			e2:   tb.EnergyHi(l),
			de:   tb.EnergyWidth(l),
			area: a * m2ToCm2,
		})
	}
	gflog.L.Debug().Int("run", r.ID).Int("columns", len(rf.cols)).
		Int("biased", biased).Msg("response prepared")
	return rf
}

// Dataset returns the dataset the folder was prepared for.
func (f *Folder) Dataset() *gfrun.Dataset { return f.ds }

// Usable reports whether run i of the dataset has a response.
func (f *Folder) Usable(i int) bool { return f.runs[i] != nil }

// Columns returns the true energy bin indexes folded for run i.
func (f *Folder) Columns(i int) []int {
	rf := f.runs[i]
	if rf == nil {
		return nil
	}
	ls := make([]int, len(rf.cols))
	for k, c := range rf.cols {
		ls[k] = c.l
	}
	return ls
}

// Predict returns predicted excess counts for run i on the analysis grid.
// Dst is reused if it has the grid length.  Nil is returned for a run
// without response.
func (f *Folder) Predict(i int, s gfmodel.Spectrum, p, dst []float64) []float64 {
	rf := f.runs[i]
	if rf == nil {
		return nil
	}
	n := f.ds.Grid.N()
	if len(dst) != n {
		dst = make([]float64, n)
	} else {
		clear(dst)
	}
	m := rf.run.Migration.M
	for _, c := range rf.cols {
		g := gfmodel.LocalIndex(s, gfmodel.Centroid(c.e1, c.e2, -2), p)
		e := gfmodel.Centroid(c.e1, c.e2, g)
		w := s.DNdE(e, p) * c.de * c.area * rf.live
		if w == 0 {
			continue
		}
		for j := range dst {
			dst[j] += w * m[j][c.l]
		}
	}
	return dst
}

// Expected is the total predicted excess for run i.
func (f *Folder) Expected(i int, s gfmodel.Spectrum, p []float64) (t float64) {
	for _, c := range f.Predict(i, s, p, nil) {
		t += c
	}
	return
}
