// Public domain.

// Package gfrun holds observation runs and the dataset they form.
//
// A Dataset is read once, from YAML or from a gob cache, and is read-only
// afterward.  All run histograms are on the dataset analysis grid.
package gfrun

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/gammafit/internal/gfbin"
)

// Run is one observation run.
type Run struct {
	ID       int
	MJD      float64   // start
	Live     unit.Time // live time before dead-time correction
	DeadFrac float64
	Alpha    float64 // on/off exposure ratio
	Zenith   unit.Angle

	On, Off *gfbin.Hist // reconstructed energy, analysis grid

	// Instrument response.  Either may be nil; such a run is not used
	// for fitting.
	Aeff      *gfbin.Hist   // m², log10 true energy
	Migration *gfbin.Matrix // rows analysis grid, columns Aeff grid

	Threshold float64 // TeV
}

// LiveSeconds is the dead-time corrected live time in seconds.
func (r *Run) LiveSeconds() float64 {
	return r.Live.Sec() * (1 - r.DeadFrac)
}

// End is the MJD of the end of the run, from uncorrected live time.
func (r *Run) End() float64 {
	return r.MJD + r.Live.Sec()/86400
}

// HasResponse reports whether effective area and migration are present.
func (r *Run) HasResponse() bool {
	return r.Aeff != nil && r.Migration != nil
}

// Dataset is a set of runs on a common analysis grid.
type Dataset struct {
	Name string
	Grid *gfbin.Binning
	Runs []*Run
}

// ErrAlpha is returned by Validate for a run with non-positive alpha.
var ErrAlpha = errors.New("gfrun: alpha must be positive")

// ErrLength is returned by Validate for a histogram whose counts do not
// match its binning.
var ErrLength = errors.New("gfrun: histogram length does not match binning")

// Validate checks invariants every fitting component relies on.
func (ds *Dataset) Validate() error {
	if ds.Grid == nil {
		return errors.New("gfrun: dataset has no analysis grid")
	}
	seen := map[int]bool{}
	for _, r := range ds.Runs {
		switch {
		case seen[r.ID]:
			return fmt.Errorf("gfrun: duplicate run %d", r.ID)
		case !(r.Alpha > 0):
			return fmt.Errorf("%w: run %d alpha %g", ErrAlpha, r.ID, r.Alpha)
		case r.Live < 0 || r.DeadFrac < 0 || r.DeadFrac >= 1:
			return fmt.Errorf("gfrun: run %d invalid live time %g s dead fraction %g",
				r.ID, r.Live.Sec(), r.DeadFrac)
		case r.On == nil || r.Off == nil:
			return fmt.Errorf("gfrun: run %d missing counts", r.ID)
		case !r.On.Bins.Equal(ds.Grid) || !r.Off.Bins.Equal(ds.Grid):
			return fmt.Errorf("gfrun: run %d counts not on the analysis grid", r.ID)
		case len(r.On.Counts) != ds.Grid.N() || len(r.Off.Counts) != ds.Grid.N():
			return fmt.Errorf("%w: run %d counts", ErrLength, r.ID)
		}
		seen[r.ID] = true
		for i := range r.On.Counts {
			if r.On.Counts[i] < 0 || r.Off.Counts[i] < 0 {
				return fmt.Errorf("gfrun: run %d negative counts in bin %d", r.ID, i)
			}
		}
		if !r.HasResponse() {
			continue
		}
		if r.Aeff.Bins == nil || len(r.Aeff.Counts) != r.Aeff.Bins.N() {
			return fmt.Errorf("%w: run %d effective area", ErrLength, r.ID)
		}
		m := r.Migration
		if err := m.Check(); err != nil {
			return fmt.Errorf("run %d: %w", r.ID, err)
		}
		if !m.Rec.Equal(ds.Grid) || !m.True.Equal(r.Aeff.Bins) {
			return fmt.Errorf("gfrun: run %d migration matrix axes do not match counts and effective area", r.ID)
		}
	}
	return nil
}

// Sort orders runs by start time.
func (ds *Dataset) Sort() {
	sort.SliceStable(ds.Runs, func(i, j int) bool {
		return ds.Runs[i].MJD < ds.Runs[j].MJD
	})
}

// Span returns the MJD range covered by runs.  Ok is false with no runs.
func (ds *Dataset) Span() (start, stop float64, ok bool) {
	if len(ds.Runs) == 0 {
		return
	}
	start, stop = math.Inf(1), math.Inf(-1)
	for _, r := range ds.Runs {
		start = math.Min(start, r.MJD)
		stop = math.Max(stop, r.End())
	}
	return start, stop, true
}

// Run returns the run with the given ID, nil if absent.
func (ds *Dataset) Run(id int) *Run {
	for _, r := range ds.Runs {
		if r.ID == id {
			return r
		}
	}
	return nil
}
