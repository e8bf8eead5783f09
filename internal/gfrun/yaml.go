// Public domain.

package gfrun

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soniakeys/unit"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/gammafit/internal/gfbin"
	"github.com/soniakeys/gammafit/internal/gflog"
)

// BinSpec describes a binning in a dataset or config file, either as
// explicit log10 edges or as N equal bins from Min to Max.
type BinSpec struct {
	N     int       `yaml:"n"`
	Min   float64   `yaml:"min"`
	Max   float64   `yaml:"max"`
	Edges []float64 `yaml:"edges"`
}

// Binning constructs the described binning.
func (s BinSpec) Binning() (*gfbin.Binning, error) {
	if len(s.Edges) > 0 {
		return gfbin.NewEdges(s.Edges)
	}
	return gfbin.NewLog(s.N, s.Min, s.Max)
}

type yamlDataset struct {
	Name    string    `yaml:"name"`
	Binning BinSpec   `yaml:"binning"`
	Runs    []yamlRun `yaml:"runs"`
}

type yamlRun struct {
	ID        int     `yaml:"id"`
	MJD       float64 `yaml:"mjd"`
	Live      float64 `yaml:"live"` // seconds
	Dead      float64 `yaml:"dead"`
	Alpha     float64 `yaml:"alpha"`
	Zenith    float64 `yaml:"zenith"` // degrees
	Threshold float64 `yaml:"threshold"`
	Counts    struct {
		Bins BinSpec   `yaml:"bins"`
		On   []float64 `yaml:"on"`
		Off  []float64 `yaml:"off"`
	} `yaml:"counts"`
	Aeff *struct {
		Bins   BinSpec   `yaml:"bins"`
		Values []float64 `yaml:"values"`
	} `yaml:"aeff"`
	Migration *struct {
		Rows [][]float64 `yaml:"rows"`
	} `yaml:"migration"`
}

// ReadFile reads a YAML dataset.
//
// Counts and migration rows are given on the run's count binning, the
// analysis binning if omitted, and are rebinned here onto the analysis
// grid; rebinning that would need rounding is refused.  Migration columns
// follow the effective area binning and are normalized after rebinning.
func ReadFile(fn string) (*Dataset, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var y yamlDataset
	if err := yaml.Unmarshal(b, &y); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if y.Name == "" {
		y.Name = strings.TrimSuffix(filepath.Base(fn), filepath.Ext(fn))
	}
	ds, err := y.dataset()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return ds, nil
}

func (y *yamlDataset) dataset() (*Dataset, error) {
	grid, err := y.Binning.Binning()
	if err != nil {
		return nil, fmt.Errorf("analysis binning: %w", err)
	}
	ds := &Dataset{Name: y.Name, Grid: grid}
	for i := range y.Runs {
		r, err := y.Runs[i].run(grid)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", y.Runs[i].ID, err)
		}
		ds.Runs = append(ds.Runs, r)
	}
	ds.Sort()
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	gflog.L.Debug().Str("dataset", ds.Name).Int("runs", len(ds.Runs)).
		Int("bins", grid.N()).Msg("dataset read")
	return ds, nil
}

func (yr *yamlRun) run(grid *gfbin.Binning) (*Run, error) {
	cb := grid
	if s := yr.Counts.Bins; s.N > 0 || len(s.Edges) > 0 {
		var err error
		if cb, err = s.Binning(); err != nil {
			return nil, fmt.Errorf("count binning: %w", err)
		}
	}
	if len(yr.Counts.On) != cb.N() || len(yr.Counts.Off) != cb.N() {
		return nil, fmt.Errorf("%d bins but %d on and %d off counts",
			cb.N(), len(yr.Counts.On), len(yr.Counts.Off))
	}
	r := &Run{
		ID:        yr.ID,
		MJD:       yr.MJD,
		Live:      unit.Time(yr.Live),
		DeadFrac:  yr.Dead,
		Alpha:     yr.Alpha,
		Zenith:    unit.AngleFromDeg(yr.Zenith),
		Threshold: yr.Threshold,
	}
	on := &gfbin.Hist{Bins: cb, Counts: yr.Counts.On}
	off := &gfbin.Hist{Bins: cb, Counts: yr.Counts.Off}
	var err error
	if r.On, err = gfbin.Rebin(on, grid); err != nil {
		return nil, err
	}
	if r.Off, err = gfbin.Rebin(off, grid); err != nil {
		return nil, err
	}
	if yr.Aeff == nil || yr.Migration == nil {
		return r, nil
	}
	tb, err := yr.Aeff.Bins.Binning()
	if err != nil {
		return nil, fmt.Errorf("effective area binning: %w", err)
	}
	if len(yr.Aeff.Values) != tb.N() {
		return nil, fmt.Errorf("%d true energy bins but %d effective area values",
			tb.N(), len(yr.Aeff.Values))
	}
	r.Aeff = &gfbin.Hist{Bins: tb, Counts: yr.Aeff.Values}
	m := &gfbin.Matrix{Rec: cb, True: tb, M: yr.Migration.Rows}
	if err := m.Check(); err != nil {
		return nil, err
	}
	if m, err = m.RebinRec(grid); err != nil {
		return nil, err
	}
	r.Migration = m.NormalizeColumns()
	return r, nil
}
