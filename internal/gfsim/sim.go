// Public domain.

// Package gfsim simulates observation runs: a parametric instrument
// response and Poisson distributed on and off counts for a source
// spectrum over a power law background.
//
// Simulated datasets drive the statistical tests of the fitting packages
// and the sim command.
package gfsim

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/gammafit/internal/gfbin"
	"github.com/soniakeys/gammafit/internal/gffold"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
)

// Response parametrizes a synthetic instrument.
//
// Effective area rises as AreaMax·E²/(E²+ETurnOn²).  Reconstructed log10
// energy is Gaussian around the true value shifted by Bias with standard
// deviation Resolution.
type Response struct {
	AreaMax    float64 // m²
	ETurnOn    float64 // TeV
	Resolution float64 // log10 E
	Bias       float64 // log10 E
}

// Build returns effective area on tr and a migration matrix from tr to
// rec.  Columns are normalized over rec.
func (r Response) Build(rec, tr *gfbin.Binning) (*gfbin.Hist, *gfbin.Matrix) {
	aeff := gfbin.NewHist(tr)
	m := gfbin.NewMatrix(rec, tr)
	for l := 0; l < tr.N(); l++ {
		e := tr.Energy(l)
		aeff.Fill(tr.Center(l), r.AreaMax*e*e/(e*e+r.ETurnOn*r.ETurnOn))
		n := distuv.Normal{Mu: tr.Center(l) + r.Bias, Sigma: r.Resolution}
		for j := range m.M {
			m.M[j][l] = n.CDF(rec.Hi(j)) - n.CDF(rec.Lo(j))
		}
	}
	return aeff, m.NormalizeColumns()
}

// Config describes a simulated campaign.
type Config struct {
	Name      string
	Grid      *gfbin.Binning // reconstructed energy, analysis grid
	True      *gfbin.Binning // true energy
	Response  Response
	MaxBias   float64 // bias cut for the truth folding
	Runs      int
	MJD0      float64
	Cadence   float64 // days between run starts
	Live      unit.Time
	DeadFrac  float64
	Alpha     float64
	Threshold float64 // TeV

	// Off region background: counts per second per unit log10 E at
	// 1 TeV, falling as E^BkgIndex.
	BkgRate  float64
	BkgIndex float64

	// Light, if not nil, scales the source spectrum at the run start MJD.
	Light func(mjd float64) float64
}

// Default is a campaign of ten half-hour runs on consecutive nights with a
// 10⁵ m² instrument of 0.07 decade resolution.
func Default() Config {
	grid, _ := gfbin.NewLog(12, -.6, 1.2)
	tr, _ := gfbin.NewLog(36, -.9, 1.5)
	return Config{
		Name: "sim",
		Grid: grid,
		True: tr,
		Response: Response{
			AreaMax:    1e5,
			ETurnOn:    .3,
			Resolution: .07,
		},
		MaxBias:   gffold.DefaultMaxBias,
		Runs:      10,
		MJD0:      56000,
		Cadence:   1,
		Live:      1800,
		DeadFrac:  .1,
		Alpha:     .2,
		Threshold: .2,
		BkgRate:   .05,
		BkgIndex:  -1.5,
	}
}

// Check reports malformed configuration.
func (c *Config) Check() error {
	switch {
	case c.Grid == nil || c.True == nil:
		return fmt.Errorf("gfsim: binnings required")
	case c.Runs < 1:
		return fmt.Errorf("gfsim: %d runs", c.Runs)
	case !(c.Alpha > 0):
		return fmt.Errorf("gfsim: alpha %g not positive", c.Alpha)
	case !(c.Live > 0) || c.DeadFrac < 0 || c.DeadFrac >= 1:
		return fmt.Errorf("gfsim: live time %g s dead fraction %g", c.Live.Sec(), c.DeadFrac)
	case !(c.Response.Resolution > 0) || !(c.Response.AreaMax > 0):
		return fmt.Errorf("gfsim: response needs positive area and resolution")
	case c.BkgRate < 0:
		return fmt.Errorf("gfsim: negative background rate")
	}
	return nil
}

// Sim draws datasets for a Config.
type Sim struct {
	cfg Config
	rnd *rand.Rand
}

// New returns a simulator seeded for reproducible draws.
func New(cfg Config, seed uint64) (*Sim, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &Sim{cfg: cfg, rnd: rand.New(src)}, nil
}

// Draw simulates a dataset with Poisson counts.
func (s *Sim) Draw(sp gfmodel.Spectrum, p []float64) *gfrun.Dataset {
	return s.dataset(sp, p, s.poisson)
}

// Asimov returns the dataset whose counts equal their expectations.
func (s *Sim) Asimov(sp gfmodel.Spectrum, p []float64) *gfrun.Dataset {
	return s.dataset(sp, p, func(mean float64) float64 { return mean })
}

func (s *Sim) poisson(mean float64) float64 {
	if !(mean > 0) {
		return 0
	}
	return distuv.Poisson{Lambda: mean, Src: s.rnd}.Rand()
}

// Expected returns mean on and off counts, indexed by run then bin.
func (s *Sim) Expected(sp gfmodel.Spectrum, p []float64) (on, off [][]float64) {
	ds := s.skeleton()
	f := gffold.Prepare(ds, s.cfg.MaxBias)
	on = make([][]float64, len(ds.Runs))
	off = make([][]float64, len(ds.Runs))
	for i, r := range ds.Runs {
		off[i] = s.offMean(r)
		q := p
		if s.cfg.Light != nil {
			q = append([]float64{}, p...)
			q[0] *= s.cfg.Light(r.MJD)
		}
		on[i] = f.Predict(i, sp, q, nil)
		for j := range on[i] {
			on[i][j] += r.Alpha * off[i][j]
		}
	}
	return
}

func (s *Sim) dataset(sp gfmodel.Spectrum, p []float64, draw func(float64) float64) *gfrun.Dataset {
	on, off := s.Expected(sp, p)
	ds := s.skeleton()
	for i, r := range ds.Runs {
		for j := range on[i] {
			r.On.Counts[j] = draw(on[i][j])
			r.Off.Counts[j] = draw(off[i][j])
		}
	}
	return ds
}

// skeleton builds runs with response and zero counts.
func (s *Sim) skeleton() *gfrun.Dataset {
	c := &s.cfg
	ds := &gfrun.Dataset{Name: c.Name, Grid: c.Grid}
	for i := 0; i < c.Runs; i++ {
		aeff, m := c.Response.Build(c.Grid, c.True)
		ds.Runs = append(ds.Runs, &gfrun.Run{
			ID:        i + 1,
			MJD:       c.MJD0 + float64(i)*c.Cadence,
			Live:      c.Live,
			DeadFrac:  c.DeadFrac,
			Alpha:     c.Alpha,
			On:        gfbin.NewHist(c.Grid),
			Off:       gfbin.NewHist(c.Grid),
			Aeff:      aeff,
			Migration: m,
			Threshold: c.Threshold,
		})
	}
	return ds
}

func (s *Sim) offMean(r *gfrun.Run) []float64 {
	g := s.cfg.Grid
	b := make([]float64, g.N())
	for j := range b {
		b[j] = s.cfg.BkgRate * r.LiveSeconds() * g.Width(j) *
			math.Pow(g.Energy(j), s.cfg.BkgIndex)
	}
	return b
}
