// Public domain.

package gffit

import (
	"github.com/soniakeys/gammafit/internal/gflike"
	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfmin"
	"github.com/soniakeys/gammafit/internal/gfsig"
)

// normFit is the result of a normalization only refit.
type normFit struct {
	Norm, Err    float64
	ErrLo, ErrHi float64
	UL           float64 // zero unless requested
	LogL         float64
	Status       gfmin.Status
}

// fitNorm refits the normalization of p against likelihood l, the shape
// held at p.  With ul it also finds the 95% one sided upper limit.
func (f *Fitter) fitNorm(l func([]float64) float64, p []float64, ul bool) (r normFit, err error) {
	fx := normOnly(p)
	m, st, err := f.minimize(l, p, fx, upSigma)
	if err != nil {
		return
	}
	v := m.Values()
	r = normFit{Norm: v[0], Err: m.Errors()[0], LogL: -m.FMin(), Status: st}
	r.ErrLo, r.ErrHi, _ = m.MinosError(0)
	if !ul {
		return
	}
	mu, _, err := f.minimize(l, v, fx, upUL)
	if err != nil {
		return
	}
	_, hi, ok := mu.MinosError(0)
	if !ok {
		gflog.L.Debug().Float64("norm", v[0]).Msg("upper limit search did not close")
	}
	r.UL = mu.Values()[0] + hi
	return
}

// binFitter returns a Fitter whose likelihood covers reconstructed bin j
// alone.
func (f *Fitter) binFitter(j int) (*Fitter, error) {
	g := f.Engine.Dataset().Grid
	eng, err := f.Engine.WithRange(g.EnergyLo(j), g.EnergyHi(j))
	if err != nil {
		return nil, err
	}
	return &Fitter{Engine: eng, Spectrum: f.Spectrum, NewMinimizer: f.NewMinimizer,
		Options: Options{Method: f.Options.Method, MaxEval: f.Options.MaxEval}}, nil
}

// PointOptions configure SpectralPoints.
type PointOptions struct {
	KeepFailed bool    // keep bins whose refit did not converge
	ULTS       float64 // bins with TS below get an upper limit
}

// SpectralPoint is the flux measured in one reconstructed energy bin.
type SpectralPoint struct {
	Bin       int
	E         float64 // TeV
	ELo, EHi  float64
	Norm      float64 // refit normalization
	Flux, Err float64 // dN/dE at E, cm⁻² s⁻¹ TeV⁻¹
	ErrLo     float64 // ≤ 0
	ErrHi     float64
	UL        float64 // zero when not computed
	TS, Sigma float64
	On, Off   float64
	Alpha     float64
	Excess    float64 // On − α·Off
	Pred      float64 // predicted excess at the refit
	Status    gfmin.Status
}

// SpectralPoints refits normalization alone in each reconstructed bin
// inside the session fit range, the spectral shape held at the best fit.
//
// The point energy is the pivot for the bin containing it, otherwise the
// spectrally weighted bin centroid.  All spectra are linear in the
// normalization so the flux scales without moving the pivot.
func SpectralPoints(f *Fitter, s *Session, o PointOptions) ([]SpectralPoint, error) {
	g := f.Engine.Dataset().Grid
	e0 := s.Spectrum.Pivot()
	var pts []SpectralPoint
	for j := 0; j < g.N(); j++ {
		lo, hi := g.EnergyLo(j), g.EnergyHi(j)
		c := gflike.BinCentroid(lo, hi, s.Spectrum, s.Values)
		if c < s.EMin || c > s.EMax || !s.Spectrum.InRange(c) {
			continue
		}
		bf, err := f.binFitter(j)
		if err != nil {
			return nil, err
		}
		eng := bf.Engine
		bc := eng.Counts(s.Spectrum, s.Values)[j]
		if bc.Runs == 0 {
			continue
		}
		ts := gfsig.BinTS(bc.On, bc.Off, bc.Alpha)
		nf, err := bf.fitNorm(bf.LogL, s.Values, ts < o.ULTS)
		if err != nil {
			return nil, err
		}
		if nf.Status != gfmin.OK && !o.KeepFailed {
			gflog.L.Info().Int("bin", j).Stringer("status", nf.Status).
				Msg("spectral point dropped")
			continue
		}
		e := c
		if e0 >= lo && e0 < hi {
			e = e0
		}
		unit := s.Spectrum.DNdE(e, with(s.Values, 0, 1))
		p := with(s.Values, 0, nf.Norm)
		pred := eng.Counts(s.Spectrum, p)[j].Pred
		pts = append(pts, SpectralPoint{
			Bin:    j,
			E:      e,
			ELo:    lo,
			EHi:    hi,
			Norm:   nf.Norm,
			Flux:   nf.Norm * unit,
			Err:    nf.Err * unit,
			ErrLo:  nf.ErrLo * unit,
			ErrHi:  nf.ErrHi * unit,
			UL:     nf.UL * unit,
			TS:     ts,
			Sigma:  gfsig.Significance(bc.On, bc.Off, bc.Alpha, gfsig.LiMa17),
			On:     bc.On,
			Off:    bc.Off,
			Alpha:  bc.Alpha,
			Excess: bc.On - bc.Alpha*bc.Off,
			Pred:   pred,
			Status: nf.Status,
		})
	}
	return pts, nil
}
