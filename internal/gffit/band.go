// Public domain.

package gffit

import (
	"math"

	"github.com/soniakeys/gammafit/internal/gfmodel"
)

// BandPoint is the fitted spectrum and its 1σ error at E.
type BandPoint struct {
	E, DNdE, Sigma float64
}

// Band returns up to n points log spaced across the fit range, errors
// propagated from the session covariance.  Energies outside the validity
// range of the spectrum are left out.
func Band(s *Session, n int) []BandPoint {
	if n < 2 {
		n = 2
	}
	l1, l2 := math.Log(s.EMin), math.Log(s.EMax)
	b := make([]BandPoint, 0, n)
	for i := 0; i < n; i++ {
		e := math.Exp(l1 + (l2-l1)*float64(i)/float64(n-1))
		if !s.Spectrum.InRange(e) {
			continue
		}
		v := gfmodel.Variance(s.Spectrum, s.Values, s.Cov, e)
		b = append(b, BandPoint{E: e, DNdE: s.Spectrum.DNdE(e, s.Values), Sigma: math.Sqrt(math.Max(v, 0))})
	}
	return b
}
