// Public domain.

package gffit

import "fmt"

// Profile returns logL with parameter i replaced by each of values, less
// the best fit logL.  Other parameters stay at the session values.
func Profile(f *Fitter, s *Session, i int, values []float64) []float64 {
	d := make([]float64, len(values))
	for k, v := range values {
		d[k] = f.LogL(with(s.Values, i, v)) - s.LogL
	}
	return d
}

// ProfileMin is Profile with the other free parameters refit at each
// value.
func ProfileMin(f *Fitter, s *Session, i int, values []float64) ([]float64, error) {
	fixed := map[int]float64{}
	for k, v := range s.Fixed {
		fixed[k] = v
	}
	d := make([]float64, len(values))
	for k, v := range values {
		fixed[i] = v
		m, _, err := f.minimize(f.LogL, with(s.Values, i, v), fixed, upSigma)
		if err != nil {
			return nil, err
		}
		d[k] = -m.FMin() - s.LogL
	}
	return d, nil
}

// PointProfile returns the likelihood of reconstructed energy bin alone
// with the normalization at each of values, less the likelihood of the
// bin's own normalization refit.  The spectral shape stays at the session
// values.  It is the likelihood curve behind the spectral point of bin.
func PointProfile(f *Fitter, s *Session, bin int, values []float64) ([]float64, error) {
	if n := f.Engine.Dataset().Grid.N(); bin < 0 || bin >= n {
		return nil, fmt.Errorf("gffit: bin %d outside 0..%d", bin, n-1)
	}
	bf, err := f.binFitter(bin)
	if err != nil {
		return nil, err
	}
	nf, err := bf.fitNorm(bf.LogL, s.Values, false)
	if err != nil {
		return nil, err
	}
	d := make([]float64, len(values))
	for k, v := range values {
		d[k] = bf.LogL(with(s.Values, 0, v)) - nf.LogL
	}
	return d, nil
}
