// Public domain.

// Package gfsig implements on/off counting statistics: detection
// significance, upper limits on an excess, the per-bin test statistic and
// the closed form maximum likelihood background for the joint on/off
// Poisson likelihood.
//
// Functions here never fail on statistical edge cases such as zero counts.
// Malformed input is reported through gflog and a zero result returned.
package gfsig

import (
	"math"

	"github.com/soniakeys/gammafit/internal/gflog"
)

// Formula selects a significance formula.
type Formula int

const (
	// Simple is the Gaussian approximation N_sig/sqrt(N_on+α²N_off).
	Simple Formula = iota
	// LiMa5 is N_sig/sqrt(α(N_on+N_off)), Li & Ma equation 5.
	LiMa5
	// LiMa17 is the likelihood ratio form, Li & Ma equation 17.
	LiMa17
)

var formulaNames = []string{"simple", "lima5", "lima17"}

func (f Formula) String() string {
	if f < 0 || int(f) >= len(formulaNames) {
		return "unknown"
	}
	return formulaNames[f]
}

// clampLimit is the magnitude below which the bracketed likelihood ratio
// sum is taken as zero.
const clampLimit = 1e-5

// Significance computes detection significance in standard deviations
// for non counts in the on region, noff counts in the off region and
// on/off exposure ratio alpha.
func Significance(non, noff, alpha float64, f Formula) float64 {
	if alpha == 0 {
		return 0
	}
	nsig := non - alpha*noff
	switch f {
	case Simple:
		d := non + alpha*alpha*noff
		if d <= 0 {
			return 0
		}
		return nsig / math.Sqrt(d)
	case LiMa5:
		d := alpha * (non + noff)
		if d <= 0 {
			return 0
		}
		return nsig / math.Sqrt(d)
	case LiMa17:
		return liMa17(non, noff, alpha, nsig)
	}
	gflog.L.Warn().Int("formula", int(f)).Msg("unknown significance formula")
	return 0
}

func liMa17(non, noff, alpha, nsig float64) float64 {
	ntot := non + noff
	if ntot == 0 {
		return 0
	}
	var sum float64
	if non > 0 {
		sum += non * math.Log((1+alpha)/alpha*non/ntot)
	}
	if noff > 0 {
		sum += noff * math.Log((1+alpha)*noff/ntot)
	}
	if math.Abs(sum) < clampLimit || sum < 0 {
		return 0
	}
	s := math.Sqrt(2 * sum)
	if nsig < 0 {
		return -s
	}
	return s
}

// BinTS is the likelihood ratio test statistic for a signal in a single
// on/off bin.  It is the square of the LiMa17 significance.
func BinTS(non, noff, alpha float64) float64 {
	ntot := non + noff
	if alpha <= 0 || ntot == 0 {
		return 0
	}
	var ts float64
	if non > 0 {
		ts += non * math.Log((1+alpha)*non/(alpha*ntot))
	}
	if noff > 0 {
		ts += noff * math.Log((1+alpha)*noff/ntot)
	}
	if ts < 0 {
		return 0
	}
	return 2 * ts
}

// OffMean returns the maximum likelihood mean off-region background b for
// the joint likelihood Pois(non; s+αb)·Pois(noff; b) at fixed signal s.
//
// The result is the non-negative root of the stationarity condition and is
// exact.  Alpha must be > 0; otherwise 0 is returned.
func OffMean(non, noff, alpha, s float64) float64 {
	if alpha <= 0 {
		return 0
	}
	k := alpha * (alpha + 1)
	a := alpha*(non+noff) - (alpha+1)*s
	d := a*a + 4*k*noff*s
	if d < 0 {
		d = 0
	}
	sd := math.Sqrt(d)
	var b float64
	if a >= 0 {
		b = (a + sd) / (2 * k)
	} else {
		// same root, free of cancellation for large s
		b = 2 * noff * s / (sd - a)
	}
	if !(b > 0) {
		return 0
	}
	return b
}
