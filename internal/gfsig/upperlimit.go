// Public domain.

package gfsig

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/gammafit/internal/gflog"
)

// Method selects an upper limit algorithm.
type Method int

const (
	// Helene is the closed form Gaussian limit with a physical boundary.
	Helene Method = iota
	// NeymanGauss integrates a Gaussian kernel in the excess.
	NeymanGauss
	// NeymanPoisson integrates a Poisson kernel in the on counts.
	NeymanPoisson
	// FeldmanCousins is the unified Poisson construction with known
	// background.
	FeldmanCousins
	// ProfileGauss is a profile likelihood limit with a Gaussian
	// background model.
	ProfileGauss
	// ProfilePoisson is a profile likelihood limit with the background
	// measured by Poisson off counts.
	ProfilePoisson
)

var methodNames = []string{"helene", "neyman-gauss", "neyman-poisson",
	"feldman-cousins", "profile-gauss", "profile-poisson"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "unknown"
	}
	return methodNames[m]
}

// ParseMethod returns the Method with name s.
func ParseMethod(s string) (Method, bool) {
	for i, n := range methodNames {
		if n == s {
			return Method(i), true
		}
	}
	return 0, false
}

// nQuad is the number of Gauss-Legendre nodes used for kernel tails.
const nQuad = 256

// UpperLimit computes an upper limit on the excess counts at confidence
// level cl from non on counts, noff off counts, and on/off ratio.
//
// An unknown method, non-positive ratio or cl outside (0, 1) is logged and
// 0 returned.
func UpperLimit(non, noff, ratio, cl float64, m Method) float64 {
	if ratio <= 0 || !(cl > 0 && cl < 1) || non < 0 || noff < 0 {
		gflog.L.Warn().Float64("ratio", ratio).Float64("cl", cl).
			Float64("non", non).Float64("noff", noff).
			Msg("invalid upper limit arguments")
		return 0
	}
	switch m {
	case Helene:
		return helene(non, noff, ratio, cl)
	case NeymanGauss:
		return neyman(non, noff, ratio, cl, false)
	case NeymanPoisson:
		return neyman(non, noff, ratio, cl, true)
	case FeldmanCousins:
		return feldmanCousins(math.Round(non), ratio*noff, cl)
	case ProfileGauss:
		return profileLimit(non, noff, ratio, cl, false)
	case ProfilePoisson:
		return profileLimit(non, noff, ratio, cl, true)
	}
	gflog.L.Warn().Int("method", int(m)).Msg("unknown upper limit method")
	return 0
}

// excessSigma is the Gaussian error on the excess, floored at one count.
func excessSigma(non, noff, ratio float64) float64 {
	v := non + ratio*ratio*noff
	if v < 1 {
		v = 1
	}
	return math.Sqrt(v)
}

func helene(non, noff, ratio, cl float64) float64 {
	x := non - ratio*noff
	sigma := excessSigma(non, noff, ratio)
	p := 1 - (1-cl)*distuv.UnitNormal.CDF(x/sigma)
	ul := x + sigma*distuv.UnitNormal.Quantile(p)
	if ul < 0 {
		return 0
	}
	return ul
}

// neyman integrates a likelihood kernel in the signal s from a trial
// limit to a bound far in the tail, and finds the trial limit where the
// normalized tail probability is 1-cl.
//
// On counts below the off counts are raised to the off counts.
func neyman(non, noff, ratio, cl float64, poisson bool) float64 {
	b := ratio * noff
	non = math.Max(non, noff)
	x := non - b
	sigma := excessSigma(non, noff, ratio)

	var lk func(s float64) float64
	if poisson {
		lk = func(s float64) float64 {
			mu := s + b
			v := -mu
			if non > 0 {
				v += non * math.Log(mu)
			}
			return v
		}
	} else {
		lk = func(s float64) float64 {
			d := (s - x) / sigma
			return -.5 * d * d
		}
	}
	peak := lk(x)
	kernel := func(s float64) float64 {
		return math.Exp(lk(s) - peak)
	}
	hi := x + 12*sigma + 10
	total := quad.Fixed(kernel, 0, hi, nQuad, nil, 0)
	if !(total > 0) {
		return 0
	}
	tail := func(ul float64) float64 {
		return quad.Fixed(kernel, ul, hi, nQuad, nil, 0)/total - (1 - cl)
	}
	return bisect(tail, 0, hi, 1e-7*hi)
}

// bisect finds a root of f in [lo, hi].  f(lo) and f(hi) are expected to
// differ in sign; if they do not, the endpoint nearer zero is returned.
func bisect(f func(float64) float64, lo, hi, tol float64) float64 {
	flo := f(lo)
	fhi := f(hi)
	if flo == 0 {
		return lo
	}
	if fhi == 0 {
		return hi
	}
	if (flo > 0) == (fhi > 0) {
		if math.Abs(flo) < math.Abs(fhi) {
			return lo
		}
		return hi
	}
	for i := 0; i < 200 && hi-lo > tol; i++ {
		mid := .5 * (lo + hi)
		fm := f(mid)
		if fm == 0 {
			return mid
		}
		if (fm > 0) == (flo > 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return .5 * (lo + hi)
}
