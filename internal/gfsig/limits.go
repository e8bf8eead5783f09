// Public domain.

package gfsig

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// lnPois is the log of the Poisson probability of k given mean lam.
func lnPois(k, lam float64) float64 {
	if lam <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	lg, _ := math.Lgamma(k + 1)
	return k*math.Log(lam) - lam - lg
}

// nLn is n·ln(mu) with 0·ln(0) := 0.
func nLn(n, mu float64) float64 {
	if n == 0 {
		return 0
	}
	if mu <= 0 {
		return math.Inf(-1)
	}
	return n * math.Log(mu)
}

type fcEntry struct {
	k    int
	p, r float64
}

// fcAcceptance returns the lowest count in the Feldman-Cousins acceptance
// region for signal mu over background b.
func fcAcceptance(mu, b, cl float64) int {
	lam := mu + b
	// the count ceiling follows the mean so large counts still cover cl
	kmax := int(lam+10*math.Sqrt(lam)) + 20
	es := make([]fcEntry, kmax+1)
	for k := range es {
		kf := float64(k)
		lp := lnPois(kf, lam)
		best := math.Max(0, kf-b)
		es[k] = fcEntry{k, math.Exp(lp), math.Exp(lp - lnPois(kf, best+b))}
	}
	sort.SliceStable(es, func(i, j int) bool { return es[i].r > es[j].r })
	lo := kmax
	var sum float64
	for _, e := range es {
		sum += e.p
		if e.k < lo {
			lo = e.k
		}
		if sum >= cl {
			break
		}
	}
	return lo
}

// fcBelt finds the largest signal mean whose acceptance region still
// contains n.  The lower edge of the belt is not monotone: narrow windows
// past the first exit can accept n again, so those are searched with a
// finer step until the edge passes n+1.
func fcBelt(n, b, cl float64) float64 {
	k := int(n)
	in := func(mu float64) bool { return fcAcceptance(mu, b, cl) <= k }
	edge := func(lo, hi float64) float64 {
		for i := 0; i < 40; i++ {
			if m := .5 * (lo + hi); in(m) {
				lo = m
			} else {
				hi = m
			}
		}
		return lo
	}
	w := math.Sqrt(n + b + 1)
	step := .05 * w
	ceiling := n + 10*w + 20
	mu := math.Max(0, n-b-5*w)
	if !in(mu) {
		mu = 0
	}
	last := -1.
	for ; mu <= ceiling; mu += step {
		if in(mu) {
			last = mu
		} else if last >= 0 {
			break
		}
	}
	if last < 0 {
		return 0
	}
	ul := edge(last, last+step)
	fine := .002 * w
	end := -1.
	mu = ul
	for i := 0; i < fcFineMax; i++ {
		mu += fine
		lo := fcAcceptance(mu, b, cl)
		if lo <= k {
			end = mu
		} else if lo > k+1 {
			break
		}
	}
	if end >= 0 {
		ul = math.Max(ul, edge(end, end+fine))
	}
	return ul
}

// Range and step of the background scan in feldmanCousins.  Discreteness
// teeth in the belt limit repeat about once per unit of background.
const (
	fcBkgSpan  = 2.
	fcBkgStep  = .025
	fcJumpIter = 12
	fcFineMax  = 2000
)

// feldmanCousins is the belt limit made non-increasing in the background:
// the supremum of fcBelt over backgrounds b' >= b, as in Feldman & Cousins
// table IV.  Within a tooth the belt limit rises with b' up to a jump, so
// each sampled drop is bisected to the jump.
func feldmanCousins(n, b, cl float64) float64 {
	nStep := int(fcBkgSpan / fcBkgStep)
	us := make([]float64, nStep+1)
	us[0] = fcBelt(n, b, cl)
	best := us[0]
	for i := 1; i <= nStep; i++ {
		us[i] = fcBelt(n, b+float64(i)*fcBkgStep, cl)
		best = math.Max(best, us[i])
	}
	// a tooth peak exceeds its last sample by little, refine only near best
	for i := 0; i < nStep; i++ {
		if us[i+1] >= us[i] || us[i] < best-.05 {
			continue
		}
		lo, hi := b+float64(i)*fcBkgStep, b+float64(i+1)*fcBkgStep
		ulo := us[i]
		for k := 0; k < fcJumpIter; k++ {
			m := .5 * (lo + hi)
			if u := fcBelt(n, m, cl); u >= ulo {
				lo, ulo = m, u
			} else {
				hi = m
			}
		}
		best = math.Max(best, ulo)
	}
	return best
}

// profileLimit is the upper end of the profile likelihood interval on the
// signal, bounded at zero signal, where -2 ln λ reaches the χ²(1)
// quantile at cl.
func profileLimit(non, noff, ratio, cl float64, poisson bool) float64 {
	b0 := ratio * noff
	var lnL func(s float64) float64
	if poisson {
		lnL = func(s float64) float64 {
			beta := OffMean(non, noff, ratio, s)
			mu := s + ratio*beta
			return nLn(non, mu) - mu + nLn(noff, beta) - beta
		}
	} else {
		sb := ratio * math.Sqrt(noff)
		lnL = func(s float64) float64 {
			b := gaussBackground(non, b0, sb, s)
			mu := s + b
			v := nLn(non, mu) - mu
			if sb > 0 {
				d := (b - b0) / sb
				v -= .5 * d * d
			}
			return v
		}
	}
	shat := math.Max(0, non-b0)
	lmax := lnL(shat)
	target := distuv.ChiSquared{K: 1}.Quantile(cl)
	q := func(s float64) float64 {
		return -2*(lnL(s)-lmax) - target
	}
	hi := shat + excessSigma(non, noff, ratio) + 1
	for i := 0; i < 60 && q(hi) < 0; i++ {
		hi = shat + 2*(hi-shat)
	}
	return bisect(q, shat, hi, 1e-7*hi)
}

// gaussBackground maximizes non·ln(s+b) - (s+b) - (b-b0)²/2sb² over b ≥ 0.
func gaussBackground(non, b0, sb, s float64) float64 {
	if sb == 0 {
		return b0
	}
	v := sb * sb
	bb := s - b0 + v
	cc := s*v - b0*s - non*v
	d := bb*bb - 4*cc
	if d < 0 {
		d = 0
	}
	b := (-bb + math.Sqrt(d)) / 2
	if b < 0 {
		return 0
	}
	return b
}
