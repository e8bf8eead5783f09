// Public domain.

package gfmin

import (
	"errors"
	"fmt"
	"math"
)

// maxExpand bounds the doublings while bracketing a crossing.
const maxExpand = 40

// crossing finds t in [a, b] where fn changes sign, fn(a) < 0 ≤ fn(b),
// to within tol.  Regula falsi with the Illinois modification.
func crossing(fn func(float64) float64, a, b, fa, fb, tol float64) float64 {
	side := 0
	for k := 0; k < 60 && b-a > tol; k++ {
		t := (a*fb - b*fa) / (fb - fa)
		if !(t > a && t < b) {
			t = (a + b) / 2
		}
		ft := fn(t)
		if ft < 0 {
			a, fa = t, ft
			if side == -1 {
				fb /= 2
			}
			side = -1
		} else {
			b, fb = t, ft
			if side == 1 {
				fa /= 2
			}
			side = 1
		}
	}
	return (a + b) / 2
}

// ray finds the distance r along a direction where delta crosses zero.
// rMax is the distance to a bound, infinite if none.  Ok is false if the
// bound or the expansion limit is reached first.
func ray(delta func(r float64) float64, r0, rMax, tol float64) (float64, bool) {
	a, fa := 0., -1.
	b := math.Min(r0, rMax)
	for k := 0; ; k++ {
		fb := delta(b)
		if fb >= 0 {
			return crossing(delta, a, b, fa, fb, tol), true
		}
		if b >= rMax || k == maxExpand {
			return b, false
		}
		a, fa = b, fb
		b = math.Min(2*b, rMax)
	}
}

// distance to the bound of parameter p from x in direction dir.
func (p *Param) room(x, dir float64) float64 {
	switch {
	case dir > 0 && p.hasMax():
		return p.Max - x
	case dir < 0 && p.hasMin():
		return x - p.Min
	}
	return math.Inf(1)
}

// MinosError finds where the profile of parameter i rises by up.
func (g *Gonum) MinosError(i int) (lo, hi float64, ok bool) {
	if g.x == nil || i < 0 || i >= len(g.ps) || g.ps[i].Fixed {
		return 0, 0, false
	}
	x0 := g.x[i]
	d := g.errs[i]
	if !(d > 0) {
		d = g.ps[i].unit()
	}
	delta := func(x float64) float64 {
		return g.profile(map[int]float64{i: x}) - g.fmin - g.up
	}
	r, okLo := ray(func(r float64) float64 { return delta(x0 - r) },
		d, g.ps[i].room(x0, -1), 1e-3*d)
	lo = -r
	hi, okHi := ray(func(r float64) float64 { return delta(x0 + r) },
		d, g.ps[i].room(x0, 1), 1e-3*d)
	return lo, hi, okLo && okHi
}

// ErrContour is returned for contours of fixed or unknown parameters.
var ErrContour = errors.New("gfmin: contour needs two distinct free parameters after Minimize")

// Contour traces the up contour of parameters i and j along n rays from
// the minimum, the other free parameters profiled.  Rays stopped by a
// bound end on the bound.
func (g *Gonum) Contour(i, j, n int) ([][2]float64, error) {
	switch {
	case g.x == nil || i == j || i < 0 || j < 0 || i >= len(g.ps) || j >= len(g.ps):
		return nil, ErrContour
	case g.ps[i].Fixed || g.ps[j].Fixed:
		return nil, ErrContour
	case n < 3:
		return nil, fmt.Errorf("gfmin: %d contour points, need at least 3", n)
	}
	xi, xj := g.x[i], g.x[j]
	si, sj := g.errs[i], g.errs[j]
	if !(si > 0) {
		si = g.ps[i].unit()
	}
	if !(sj > 0) {
		sj = g.ps[j].unit()
	}
	pts := make([][2]float64, n)
	for k := range pts {
		th := 2 * math.Pi * float64(k) / float64(n)
		di, dj := si*math.Cos(th), sj*math.Sin(th)
		rMax := math.Inf(1)
		if di != 0 {
			rMax = math.Min(rMax, g.ps[i].room(xi, di)/math.Abs(di))
		}
		if dj != 0 {
			rMax = math.Min(rMax, g.ps[j].room(xj, dj)/math.Abs(dj))
		}
		r, _ := ray(func(r float64) float64 {
			return g.profile(map[int]float64{i: xi + r*di, j: xj + r*dj}) - g.fmin - g.up
		}, 1, rMax, 1e-3)
		pts[k] = [2]float64{xi + r*di, xj + r*dj}
	}
	return pts, nil
}
