package estimator

import "math"

var invPhi = (math.Sqrt(5) - 1) / 2

// Outcome variance search bounds for a single alliance observation.
const (
	MinOutcomeVar = 1.0
	MaxOutcomeVar = float64(1 << 13)
)

// MaximizeUnimodal returns the x in [lo, hi] maximising f, assuming f has a
// single peak on the interval. Golden-section search narrows the bracket
// until it is narrower than tol; the endpoints are checked last so a peak
// sitting on a bound is returned exactly.
func MaximizeUnimodal(f func(x float64) float64, lo, hi, tol float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if tol <= 0 {
		tol = 1e-6
	}

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for b-a > tol {
		if fc >= fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}

	best := (a + b) / 2
	fBest := f(best)
	for _, edge := range [2]float64{lo, hi} {
		if fe := f(edge); fe > fBest {
			best, fBest = edge, fe
		}
	}
	return best
}

// BestFitVariance is the outcome variance under which an observed alliance
// value is most likely given its predicted mean, within
// [MinOutcomeVar, MaxOutcomeVar].
func BestFitVariance(observed, predicted float64) float64 {
	d2 := (observed - predicted) * (observed - predicted)
	logLik := func(v float64) float64 {
		return -0.5*math.Log(2*math.Pi*v) - d2/(2*v)
	}
	return MaximizeUnimodal(logLik, MinOutcomeVar, MaxOutcomeVar, 0.5)
}
