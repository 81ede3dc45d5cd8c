package dist

import (
	"math"
	"testing"
)

// reference values are rounded to six digits
const smallDiff = 1e-5

type Settings struct {
	n      int
	a, b   float64
	median bool
}

/*** Tests if a and b are approximately equal ***/
func appreq(a, b float64) bool {
	return math.Abs(a-b) <= smallDiff
}

/*** Tests that arrays have approximately same values ***/
func cmp(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !appreq(a[i], b[i]) {
			return false
		}
	}
	return true
}

/*** Test discrete gamma ***/
func TestGamma(tst *testing.T) {
	settings := [...]Settings{
		{4, 0.5, 10, false},
		{4, 0.5, 10, true},
		{8, 2, .1, false},
		{7, 15, 1, true},
		{4, 1.16, 3.54, false},
		{4, 1.16, 3.54, true},
	}
	results := [...]([]float64){
		{0.001669, 0.012596, 0.041013, 0.144721},
		{0.001454, 0.014036, 0.046239, 0.138272},
		{3.848344, 7.882645, 11.320993, 14.879554, 18.906079, 23.893507, 31.028044, 48.240834},
		{9.793787, 11.891047, 13.362596, 14.722906, 16.172736, 17.973174, 21.083754},
		{0.054962, 0.170420, 0.334948, 0.750405},
		{0.059239, 0.182032, 0.355645, 0.713819},
	}
	for i, s := range settings {
		freq := make([]float64, s.n)
		r := DiscreteGamma(s.a, s.b, s.n, s.median, freq, nil)
		if !cmp(r, results[i]) {
			tst.Error("Results missmatch:", r, results[i])
		}
	}
}

// Discrete gamma with alpha=beta should have the mean of one and
// increasing rates.
func TestGammaMean(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping test in short mode.")
	}

	for a := math.Log(0.1); a <= math.Log(100); a += 0.5 {
		alpha := math.Exp(a)
		for n := 1; n <= 12; n++ {
			for median := 0; median <= 1; median++ {
				r := DiscreteGamma(alpha, alpha, n, median == 1, nil, nil)
				if len(r) != n {
					tst.Fatalf("Incorrect length of DiscreteGamma result %d!=n (%d)", len(r), n)
				}
				sum := 0.0
				for i, v := range r {
					sum += v
					if i > 0 && v < r[i-1]-1e-12 {
						tst.Errorf("Rates are not increasing; alpha=%g, n=%d, median=%v: %v", alpha, n, median == 1, r)
						break
					}
				}
				if math.Abs(sum/float64(n)-1) > 1e-9 {
					tst.Errorf("Mean is not one; alpha=%g, n=%d, median=%v: %v", alpha, n, median == 1, sum/float64(n))
				}
			}
		}
	}
}

// Quantiles should invert the incomplete gamma function.
func TestQuantileGamma(tst *testing.T) {
	for _, alpha := range []float64{0.1, 0.5, 1, 2.5, 10} {
		for _, beta := range []float64{alpha, 3} {
			for p := 0.05; p < 1; p += 0.1 {
				q := QuantileGamma(p, alpha, beta)
				if cdf := IncompleteGamma(q*beta, alpha); math.Abs(cdf-p) > 1e-7 {
					tst.Errorf("alpha=%g, beta=%g, p=%g: P(q=%g)=%g", alpha, beta, p, q, cdf)
				}
			}
		}
	}
}

func TestGammaOneCategory(tst *testing.T) {
	r := DiscreteGamma(0.3, 0.6, 1, false, nil, nil)
	if len(r) != 1 || !appreq(r[0], 0.5) {
		tst.Error("Single category should be the mean, got", r)
	}
}
