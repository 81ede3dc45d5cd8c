// Package dist discretizes the gamma distribution into rate
// categories.
package dist

import (
	"github.com/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuantileGamma returns the p-quantile of the gamma distribution
// with the shape alpha and the rate beta.
func QuantileGamma(p, alpha, beta float64) float64 {
	return distuv.Gamma{Alpha: alpha, Beta: beta}.Quantile(p)
}

// IncompleteGamma returns the regularized lower incomplete gamma
// function P(alpha, x).
func IncompleteGamma(x, alpha float64) float64 {
	return mathext.GammaInc(alpha, x)
}

// DiscreteGamma splits G(alpha, beta) into K categories of equal
// probability and returns a rate for every category: either the
// category medians rescaled to the mean alpha/beta, or the category
// means. tmp and res can be nil, otherwise they should have length
// >= K; res is filled and returned.
func DiscreteGamma(alpha, beta float64, K int, UseMedian bool, tmp, res []float64) []float64 {
	if K < 1 {
		panic("number of categories should be positive")
	}
	if alpha <= 0 || beta <= 0 {
		panic("gamma parameters should be positive")
	}
	mean := alpha / beta
	k := float64(K)

	if res == nil {
		res = make([]float64, K)
	}
	if K == 1 {
		res[0] = mean
		return res
	}
	if tmp == nil {
		tmp = make([]float64, K)
	}

	g := distuv.Gamma{Alpha: alpha, Beta: beta}
	if UseMedian {
		sum := 0.0
		for i := range res[:K] {
			res[i] = g.Quantile((2*float64(i) + 1) / (2 * k))
			sum += res[i]
		}
		for i := range res[:K] {
			res[i] *= mean * k / sum
		}
		return res
	}

	// the mean of a category is K times the integral of x f(x)
	// between the cutting points; x f(x; alpha, beta) is
	// mean f(x; alpha+1, beta)
	for i := 0; i < K-1; i++ {
		cut := g.Quantile(float64(i+1) / k)
		tmp[i] = IncompleteGamma(cut*beta, alpha+1)
	}
	res[0] = tmp[0] * mean * k
	for i := 1; i < K-1; i++ {
		res[i] = (tmp[i] - tmp[i-1]) * mean * k
	}
	res[K-1] = (1 - tmp[K-2]) * mean * k
	return res
}
