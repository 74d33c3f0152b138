// Package simulate draws synthetic fragment lengths from a mixture of normal distributions.
package simulate

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"math"
)

// Normals draws n values from a mixture of normal distributions. Component k is chosen with
// probability proportional to weights[k]. Output is deterministic for a given seed.
func Normals(n int, means, stdevs, weights []float64, seed int64) []float64 {
	if len(means) != len(stdevs) || len(means) != len(weights) {
		panic("simulate: means, stdevs, and weights must have equal length")
	}
	src := rand.NewSource(uint64(seed))
	pick := distuv.NewCategorical(weights, src)
	components := make([]distuv.Normal, len(means))
	for k := range components {
		components[k] = distuv.Normal{Mu: means[k], Sigma: stdevs[k], Src: src}
	}

	ans := make([]float64, n)
	for i := range ans {
		ans[i] = components[int(pick.Rand())].Rand()
	}
	return ans
}

// Quantiles returns n values placed at evenly spaced quantiles of a normal distribution.
// Unlike Normals the sample mean matches mean and the spread closely tracks stdev,
// which is useful when a test needs a noise-free cluster.
func Quantiles(n int, mean, stdev float64) []float64 {
	d := distuv.Normal{Mu: mean, Sigma: stdev}
	ans := make([]float64, n)
	for i := range ans {
		ans[i] = d.Quantile((float64(i) + 0.5) / float64(n))
	}
	return ans
}

// Rounded returns a copy of vals rounded to the nearest integer, as fragment lengths are reported in whole bases.
func Rounded(vals []float64) []float64 {
	ans := make([]float64, len(vals))
	for i := range vals {
		ans[i] = math.Round(vals[i])
	}
	return ans
}
