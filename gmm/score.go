package gmm

import "gonum.org/v1/gonum/stat/distuv"

// NormalPDF returns the density of x under a Normal distribution with the given mean and standard deviation.
func NormalPDF(x, mean, stdev float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: stdev}.Prob(x)
}

// Score returns the weight-scaled density of x under a single mixture component.
func Score(x, mean, stdev, weight float64) float64 {
	return weight * NormalPDF(x, mean, stdev)
}
