package gmm

import (
	"errors"
	"math"
)

// ErrEmptyAccumulator is returned when a standard deviation is requested from an Accumulator with no observations.
var ErrEmptyAccumulator = errors.New("accumulator has no observations")

// Accumulator keeps a running count, mean, and sum of squared deviations
// for a single category using Welford's single-pass update.
type Accumulator struct {
	count int
	mean  float64
	ssd   float64 // sum of squared deviations from the running mean
}

// Update adds x to the accumulator and returns the updated state.
func (a *Accumulator) Update(x float64) (count int, mean, ssd float64) {
	a.count++
	if a.count == 1 {
		a.mean = x
		a.ssd = 0
		return a.count, a.mean, a.ssd
	}
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.ssd += delta * (x - a.mean)
	return a.count, a.mean, a.ssd
}

// Reset clears the accumulator so it can be reused.
func (a *Accumulator) Reset() {
	a.count = 0
	a.mean = 0
	a.ssd = 0
}

func (a *Accumulator) Count() int {
	return a.count
}

func (a *Accumulator) Mean() float64 {
	return a.mean
}

func (a *Accumulator) SumSquaredDeviation() float64 {
	return a.ssd
}

// Variance returns the population variance (ssd / count), or 0 if no values have been added.
func (a *Accumulator) Variance() float64 {
	if a.count == 0 {
		return 0
	}
	return a.ssd / float64(a.count)
}

// Stdev returns the population standard deviation of the values added so far.
func (a *Accumulator) Stdev() (float64, error) {
	if a.count == 0 {
		return 0, ErrEmptyAccumulator
	}
	return math.Sqrt(a.ssd / float64(a.count)), nil
}
