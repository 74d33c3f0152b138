// Package fraglen provides collections of paired-end fragment lengths that can be
// reproducibly subsampled before model fitting.
package fraglen

import "golang.org/x/exp/rand"

// Source supplies fragment lengths and supports reproducible percentage-based subsampling.
type Source interface {
	// SamplePercent selects a subsample containing percentage% of all lengths. The same seed always selects the same subsample.
	SamplePercent(percentage float64, seed int64)

	// FragLengths returns the current subsample, or all lengths if SamplePercent has not been called.
	FragLengths() []float64
}

// Lengths is an in-memory Source.
type Lengths struct {
	all    []float64
	sample []float64
}

// New returns a Lengths holding a copy of lengths.
func New(lengths []float64) *Lengths {
	l := new(Lengths)
	l.all = make([]float64, len(lengths))
	copy(l.all, lengths)
	l.sample = l.all
	return l
}

// FromInts returns a Lengths from integer fragment lengths.
func FromInts(lengths []int) *Lengths {
	l := new(Lengths)
	l.all = make([]float64, len(lengths))
	for i := range lengths {
		l.all[i] = float64(lengths[i])
	}
	l.sample = l.all
	return l
}

// Len returns the total number of lengths, ignoring any subsample.
func (l *Lengths) Len() int {
	return len(l.all)
}

// All returns every length held by l, ignoring any subsample.
func (l *Lengths) All() []float64 {
	return l.all
}

// SamplePercent draws round(n*percentage/100) lengths without replacement from the full set.
// Each call samples from the full set, not from the previous sample. Percentages >= 100 select everything.
func (l *Lengths) SamplePercent(percentage float64, seed int64) {
	n := len(l.all)
	k := sampleSize(n, percentage)
	if k == n {
		l.sample = l.all
		return
	}

	// partial fisher-yates on a copy so the full set keeps its order
	buf := make([]float64, n)
	copy(buf, l.all)
	rng := rand.New(rand.NewSource(uint64(seed)))
	var j int
	for i := 0; i < k; i++ {
		j = i + rng.Intn(n-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	l.sample = buf[:k:k]
}

func (l *Lengths) FragLengths() []float64 {
	return l.sample
}

func sampleSize(n int, percentage float64) int {
	switch {
	case percentage <= 0:
		return 0
	case percentage >= 100:
		return n
	}
	k := int(float64(n)*percentage/100 + 0.5)
	if k > n {
		k = n
	}
	return k
}
