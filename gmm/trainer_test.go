package gmm

import (
	"errors"
	"github.com/dasnellings/fragMix/fraglen"
	"github.com/dasnellings/fragMix/simulate"
	"gonum.org/v1/gonum/floats"
	"math"
	"testing"
)

// countingSource records calls to SamplePercent.
type countingSource struct {
	*fraglen.Lengths
	sampled int
}

func (c *countingSource) SamplePercent(percentage float64, seed int64) {
	c.sampled++
	c.Lengths.SamplePercent(percentage, seed)
}

func testOptions(means, stdevs [NumCategories]float64) Options {
	opt := DefaultOptions()
	opt.InitMeans = means
	opt.InitStdevs = stdevs
	opt.MinFraglen = 0
	opt.MaxFraglen = 1000
	opt.SamplePercentage = 100
	return opt
}

func threeClusters() []float64 {
	var data []float64
	data = append(data, simulate.Quantiles(500, 50, 5)...)
	data = append(data, simulate.Quantiles(300, 200, 10)...)
	data = append(data, simulate.Quantiles(200, 400, 15)...)
	return data
}

func checkFinite(t *testing.T, tr *Trainer) {
	t.Helper()
	for k := 0; k < NumCategories; k++ {
		for _, v := range []float64{tr.Means[k], tr.Stdevs[k], tr.Weights[k]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("non-finite parameter for %s component: means=%v stdevs=%v weights=%v", Category(k), tr.Means, tr.Stdevs, tr.Weights)
				return
			}
		}
	}
}

func TestTrainWellSeparated(t *testing.T) {
	opt := testOptions([NumCategories]float64{50, 200, 400}, [NumCategories]float64{5, 10, 15})
	tr, err := Train(fraglen.New(threeClusters()), opt)
	if err != nil {
		t.Fatal(err)
	}
	expMeans := []float64{50, 200, 400}
	expWeights := []float64{0.5, 0.3, 0.2}
	for k := range expMeans {
		if math.Abs(tr.Means[k]-expMeans[k]) > 2 {
			t.Errorf("%s component: expected mean within 2 of %v, got %v", Category(k), expMeans[k], tr.Means[k])
		}
		if math.Abs(tr.Weights[k]-expWeights[k]) > 0.01 {
			t.Errorf("%s component: expected weight %v, got %v", Category(k), expWeights[k], tr.Weights[k])
		}
	}
	if !tr.Converged || tr.Iterations >= opt.MaxIter {
		t.Errorf("expected convergence before %d iterations. converged=%t iterations=%d", opt.MaxIter, tr.Converged, tr.Iterations)
	}
	if tr.State() != Converged {
		t.Errorf("expected state %s, got %s", Converged, tr.State())
	}
}

// Random draws put the fitted means a little further from the truth than the
// quantile data in TestTrainWellSeparated, which checks the fit to within 2.
func TestTrainSimulated(t *testing.T) {
	data := simulate.Normals(1000, []float64{50, 200, 400}, []float64{5, 10, 15}, []float64{0.5, 0.3, 0.2}, 7)
	opt := testOptions([NumCategories]float64{50, 200, 400}, [NumCategories]float64{5, 10, 15})
	tr, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	expMeans := []float64{50, 200, 400}
	expStdevs := []float64{5, 10, 15}
	for k := range expMeans {
		if math.Abs(tr.Means[k]-expMeans[k]) > 5 {
			t.Errorf("%s component: expected mean near %v, got %v", Category(k), expMeans[k], tr.Means[k])
		}
		if math.Abs(tr.Stdevs[k]-expStdevs[k]) > expStdevs[k]/2 {
			t.Errorf("%s component: expected stdev near %v, got %v", Category(k), expStdevs[k], tr.Stdevs[k])
		}
	}
	if !tr.Converged {
		t.Errorf("expected convergence, ran %d iterations", tr.Iterations)
	}
	if ll := tr.LogLikelihood(); math.IsNaN(ll) || math.IsInf(ll, 0) {
		t.Errorf("expected finite log likelihood, got %v", ll)
	}
}

func TestFixedPointConvergesInOneIteration(t *testing.T) {
	data := []float64{48, 50, 52, 198, 200, 202, 398, 400, 402}
	sd := math.Sqrt(8.0 / 3.0)
	opt := testOptions([NumCategories]float64{50, 200, 400}, [NumCategories]float64{sd, sd, sd})
	tr, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Converged || tr.Iterations != 1 {
		t.Errorf("expected convergence in 1 iteration, converged=%t iterations=%d", tr.Converged, tr.Iterations)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	data := simulate.Normals(600, []float64{150, 300, 450}, []float64{20, 30, 40}, []float64{0.6, 0.3, 0.1}, 3)
	opt := testOptions([NumCategories]float64{140, 320, 500}, [NumCategories]float64{25, 25, 25})
	tr := NewTrainer(opt)
	err := tr.Initialize(fraglen.New(data))
	if err != nil {
		t.Fatal(err)
	}
	if sum := floats.Sum(tr.Weights[:]); math.Abs(sum-1) > 1e-12 {
		t.Errorf("initial weights sum to %v", sum)
	}
	if tr.State() != Initialized {
		t.Errorf("expected state %s, got %s", Initialized, tr.State())
	}
	for i := 0; i < 5; i++ {
		err = tr.Iterate()
		if err != nil {
			t.Fatal(err)
		}
		if sum := floats.Sum(tr.Weights[:]); math.Abs(sum-1) > 1e-12 {
			t.Errorf("iteration %d: weights sum to %v", tr.Iterations, sum)
		}
		if tr.State() != Iterating {
			t.Errorf("iteration %d: expected state %s, got %s", tr.Iterations, Iterating, tr.State())
		}
	}
}

func TestMaxIterations(t *testing.T) {
	data := simulate.Normals(500, []float64{150, 300, 450}, []float64{20, 30, 40}, []float64{0.4, 0.4, 0.2}, 11)
	for maxIter := 1; maxIter <= 4; maxIter++ {
		opt := testOptions([NumCategories]float64{100, 250, 600}, [NumCategories]float64{5, 80, 5})
		opt.MaxIter = maxIter
		tr, err := Train(fraglen.New(data), opt)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Iterations > maxIter {
			t.Errorf("ran %d iterations with a cap of %d", tr.Iterations, maxIter)
		}
		if !tr.Converged && tr.State() != MaxIterationsReached {
			t.Errorf("expected state %s, got %s", MaxIterationsReached, tr.State())
		}
		checkFinite(t, tr)
	}

	// far from the fit, a single iteration cannot converge
	opt := testOptions([NumCategories]float64{100, 250, 600}, [NumCategories]float64{5, 80, 5})
	opt.MaxIter = 1
	tr, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Converged || tr.Iterations != 1 {
		t.Errorf("expected 1 iteration without convergence, got converged=%t iterations=%d", tr.Converged, tr.Iterations)
	}
}

func TestIdenticalMeansAllTied(t *testing.T) {
	// equal counts either side of the shared cutoff give the first and last components
	// identical parameters, so every point ties
	data := []float64{90, 95, 105, 110}
	opt := testOptions([NumCategories]float64{100, 100, 100}, [NumCategories]float64{10, 10, 10})
	tr, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Converged || tr.Iterations != opt.MaxIter {
		t.Errorf("expected to stop at max iterations, converged=%t iterations=%d", tr.Converged, tr.Iterations)
	}
	if tr.Fallbacks == 0 {
		t.Error("expected fallbacks to be recorded")
	}
	if tr.Weights != [NumCategories]float64{0.5, 0, 0.5} {
		t.Errorf("expected weights to be carried forward, got %v", tr.Weights)
	}
	checkFinite(t, tr)
}

func TestIdenticalMeans(t *testing.T) {
	data := simulate.Rounded(simulate.Normals(301, []float64{100}, []float64{10}, []float64{1}, 5))
	opt := testOptions([NumCategories]float64{100, 100, 100}, [NumCategories]float64{10, 10, 10})
	tr, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Iterations > opt.MaxIter {
		t.Errorf("ran %d iterations with a cap of %d", tr.Iterations, opt.MaxIter)
	}
	checkFinite(t, tr)
}

func TestEmptyComponentKeepsParameters(t *testing.T) {
	var data []float64
	data = append(data, simulate.Quantiles(200, 50, 5)...)
	data = append(data, simulate.Quantiles(200, 400, 15)...)
	opt := testOptions([NumCategories]float64{50, 200, 400}, [NumCategories]float64{5, 10, 15})
	tr, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Means[MediumMultiple] != 200 || tr.Stdevs[MediumMultiple] != 10 || tr.Weights[MediumMultiple] != 0 {
		t.Errorf("expected empty component to keep mean and stdev with zero weight, got mean=%v stdev=%v weight=%v",
			tr.Means[MediumMultiple], tr.Stdevs[MediumMultiple], tr.Weights[MediumMultiple])
	}
	if tr.Fallbacks == 0 {
		t.Error("expected fallbacks to be recorded")
	}
	if !tr.Converged {
		t.Error("expected convergence")
	}
	checkFinite(t, tr)
}

func TestZeroWidthComponentKeepsStdev(t *testing.T) {
	data := []float64{50, 50, 50, 50, 198, 200, 202, 398, 400, 402}
	opt := testOptions([NumCategories]float64{50, 200, 400}, [NumCategories]float64{3, 3, 3})
	tr := NewTrainer(opt)
	err := tr.Initialize(fraglen.New(data))
	if err != nil {
		t.Fatal(err)
	}
	err = tr.Iterate()
	if err != nil {
		t.Fatal(err)
	}
	if tr.Means[ShortMultiple] != 50 || tr.Stdevs[ShortMultiple] != 3 {
		t.Errorf("expected mean 50 and stdev 3 for zero width component, got mean=%v stdev=%v", tr.Means[ShortMultiple], tr.Stdevs[ShortMultiple])
	}
	checkFinite(t, tr)
}

func TestInvalidOptions(t *testing.T) {
	good := testOptions([NumCategories]float64{150, 300, 450}, [NumCategories]float64{20, 30, 40})
	tests := []func(o *Options){
		func(o *Options) { o.MinFraglen, o.MaxFraglen = 500, 100 },
		func(o *Options) { o.InitStdevs[1] = 0 },
		func(o *Options) { o.InitStdevs[2] = -5 },
		func(o *Options) { o.InitMeans[0] = math.NaN() },
		func(o *Options) { o.SamplePercentage = 0 },
		func(o *Options) { o.SamplePercentage = 101 },
		func(o *Options) { o.Epsilon = 0 },
		func(o *Options) { o.MaxIter = 0 },
	}
	for i, modify := range tests {
		opt := good
		modify(&opt)
		src := &countingSource{Lengths: fraglen.New([]float64{150, 300, 450})}
		_, err := Train(src, opt)
		if !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("test %d: expected ErrInvalidOptions, got %v", i, err)
		}
		if src.sampled != 0 {
			t.Errorf("test %d: source was sampled before validation", i)
		}
	}
}

func TestEmptySample(t *testing.T) {
	opt := DefaultOptions()
	opt.InitMeans = [NumCategories]float64{150, 300, 450}
	opt.InitStdevs = [NumCategories]float64{20, 30, 40}
	opt.SamplePercentage = 100
	_, err := Train(fraglen.New([]float64{10, 20, 5000}), opt)
	if !errors.Is(err, ErrEmptySample) {
		t.Errorf("expected ErrEmptySample, got %v", err)
	}
	_, err = Train(fraglen.New(nil), opt)
	if !errors.Is(err, ErrEmptySample) {
		t.Errorf("expected ErrEmptySample for empty source, got %v", err)
	}
}

func TestRunBeforeInitialize(t *testing.T) {
	tr := NewTrainer(DefaultOptions())
	if tr.Run() == nil || tr.Iterate() == nil {
		t.Error("expected error running an uninitialized trainer")
	}
}

func TestFilterAndSample(t *testing.T) {
	data := simulate.Rounded(simulate.Normals(5000, []float64{150, 300, 450}, []float64{30, 40, 50}, []float64{0.5, 0.3, 0.2}, 2))
	opt := DefaultOptions()
	opt.InitMeans = [NumCategories]float64{150, 300, 450}
	opt.InitStdevs = [NumCategories]float64{30, 40, 50}

	a, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(a.Data, b.Data) || a.Params != b.Params {
		t.Error("expected identical fits for the same seed")
	}
	if len(a.Data) > 500 {
		t.Errorf("expected at most 10%% of 5000 lengths after sampling, got %d", len(a.Data))
	}
	for _, x := range a.Data {
		if x < opt.MinFraglen || x > opt.MaxFraglen {
			t.Errorf("length %v outside [%v, %v]", x, opt.MinFraglen, opt.MaxFraglen)
		}
	}
}

func TestThreadsGiveIdenticalFit(t *testing.T) {
	data := simulate.Normals(2000, []float64{150, 300, 450}, []float64{30, 40, 50}, []float64{0.5, 0.3, 0.2}, 9)
	opt := testOptions([NumCategories]float64{140, 280, 480}, [NumCategories]float64{25, 35, 45})
	single, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	opt.Threads = 4
	multi, err := Train(fraglen.New(data), opt)
	if err != nil {
		t.Fatal(err)
	}
	if single.Params != multi.Params || single.Iterations != multi.Iterations {
		t.Errorf("expected identical fits, got %+v and %+v", single.Params, multi.Params)
	}
}

func TestInitialWeights(t *testing.T) {
	data := []float64{10, 20, 125, 200, 299, 300, 301, 1000}
	w := InitialWeights(data, [NumCategories]float64{50, 200, 400})
	// cutoffs at 125 and 300
	expected := [NumCategories]float64{2.0 / 8, 3.0 / 8, 3.0 / 8}
	if w != expected {
		t.Errorf("expected %v, got %v", expected, w)
	}

	w = InitialWeights(data, [NumCategories]float64{100, 100, 100})
	expected = [NumCategories]float64{2.0 / 8, 0, 6.0 / 8}
	if w != expected {
		t.Errorf("expected %v for equal cutoffs, got %v", expected, w)
	}
}

func TestClassify(t *testing.T) {
	opt := testOptions([NumCategories]float64{50, 200, 400}, [NumCategories]float64{5, 10, 15})
	tr, err := Train(fraglen.New(threeClusters()), opt)
	if err != nil {
		t.Fatal(err)
	}
	tests := map[float64]Category{45: ShortMultiple, 210: MediumMultiple, 390: LongMultiple}
	for x, expected := range tests {
		if got := tr.Classify(x); got != expected {
			t.Errorf("Classify(%v): expected %s, got %s", x, expected, got)
		}
	}
}
