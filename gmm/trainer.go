package gmm

import (
	"errors"
	"fmt"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"log"
	"math"
	"sync"
)

var (
	// ErrInvalidOptions is returned when training options fail validation. No sampling is done.
	ErrInvalidOptions = errors.New("invalid mixture model options")

	// ErrEmptySample is returned when no fragment lengths fall within [MinFraglen, MaxFraglen].
	ErrEmptySample = errors.New("no fragment lengths within length range")
)

// Source supplies fragment lengths to the Trainer. See the fraglen package for implementations.
type Source interface {
	SamplePercent(percentage float64, seed int64)
	FragLengths() []float64
}

// Options for fitting a MixtureModel. Use DefaultOptions to get sensible defaults
// and set InitMeans and InitStdevs before training.
type Options struct {
	InitMeans        [NumCategories]float64
	InitStdevs       [NumCategories]float64
	MinFraglen       float64 // shorter fragments are ignored
	MaxFraglen       float64 // longer fragments are ignored
	SamplePercentage float64 // percentage of the source used for fitting
	Epsilon          float64 // convergence tolerance for mean, stdev, and weight
	MaxIter          int
	Seed             int64 // seed for subsampling the source
	Threads          int   // goroutines used to score data points in each iteration
	Verbose          int
}

// DefaultOptions returns the default options. InitMeans and InitStdevs are left at zero and must be set by the caller.
func DefaultOptions() Options {
	return Options{
		MinFraglen:       100,
		MaxFraglen:       1000,
		SamplePercentage: 10,
		Epsilon:          0.0005,
		MaxIter:          20,
		Seed:             42,
		Threads:          1,
	}
}

func (o Options) validate() error {
	for k := 0; k < NumCategories; k++ {
		if math.IsNaN(o.InitMeans[k]) || math.IsInf(o.InitMeans[k], 0) {
			return fmt.Errorf("%w: initial mean %d is %v", ErrInvalidOptions, k, o.InitMeans[k])
		}
		if !(o.InitStdevs[k] > 0) || math.IsInf(o.InitStdevs[k], 0) {
			return fmt.Errorf("%w: initial stdev %d must be positive and finite, got %v", ErrInvalidOptions, k, o.InitStdevs[k])
		}
	}
	switch {
	case o.MaxFraglen < o.MinFraglen:
		return fmt.Errorf("%w: max fragment length %v is less than min fragment length %v", ErrInvalidOptions, o.MaxFraglen, o.MinFraglen)
	case !(o.SamplePercentage > 0) || o.SamplePercentage > 100:
		return fmt.Errorf("%w: sample percentage must be in (0, 100], got %v", ErrInvalidOptions, o.SamplePercentage)
	case !(o.Epsilon > 0):
		return fmt.Errorf("%w: epsilon must be positive, got %v", ErrInvalidOptions, o.Epsilon)
	case o.MaxIter < 1:
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidOptions, o.MaxIter)
	}
	return nil
}

// Params holds the mean, standard deviation, and mixing weight of each component.
type Params struct {
	Means   [NumCategories]float64
	Stdevs  [NumCategories]float64
	Weights [NumCategories]float64
}

// within reports whether every parameter of p differs from prev by less than epsilon.
func (p Params) within(prev Params, epsilon float64) bool {
	for k := 0; k < NumCategories; k++ {
		if !(math.Abs(p.Means[k]-prev.Means[k]) < epsilon) ||
			!(math.Abs(p.Stdevs[k]-prev.Stdevs[k]) < epsilon) ||
			!(math.Abs(p.Weights[k]-prev.Weights[k]) < epsilon) {
			return false
		}
	}
	return true
}

// State of a Trainer.
type State int

const (
	Uninitialized State = iota
	Initialized
	Iterating
	Converged
	MaxIterationsReached
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max iterations reached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trainer fits a three component gaussian mixture to fragment lengths by hard assignment EM.
// Each data point is assigned entirely to the component with the highest weighted density.
type Trainer struct {
	Params
	Data       []float64 // filtered fragment lengths, owned by the Trainer
	Converged  bool
	Iterations int
	Fallbacks  int // number of times a component kept its previous parameters

	opt         Options
	state       State
	acc         [NumCategories]Accumulator
	assignments []Category
}

// Train subsamples src, initializes a Trainer from opt, and runs it to convergence or opt.MaxIter iterations.
// Failing to converge is not an error; check Trainer.Converged.
func Train(src Source, opt Options) (*Trainer, error) {
	t := NewTrainer(opt)
	err := t.Initialize(src)
	if err != nil {
		return nil, err
	}
	err = t.Run()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewTrainer returns an uninitialized Trainer.
func NewTrainer(opt Options) *Trainer {
	if opt.Threads < 1 {
		opt.Threads = 1
	}
	return &Trainer{opt: opt}
}

// Options returns the options the Trainer was created with.
func (t *Trainer) Options() Options {
	return t.opt
}

func (t *Trainer) State() State {
	return t.state
}

// Initialize validates options, pulls a subsample from src, filters it to the length range, and
// sets the starting parameters. Initial weights come from partitioning the data at the midpoints
// between adjacent initial means.
func (t *Trainer) Initialize(src Source) error {
	err := t.opt.validate()
	if err != nil {
		return err
	}

	src.SamplePercent(t.opt.SamplePercentage, t.opt.Seed)
	lengths := src.FragLengths()
	t.Data = make([]float64, 0, len(lengths))
	for _, l := range lengths {
		if l >= t.opt.MinFraglen && l <= t.opt.MaxFraglen {
			t.Data = append(t.Data, l)
		}
	}
	t.Data = slices.Clip(t.Data)
	if len(t.Data) == 0 {
		return fmt.Errorf("%w: %d sampled lengths, none in [%v, %v]", ErrEmptySample, len(lengths), t.opt.MinFraglen, t.opt.MaxFraglen)
	}

	t.Means = t.opt.InitMeans
	t.Stdevs = t.opt.InitStdevs
	t.Weights = InitialWeights(t.Data, t.opt.InitMeans)
	t.Converged = false
	t.Iterations = 0
	t.Fallbacks = 0
	t.assignments = make([]Category, len(t.Data))
	t.state = Initialized

	if t.opt.Verbose > 0 {
		log.Printf("initialized mixture model with %d of %d sampled lengths. weights=%.4f\n", len(t.Data), len(lengths), t.Weights)
	}
	return nil
}

// InitialWeights partitions data at the midpoints between adjacent means and returns the
// fraction of points in each partition. Points below the first cutoff belong to the first
// component, points at or above the second cutoff to the last.
func InitialWeights(data []float64, means [NumCategories]float64) [NumCategories]float64 {
	var weights [NumCategories]float64
	if len(data) == 0 {
		return weights
	}
	cutoff1 := means[0] + (means[1]-means[0])/2
	cutoff2 := means[1] + (means[2]-means[1])/2
	var counts [NumCategories]int
	for _, x := range data {
		switch {
		case x < cutoff1:
			counts[ShortMultiple]++
		case x < cutoff2:
			counts[MediumMultiple]++
		default:
			counts[LongMultiple]++
		}
	}
	for k := range counts {
		weights[k] = float64(counts[k]) / float64(len(data))
	}
	return weights
}

// Run iterates until every component's mean, stdev, and weight change by less than Epsilon
// or MaxIter iterations have been run in total.
func (t *Trainer) Run() error {
	if t.state == Uninitialized {
		return errors.New("mixture model must be initialized before running")
	}
	var prev Params
	var assigned int
	var err error
	t.state = Iterating
	for t.Iterations < t.opt.MaxIter {
		prev = t.Params
		assigned, err = t.iterate()
		if err != nil {
			return err
		}
		// an iteration that assigned nothing learned nothing and cannot signal convergence
		if assigned > 0 && t.Params.within(prev, t.opt.Epsilon) {
			t.Converged = true
			t.state = Converged
			break
		}
	}
	if !t.Converged {
		t.state = MaxIterationsReached
	}
	if t.opt.Verbose > 0 {
		log.Printf("mixture model %s after %d iterations. means=%.2f stdevs=%.2f weights=%.4f\n", t.state, t.Iterations, t.Means, t.Stdevs, t.Weights)
	}
	return nil
}

// Iterate runs a single expectation and maximization step.
func (t *Trainer) Iterate() error {
	if t.state == Uninitialized {
		return errors.New("mixture model must be initialized before iterating")
	}
	t.state = Iterating
	t.Converged = false
	_, err := t.iterate()
	return err
}

func (t *Trainer) iterate() (assigned int, err error) {
	t.Iterations++
	t.classifyAll()

	for k := range t.acc {
		t.acc[k].Reset()
	}
	for i, c := range t.assignments {
		if !c.Ok() {
			continue
		}
		t.acc[c].Update(t.Data[i])
		assigned++
	}

	if assigned == 0 {
		t.Fallbacks += NumCategories
		if t.opt.Verbose > 0 {
			log.Printf("iteration %d: all %d points were ambiguous, keeping previous parameters\n", t.Iterations, len(t.Data))
		}
		return 0, nil
	}

	var stdev float64
	for k := 0; k < NumCategories; k++ {
		t.Weights[k] = float64(t.acc[k].Count()) / float64(assigned)
		if t.acc[k].Count() == 0 {
			t.Fallbacks++
			if t.opt.Verbose > 0 {
				log.Printf("iteration %d: no points assigned to %s component, keeping mean=%.2f stdev=%.2f\n", t.Iterations, Category(k), t.Means[k], t.Stdevs[k])
			}
			continue
		}
		t.Means[k] = t.acc[k].Mean()
		stdev, err = t.acc[k].Stdev()
		if err != nil {
			return assigned, err
		}
		if stdev == 0 || math.IsNaN(stdev) {
			t.Fallbacks++
			if t.opt.Verbose > 0 {
				log.Printf("iteration %d: %s component has zero width (%d points), keeping stdev=%.2f\n", t.Iterations, Category(k), t.acc[k].Count(), t.Stdevs[k])
			}
			continue
		}
		t.Stdevs[k] = stdev
	}

	if t.opt.Verbose > 1 {
		log.Printf("iteration %d: assigned %d of %d points. means=%.2f stdevs=%.2f weights=%.4f\n", t.Iterations, assigned, len(t.Data), t.Means, t.Stdevs, t.Weights)
	}
	return assigned, nil
}

// classifyAll fills t.assignments for the current parameters, splitting the data across opt.Threads goroutines.
func (t *Trainer) classifyAll() {
	if t.opt.Threads == 1 || len(t.Data) < 2*t.opt.Threads {
		t.classifyRange(0, len(t.Data))
		return
	}
	var wg sync.WaitGroup
	chunk := (len(t.Data) + t.opt.Threads - 1) / t.opt.Threads
	for start := 0; start < len(t.Data); start += chunk {
		end := start + chunk
		if end > len(t.Data) {
			end = len(t.Data)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			t.classifyRange(start, end)
		}(start, end)
	}
	wg.Wait()
}

func (t *Trainer) classifyRange(start, end int) {
	for i := start; i < end; i++ {
		t.assignments[i] = t.Classify(t.Data[i])
	}
}

// Scores returns the weighted density of x under each component.
func (t *Trainer) Scores(x float64) [NumCategories]float64 {
	var scores [NumCategories]float64
	for k := 0; k < NumCategories; k++ {
		scores[k] = Score(x, t.Means[k], t.Stdevs[k], t.Weights[k])
	}
	return scores
}

// Classify returns the component x is assigned to under the current parameters, or Ambiguous.
func (t *Trainer) Classify(x float64) Category {
	return Assign(t.Scores(x))
}

// LogLikelihood returns the log likelihood of the data under the current mixture.
func (t *Trainer) LogLikelihood() float64 {
	var ll float64
	var norms [NumCategories]distuv.Normal
	for k := range norms {
		norms[k] = distuv.Normal{Mu: t.Means[k], Sigma: t.Stdevs[k]}
	}
	logScores := make([]float64, NumCategories)
	for _, x := range t.Data {
		for k := range norms {
			logScores[k] = math.Log(t.Weights[k]) + norms[k].LogProb(x)
		}
		ll += floats.LogSumExp(logScores)
	}
	return ll
}
