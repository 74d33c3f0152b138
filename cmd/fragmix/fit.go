package main

import (
	"errors"
	"flag"
	"fmt"
	"github.com/dasnellings/fragMix/fitplot"
	"github.com/dasnellings/fragMix/fraglen"
	"github.com/dasnellings/fragMix/gmm"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"io"
	"log"
	"math"
	"os"
	"strings"
)

func fitUsage(fitFlags *flag.FlagSet) {
	fmt.Print(
		"fit - fit a three component gaussian mixture to fragment lengths by hard assignment EM\n" +
			"\tComponents correspond to short-, medium-, and long-multiple fragments.\n\n" +
			"Usage:\n" +
			"  fragmix fit [options] -i input.bam -means 150,300,450 -stdevs 20,30,40 > fit.tsv\n\n" +
			"Options:\n")
	fitFlags.PrintDefaults()
}

func runFit(args []string) {
	var err error
	var means, stdevs categoryValues
	def := gmm.DefaultOptions()
	fitFlags := flag.NewFlagSet("fit", flag.ExitOnError)

	input := fitFlags.String("i", "", "Input fragment lengths. Either a SAM/BAM file of paired-end alignments, or a text file with one length per line.")
	output := fitFlags.String("o", "stdout", "Output tsv file with the fitted mean, stdev, and weight of each component.")
	fitFlags.Var(&means, "means", "Initial means for the short, medium, and long components, comma separated (e.g. 150,300,450).")
	fitFlags.Var(&stdevs, "stdevs", "Initial standard deviations for the short, medium, and long components, comma separated (e.g. 20,30,40).")
	minLen := fitFlags.Float64("minLen", def.MinFraglen, "Ignore fragments shorter than this length.")
	maxLen := fitFlags.Float64("maxLen", def.MaxFraglen, "Ignore fragments longer than this length.")
	samplePct := fitFlags.Float64("samplePct", def.SamplePercentage, "Percentage of fragments used for fitting.")
	seed := fitFlags.Int64("seed", def.Seed, "Seed for subsampling fragments.")
	epsilon := fitFlags.Float64("epsilon", def.Epsilon, "Convergence tolerance for the change in mean, stdev, and weight of every component.")
	maxIter := fitFlags.Int("maxIter", def.MaxIter, "Maximum number of iterations.")
	threads := fitFlags.Int("threads", def.Threads, "Number of threads used to score fragments in each iteration.")
	minMapQ := fitFlags.Int("minMapQ", 20, "Minimum mapping quality for a read pair to contribute a fragment length (BAM input only).")
	properOnly := fitFlags.Bool("properOnly", true, "Only use read pairs flagged as properly paired (BAM input only).")
	keepDups := fitFlags.Bool("keepDups", false, "Include read pairs flagged as duplicates (BAM input only).")
	regions := fitFlags.String("regions", "", "Bed file of regions. Only fragments overlapping a region are used (BAM input only).")
	plot := fitFlags.Bool("plot", false, "Print a plot of the length distribution and fitted components to stderr.")
	png := fitFlags.String("png", "", "Save a plot of the length distribution and fitted components to this file.")
	bins := fitFlags.Int("bins", 80, "Number of histogram bins for -plot and -png.")
	verbose := fitFlags.Int("v", 0, "Verbose output by setting to >0.")

	err = fitFlags.Parse(args)
	exception.PanicOnErr(err)
	fitFlags.Usage = func() { fitUsage(fitFlags) }

	if *input == "" || !means.set || !stdevs.set {
		fitFlags.Usage()
		errExit("\nERROR: must have inputs for -i, -means, and -stdevs")
	}

	if *minMapQ < 0 || *minMapQ > math.MaxUint8 {
		log.Fatalf("minMapQ out of range. max: %d\n", math.MaxUint8)
	}

	opt := gmm.Options{
		InitMeans:        means.vals,
		InitStdevs:       stdevs.vals,
		MinFraglen:       *minLen,
		MaxFraglen:       *maxLen,
		SamplePercentage: *samplePct,
		Epsilon:          *epsilon,
		MaxIter:          *maxIter,
		Seed:             *seed,
		Threads:          *threads,
		Verbose:          *verbose,
	}

	bamOpt := fraglen.BamOptions{
		MinMapQ:    uint8(*minMapQ),
		ProperOnly: *properOnly,
		KeepDups:   *keepDups,
		Regions:    *regions,
		Verbose:    *verbose,
	}

	src, err := readLengths(*input, bamOpt)
	exception.PanicOnErr(err)

	t, err := gmm.Train(src, opt)
	if errors.Is(err, gmm.ErrInvalidOptions) || errors.Is(err, gmm.ErrEmptySample) {
		errExit("ERROR: " + err.Error())
	}
	exception.PanicOnErr(err)

	out := fileio.EasyCreate(*output)
	err = writeFit(out, t)
	exception.PanicOnErr(err)
	cleanup(out)

	if !t.Converged {
		log.Printf("WARNING: did not converge after %d iterations. Reporting parameters from the final iteration.\n", t.Iterations)
	}

	if *plot {
		fmt.Fprintln(os.Stderr, fitplot.Ascii(t.Data, t.Params, *bins, 10))
	}

	if *png != "" {
		err = fitplot.Png(*png, t.Data, t.Params, *bins)
		exception.PanicOnErr(err)
	}
}

// readLengths reads fragment lengths from a SAM/BAM file of aligned pairs or from a text file of lengths.
func readLengths(file string, bamOpt fraglen.BamOptions) (*fraglen.Lengths, error) {
	trimmed := strings.TrimSuffix(file, ".gz")
	if strings.HasSuffix(trimmed, ".bam") || strings.HasSuffix(trimmed, ".sam") {
		return fraglen.ReadBam(file, bamOpt)
	}
	return fraglen.ReadText(file)
}

// writeFit writes the fitted parameters as a tsv with one line per component followed by summary comment lines.
func writeFit(w io.Writer, t *gmm.Trainer) error {
	var err error
	_, err = fmt.Fprintf(w, "#COMPONENT\tMEAN\tSTDEV\tWEIGHT\n")
	if err != nil {
		return err
	}
	for k := 0; k < gmm.NumCategories; k++ {
		_, err = fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.6f\n", gmm.Category(k), t.Means[k], t.Stdevs[k], t.Weights[k])
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "#fragments=%d\tconverged=%t\titerations=%d\tlogLikelihood=%.6g\n", len(t.Data), t.Converged, t.Iterations, t.LogLikelihood())
	return err
}
