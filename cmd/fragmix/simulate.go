package main

import (
	"flag"
	"fmt"
	"github.com/dasnellings/fragMix/fraglen"
	"github.com/dasnellings/fragMix/simulate"
	"github.com/vertgenlab/gonomics/exception"
)

func simulateUsage(simulateFlags *flag.FlagSet) {
	fmt.Print(
		"simulate - draw synthetic fragment lengths from a three component gaussian mixture\n\n" +
			"Usage:\n" +
			"  fragmix simulate [options] -means 150,300,450 -stdevs 20,30,40 -weights 0.5,0.3,0.2 > lengths.txt\n\n" +
			"Options:\n")
	simulateFlags.PrintDefaults()
}

func runSimulate(args []string) {
	var err error
	var means, stdevs, weights categoryValues
	simulateFlags := flag.NewFlagSet("simulate", flag.ExitOnError)

	output := simulateFlags.String("o", "stdout", "Output text file with one fragment length per line.")
	n := simulateFlags.Int("n", 10000, "Number of fragment lengths to draw.")
	simulateFlags.Var(&means, "means", "Mean of each component, comma separated.")
	simulateFlags.Var(&stdevs, "stdevs", "Standard deviation of each component, comma separated.")
	simulateFlags.Var(&weights, "weights", "Relative weight of each component, comma separated.")
	seed := simulateFlags.Int64("seed", 1, "Random seed.")
	round := simulateFlags.Bool("round", true, "Round lengths to whole bases.")

	err = simulateFlags.Parse(args)
	exception.PanicOnErr(err)
	simulateFlags.Usage = func() { simulateUsage(simulateFlags) }

	if !means.set || !stdevs.set || !weights.set {
		simulateFlags.Usage()
		errExit("\nERROR: must have inputs for -means, -stdevs, and -weights")
	}

	lengths := simulate.Normals(*n, means.vals[:], stdevs.vals[:], weights.vals[:], *seed)
	if *round {
		lengths = simulate.Rounded(lengths)
	}
	err = fraglen.WriteText(*output, lengths)
	exception.PanicOnErr(err)
}
