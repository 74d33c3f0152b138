package main

import (
	"flag"
	"fmt"
	"github.com/dasnellings/fragMix/fraglen"
	"github.com/dasnellings/fragMix/gmm"
	"github.com/vertgenlab/gonomics/exception"
	"log"
	"math"
)

func sampleUsage(sampleFlags *flag.FlagSet) {
	fmt.Print(
		"sample - reproducibly subsample fragment lengths\n" +
			"\tThe same seed and percentage always select the same fragments, matching the sample used by 'fragmix fit'.\n\n" +
			"Usage:\n" +
			"  fragmix sample [options] -i input.bam -pct 10 > lengths.txt\n\n" +
			"Options:\n")
	sampleFlags.PrintDefaults()
}

func runSample(args []string) {
	var err error
	def := gmm.DefaultOptions()
	sampleFlags := flag.NewFlagSet("sample", flag.ExitOnError)

	input := sampleFlags.String("i", "", "Input fragment lengths. Either a SAM/BAM file of paired-end alignments, or a text file with one length per line.")
	output := sampleFlags.String("o", "stdout", "Output text file with one fragment length per line.")
	pct := sampleFlags.Float64("pct", def.SamplePercentage, "Percentage of fragments to keep.")
	seed := sampleFlags.Int64("seed", def.Seed, "Seed for subsampling fragments.")
	minMapQ := sampleFlags.Int("minMapQ", 20, "Minimum mapping quality for a read pair to contribute a fragment length (BAM input only).")
	verbose := sampleFlags.Int("v", 0, "Verbose output by setting to >0.")

	err = sampleFlags.Parse(args)
	exception.PanicOnErr(err)
	sampleFlags.Usage = func() { sampleUsage(sampleFlags) }

	if *input == "" {
		sampleFlags.Usage()
		errExit("\nERROR: must have input for -i")
	}
	if *pct <= 0 || *pct > 100 {
		errExit("ERROR: -pct must be in (0, 100]")
	}
	if *minMapQ < 0 || *minMapQ > math.MaxUint8 {
		log.Fatalf("minMapQ out of range. max: %d\n", math.MaxUint8)
	}

	src, err := readLengths(*input, fraglen.BamOptions{MinMapQ: uint8(*minMapQ), ProperOnly: true, Verbose: *verbose})
	exception.PanicOnErr(err)
	src.SamplePercent(*pct, *seed)
	if *verbose > 0 {
		log.Printf("kept %d of %d fragment lengths\n", len(src.FragLengths()), src.Len())
	}
	err = fraglen.WriteText(*output, src.FragLengths())
	exception.PanicOnErr(err)
}
