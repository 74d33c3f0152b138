package fraglen

import (
	"github.com/vertgenlab/gonomics/bed"
	"github.com/vertgenlab/gonomics/sam"
	"log"
	"os"
)

// sam flag bits used to select one record per read pair
const (
	flagPaired        uint16 = 0x1
	flagProperPair    uint16 = 0x2
	flagUnmapped      uint16 = 0x4
	flagMateUnmapped  uint16 = 0x8
	flagFirstInPair   uint16 = 0x40
	flagSecondary     uint16 = 0x100
	flagDuplicate     uint16 = 0x400
	flagSupplementary uint16 = 0x800
)

// BamOptions controls which read pairs contribute a fragment length.
type BamOptions struct {
	MinMapQ    uint8  // minimum mapping quality of the first read in the pair
	ProperOnly bool   // only use pairs flagged as properly paired
	KeepDups   bool   // include pairs flagged as duplicates
	Regions    string // optional bed file. only fragments overlapping a region are kept
	MaxReads   int    // stop after this many fragment lengths. 0 for no limit
	Verbose    int
}

// ReadBam builds a paired-end track from the template lengths of a SAM or BAM file.
// Each pair contributes one length, taken from the first read of the pair.
func ReadBam(file string, opt BamOptions) (*Lengths, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, err
	}
	var regions map[string][]bed.Bed
	if opt.Regions != "" {
		regions = regionsByChrom(bed.Read(opt.Regions))
	}

	reads, _ := sam.GoReadToChan(file)
	var lengths []int
	var records, skipped int
	var tlen int
	for r := range reads {
		records++
		if opt.MaxReads > 0 && len(lengths) >= opt.MaxReads {
			continue // drain channel
		}
		tlen = fragmentLength(r, opt)
		if tlen <= 0 {
			skipped++
			continue
		}
		if regions != nil && !inRegions(regions, r.RName, fragmentStart(r), fragmentStart(r)+tlen) {
			skipped++
			continue
		}
		lengths = append(lengths, tlen)
	}

	if opt.Verbose > 0 {
		log.Printf("read %d records from %s: %d fragment lengths, %d records skipped\n", records, file, len(lengths), skipped)
	}
	return FromInts(lengths), nil
}

// fragmentLength returns the template length of r, or 0 if r should not contribute a fragment.
func fragmentLength(r sam.Sam, opt BamOptions) int {
	switch {
	case r.Flag&flagPaired == 0:
		return 0
	case r.Flag&(flagUnmapped|flagMateUnmapped|flagSecondary|flagSupplementary) != 0:
		return 0
	case r.Flag&flagFirstInPair == 0:
		return 0
	case !opt.KeepDups && r.Flag&flagDuplicate != 0:
		return 0
	case opt.ProperOnly && r.Flag&flagProperPair == 0:
		return 0
	case r.MapQ < opt.MinMapQ:
		return 0
	case r.RNext != "=" && r.RNext != r.RName:
		return 0
	}
	tlen := int(r.TLen)
	if tlen < 0 {
		tlen = -tlen
	}
	return tlen
}

// fragmentStart returns the 0-based leftmost position of the fragment. When the first read of
// the pair is the rightmost read the fragment begins at the mate.
func fragmentStart(r sam.Sam) int {
	if r.TLen < 0 {
		return int(r.PNext) - 1
	}
	return int(r.Pos) - 1
}

func regionsByChrom(regions []bed.Bed) map[string][]bed.Bed {
	m := make(map[string][]bed.Bed)
	for i := range regions {
		m[regions[i].Chrom] = append(m[regions[i].Chrom], regions[i])
	}
	return m
}

func inRegions(regions map[string][]bed.Bed, chrom string, start, end int) bool {
	query := bed.Bed{Chrom: chrom, ChromStart: start, ChromEnd: end}
	for _, b := range regions[chrom] {
		if bed.Overlap(b, query) {
			return true
		}
	}
	return false
}
