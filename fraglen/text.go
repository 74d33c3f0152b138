package fraglen

import (
	"fmt"
	"github.com/vertgenlab/gonomics/fileio"
	"strconv"
	"strings"
)

// ReadText reads one fragment length per line. Blank lines and lines beginning with '#' are ignored.
// Files ending in .gz are decompressed transparently.
func ReadText(file string) (*Lengths, error) {
	in := fileio.EasyOpen(file)
	var lengths []float64
	var line string
	var done bool
	var val float64
	var err error
	for line, done = fileio.EasyNextRealLine(in); !done; line, done = fileio.EasyNextRealLine(in) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		val, err = strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("%s: value %d: %w", file, len(lengths)+1, err)
		}
		lengths = append(lengths, val)
	}
	err = in.Close()
	if err != nil {
		return nil, err
	}
	return New(lengths), nil
}

// WriteText writes lengths to file, one per line.
func WriteText(file string, lengths []float64) error {
	out := fileio.EasyCreate(file)
	var err error
	for i := range lengths {
		_, err = fmt.Fprintln(out, strconv.FormatFloat(lengths[i], 'g', -1, 64))
		if err != nil {
			out.Close()
			return err
		}
	}
	return out.Close()
}
