// Package fitplot draws observed fragment length distributions alongside fitted mixture components.
package fitplot

import (
	"fmt"
	"github.com/dasnellings/fragMix/gmm"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var componentColors = []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Yellow, asciigraph.Green}

// Histogram bins lengths into nBins equal width bins spanning the data. Returns the counts, the
// left edge of the first bin, and the bin width.
func Histogram(lengths []float64, nBins int) (counts []float64, min, width float64) {
	if len(lengths) == 0 || nBins < 1 {
		return nil, 0, 0
	}
	min, max := floats.Min(lengths), floats.Max(lengths)
	width = (max - min) / float64(nBins)
	if width == 0 {
		width = 1
	}
	counts = make([]float64, nBins)
	var bin int
	for _, l := range lengths {
		bin = int((l - min) / width)
		if bin >= nBins {
			bin = nBins - 1
		}
		counts[bin]++
	}
	return counts, min, width
}

// Expected returns the expected count in each histogram bin under each weighted component
// for a sample of n lengths.
func Expected(p gmm.Params, n int, nBins int, min, width float64) [][]float64 {
	ans := make([][]float64, gmm.NumCategories)
	var mid float64
	for k := range ans {
		ans[k] = make([]float64, nBins)
		for b := range ans[k] {
			mid = min + (float64(b)+0.5)*width
			ans[k][b] = gmm.Score(mid, p.Means[k], p.Stdevs[k], p.Weights[k]) * float64(n) * width
		}
	}
	return ans
}

// Ascii returns a terminal plot of the length histogram followed by the fitted components.
func Ascii(lengths []float64, p gmm.Params, nBins, height int) string {
	counts, min, width := Histogram(lengths, nBins)
	if counts == nil {
		return ""
	}
	caption := fmt.Sprintf("fragment lengths %.0f-%.0f (%.1f bp/bin)", min, min+width*float64(nBins), width)
	s := asciigraph.Plot(counts, asciigraph.Height(height), asciigraph.Precision(0), asciigraph.Caption(caption))
	s += "\n\n"
	s += asciigraph.PlotMany(Expected(p, len(lengths), nBins, min, width), asciigraph.Height(height), asciigraph.Precision(0),
		asciigraph.SeriesColors(componentColors...), asciigraph.Caption("fitted components (short, medium, long)"))
	return s
}

// Png saves a histogram of lengths with the weighted density of each fitted component overlaid.
func Png(file string, lengths []float64, p gmm.Params, nBins int) error {
	if len(lengths) == 0 {
		return fmt.Errorf("fitplot: no lengths to plot")
	}
	pl := plot.New()
	pl.Title.Text = "Fragment length mixture"
	pl.X.Label.Text = "Fragment length (bp)"
	pl.Y.Label.Text = "Density"

	h, err := plotter.NewHist(plotter.Values(lengths), nBins)
	if err != nil {
		return err
	}
	h.Normalize(1)
	pl.Add(h)

	for k := 0; k < gmm.NumCategories; k++ {
		mean, stdev, weight := p.Means[k], p.Stdevs[k], p.Weights[k]
		f := plotter.NewFunction(func(x float64) float64 {
			return gmm.Score(x, mean, stdev, weight)
		})
		f.Color = plotutil.Color(k)
		f.Width = vg.Points(2)
		f.Samples = 500
		pl.Add(f)
		pl.Legend.Add(fmt.Sprintf("%s mu=%.1f sd=%.1f w=%.2f", gmm.Category(k), mean, stdev, weight), f)
	}
	return pl.Save(8*vg.Inch, 5*vg.Inch, file)
}
