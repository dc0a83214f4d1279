package render

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// HistInfo describes the binning of a birth-death histogram.
type HistInfo struct {
	Min, Max float64
	Bins     int
	// PMax is the fraction of the total count shown below the top of the
	// color scale. Bins above it saturate.
	PMax float64
}

// DefaultHistInfo matches the 256x256 grid over [0.25, 10.25] used for
// silica glasses.
func DefaultHistInfo() HistInfo {
	return HistInfo{Min: 0.25, Max: 10.25, Bins: 256, PMax: 0.9}
}

func (info *HistInfo) Check() error {
	if info.Bins <= 0 {
		return errors.Errorf("histogram needs a positive bin count, got %d",
			info.Bins)
	} else if !(info.Max > info.Min) {
		return errors.Errorf("histogram range [%g, %g] is empty",
			info.Min, info.Max)
	} else if info.PMax <= 0 || info.PMax > 1 {
		return errors.Errorf("PMax must be in (0, 1], got %g", info.PMax)
	}
	return nil
}

// Hist1D is a histogram over [Min, Max].
type Hist1D struct {
	Min, Max float64
	Counts   []int
}

// Hist2D is a square histogram of (x, y) pairs. Counts is row-major with y
// as the row index.
type Hist2D struct {
	HistInfo
	Counts []int
	// Total counts binned pairs, Skipped counts pairs outside the range.
	Total, Skipped int
}

func NewHist2D(info HistInfo) (*Hist2D, error) {
	if err := info.Check(); err != nil { return nil, err }
	return &Hist2D{
		HistInfo: info, Counts: make([]int, info.Bins*info.Bins),
	}, nil
}

// bin returns the bin index of x. The upper edge belongs to the last bin.
func bin(x, min, max float64, bins int) (int, bool) {
	if math.IsNaN(x) || x < min || x > max { return -1, false }
	i := int((x - min) / (max - min) * float64(bins))
	if i >= bins { i = bins - 1 }
	return i, true
}

// Add bins the pairs (xs[i], ys[i]).
func (h *Hist2D) Add(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return errors.Errorf("%d x values but %d y values", len(xs), len(ys))
	}

	for i := range xs {
		ix, okx := bin(xs[i], h.Min, h.Max, h.Bins)
		iy, oky := bin(ys[i], h.Min, h.Max, h.Bins)
		if !okx || !oky {
			h.Skipped++
			continue
		}
		h.Counts[iy*h.Bins + ix]++
		h.Total++
	}
	return nil
}

func (h *Hist2D) At(ix, iy int) int { return h.Counts[iy*h.Bins + ix] }

// Marginals returns the histograms of the binned x and y values.
func (h *Hist2D) Marginals() (x, y *Hist1D) {
	x = &Hist1D{h.Min, h.Max, make([]int, h.Bins)}
	y = &Hist1D{h.Min, h.Max, make([]int, h.Bins)}
	for iy := 0; iy < h.Bins; iy++ {
		for ix := 0; ix < h.Bins; ix++ {
			c := h.At(ix, iy)
			x.Counts[ix] += c
			y.Counts[iy] += c
		}
	}
	return x, y
}

// PMaxLevel returns the count at which the color scale saturates: walking
// down from the fullest bin, the first count at which the bins seen so far
// hold 1 - PMax of the total. It returns 0 for an empty histogram.
func (h *Hist2D) PMaxLevel() int {
	if h.Total == 0 { return 0 }

	sorted := append([]int(nil), h.Counts...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	target := 1 - h.PMax
	sum := 0
	for _, c := range sorted {
		sum += c
		if float64(sum)/float64(h.Total) >= target { return c }
	}
	return sorted[len(sorted) - 1]
}

// MaxCount returns the largest bin count.
func (h *Hist1D) MaxCount() int {
	max := 0
	for _, c := range h.Counts {
		if c > max { max = c }
	}
	return max
}
