package io

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/gcfg.v1"

	"github.com/Atilaac/SiO2-topology/geom"
)

const (
	ExamplePersistentHomologyFile = `[PersistentHomology]

#######################
# Required Parameters #
#######################

# Atomic configuration to analyze, in XYZ or extended XYZ format. If the name
# contains a printf verb (e.g. SiO2_%d.xyz) every index from IterationStart to
# IterationEnd is analyzed.
Input = SiO2_%d.xyz
# Directory which output files will be written to.
Output = path/to/output/dir

#######################
# Optional Parameters #
#######################

# Output files are named <Prefix>_<index>.*. Default is SiO2.
# Prefix = SiO2

# (Inclusive) range of indices. IterationStart is also the index used when
# Input has no printf verb. Both default to 0.
# IterationStart = 0
# IterationEnd = 0

# Atomic radii, one line per element. The weight of an atom is its squared
# radius. If no radius is given every atom has zero weight, which is the
# ordinary (unweighted) alpha complex.
# Radius = O 0.0
# Radius = Si 0.0

# Periodic boundaries along the cell vectors of the input. Default is true.
# Periodic = true
# Width of the shell of periodic images around the cell, in the units of the
# input. Features larger than this may come out wrong. 0 selects half of the
# shortest cell length.
# Padding = 0

# Report squared radii (Angstroms^2). Default is true.
# Squared = true

# Cell lengths for plain XYZ files, which do not store a cell.
# CellX = 0
# CellY = 0
# CellZ = 0

# Homology dimensions to histogram. Default is 1,2.
# Dimensions = 1,2

# Birth-death histogram binning. PMax is the fraction of pairs shown below the
# top of the color scale.
# HistMin = 0.25
# HistMax = 10.25
# HistBins = 256
# HistPMax = 0.9
# PixelsPerBin = 2

# Each index is labeled as index * PressureStep GPa.
# PressureStep = 10

# Also write matplotlib figures through pyplot. This requires python with
# matplotlib on the PATH.
# Pyplot = false

# Also write the full filtration: every simplex with its value and boundary.
# BoundaryMap = false

# Number of structures analyzed concurrently. 0 uses every core.
# Workers = 0

# Output files which are useful for profiling and debugging.
# ProfileFile = prof.out
# LogFile = log.out`
)

type PersistentHomologyConfig struct {
	// Required
	Input, Output string

	// Optional
	Prefix string
	IterationStart, IterationEnd int

	Radius []string
	Periodic bool
	Padding float64
	Squared bool
	CellX, CellY, CellZ float64

	Dimensions string
	HistMin, HistMax float64
	HistBins int
	HistPMax float64
	PixelsPerBin int
	PressureStep float64

	Pyplot, BoundaryMap bool
	Workers int

	ProfileFile, LogFile string

	radii map[string]float64
	dims []int
}

type PersistentHomologyWrapper struct {
	PersistentHomology PersistentHomologyConfig
}

func DefaultPersistentHomologyWrapper() *PersistentHomologyWrapper {
	con := PersistentHomologyConfig{}

	con.Prefix = "SiO2"
	con.Periodic = true
	con.Squared = true
	con.Dimensions = "1,2"
	con.HistMin = 0.25
	con.HistMax = 10.25
	con.HistBins = 256
	con.HistPMax = 0.9
	con.PixelsPerBin = 2
	con.PressureStep = 10

	return &PersistentHomologyWrapper{con}
}

// ReadPersistentHomologyConfig reads and validates a config file.
func ReadPersistentHomologyConfig(
	fname string,
) (*PersistentHomologyConfig, error) {
	wrap := DefaultPersistentHomologyWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", fname)
	}
	con := &wrap.PersistentHomology
	if err := con.CheckInit(); err != nil { return nil, err }
	return con, nil
}

// ReadPersistentHomologyString parses and validates config text.
func ReadPersistentHomologyString(
	text string,
) (*PersistentHomologyConfig, error) {
	wrap := DefaultPersistentHomologyWrapper()
	if err := gcfg.ReadStringInto(wrap, text); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	con := &wrap.PersistentHomology
	if err := con.CheckInit(); err != nil { return nil, err }
	return con, nil
}

func (con *PersistentHomologyConfig) ValidInput() bool { return con.Input != "" }
func (con *PersistentHomologyConfig) ValidOutput() bool { return con.Output != "" }
func (con *PersistentHomologyConfig) Iterated() bool {
	return strings.Contains(con.Input, "%")
}

// CheckInit validates the config and parses its list-valued fields.
func (con *PersistentHomologyConfig) CheckInit() error {
	if !con.ValidInput() {
		return errors.New("Invalid/non-existent 'Input' value.")
	} else if !con.ValidOutput() {
		return errors.New("Invalid/non-existent 'Output' value.")
	} else if con.Iterated() && con.IterationEnd < con.IterationStart {
		return errors.Errorf(
			"IterationEnd (%d) is smaller than IterationStart (%d).",
			con.IterationEnd, con.IterationStart,
		)
	} else if con.Padding < 0 {
		return errors.Errorf("Padding must be non-negative, but is %g.",
			con.Padding)
	} else if con.Workers < 0 {
		return errors.Errorf("Workers must be non-negative, but is %d.",
			con.Workers)
	} else if con.PixelsPerBin <= 0 {
		return errors.Errorf("PixelsPerBin must be positive, but is %d.",
			con.PixelsPerBin)
	} else if con.CellX < 0 || con.CellY < 0 || con.CellZ < 0 {
		return errors.New("Cell lengths must be non-negative.")
	}

	if err := checkHist(
		con.HistMin, con.HistMax, con.HistBins, con.HistPMax,
	); err != nil {
		return err
	}

	con.radii = map[string]float64{}
	for _, line := range con.Radius {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return errors.Errorf(
				"Radius '%s' must have the form 'Symbol value'.", line,
			)
		}
		r, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || r < 0 {
			return errors.Errorf(
				"Radius of '%s' must be a non-negative number, but is '%s'.",
				fields[0], fields[1],
			)
		}
		con.radii[fields[0]] = r
	}

	var err error
	con.dims, err = parseDims(con.Dimensions)
	return err
}

func checkHist(min, max float64, bins int, pmax float64) error {
	if bins <= 0 {
		return errors.Errorf("HistBins must be positive, but is %d.", bins)
	} else if !(max > min) {
		return errors.Errorf("HistMax (%g) must be larger than HistMin (%g).",
			max, min)
	} else if pmax <= 0 || pmax > 1 {
		return errors.Errorf("HistPMax must be in (0, 1], but is %g.", pmax)
	}
	return nil
}

// parseDims reads a comma separated list of homology dimensions.
func parseDims(text string) ([]int, error) {
	dims := []int{}
	for _, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" { continue }
		d, err := strconv.Atoi(tok)
		if err != nil || d < 0 || d > 3 {
			return nil, errors.Errorf(
				"Dimensions must be a list of integers in [0, 3], got '%s'.",
				text,
			)
		}
		dims = append(dims, d)
	}
	sort.Ints(dims)
	return dims, nil
}

// Radii returns the atomic radius of each element. An empty map means all
// atoms are unweighted.
func (con *PersistentHomologyConfig) Radii() map[string]float64 {
	return con.radii
}

// Dims returns the homology dimensions to histogram.
func (con *PersistentHomologyConfig) Dims() []int { return con.dims }

// CellOverride returns the cell given by CellX, CellY and CellZ, if all
// three are set.
func (con *PersistentHomologyConfig) CellOverride() (geom.Cell, bool) {
	if con.CellX == 0 || con.CellY == 0 || con.CellZ == 0 {
		return geom.Cell{}, false
	}
	return geom.Cell{
		Lengths: geom.Vec{con.CellX, con.CellY, con.CellZ},
		Periodic: [3]bool{true, true, true},
	}, true
}

// Indices returns every structure index which should be analyzed.
func (con *PersistentHomologyConfig) Indices() []int {
	if !con.Iterated() { return []int{con.IterationStart} }

	idxs := []int{}
	for i := con.IterationStart; i <= con.IterationEnd; i++ {
		idxs = append(idxs, i)
	}
	return idxs
}

// InputName returns the structure file for index i.
func (con *PersistentHomologyConfig) InputName(i int) string {
	if !con.Iterated() { return con.Input }
	return fmt.Sprintf(con.Input, i)
}

// OutputName returns the path of an output file for index i, e.g.
// OutputName(0, "_H1.png") is <Output>/<Prefix>_0_H1.png.
func (con *PersistentHomologyConfig) OutputName(i int, suffix string) string {
	return path.Join(con.Output, fmt.Sprintf("%s_%d%s", con.Prefix, i, suffix))
}

// Pressure returns the label of index i in GPa.
func (con *PersistentHomologyConfig) Pressure(i int) float64 {
	return float64(i) * con.PressureStep
}

const ExampleHistogramFile = `[Histogram]

#######################
# Required Parameters #
#######################

# Diagram files written by a PersistentHomology run. As with
# PersistentHomology, a printf verb iterates over IterationStart to
# IterationEnd.
Input = path/to/output/dir/SiO2_%d.pd
# Directory which the histograms will be written to.
Output = path/to/histogram/dir

#######################
# Optional Parameters #
#######################

# Prefix = SiO2
# IterationStart = 0
# IterationEnd = 0

# Dimensions = 1,2
# HistMin = 0.25
# HistMax = 10.25
# HistBins = 256
# HistPMax = 0.9
# PixelsPerBin = 2
# PressureStep = 10
# Pyplot = false

# ProfileFile = prof.out
# LogFile = log.out`

// HistogramConfig re-bins existing diagram files without recomputing them.
type HistogramConfig struct {
	// Required
	Input, Output string

	// Optional
	Prefix string
	IterationStart, IterationEnd int

	Dimensions string
	HistMin, HistMax float64
	HistBins int
	HistPMax float64
	PixelsPerBin int
	PressureStep float64
	Pyplot bool

	ProfileFile, LogFile string

	dims []int
}

type HistogramWrapper struct {
	Histogram HistogramConfig
}

func DefaultHistogramWrapper() *HistogramWrapper {
	def := DefaultPersistentHomologyWrapper().PersistentHomology
	con := HistogramConfig{}

	con.Prefix = def.Prefix
	con.Dimensions = def.Dimensions
	con.HistMin, con.HistMax = def.HistMin, def.HistMax
	con.HistBins, con.HistPMax = def.HistBins, def.HistPMax
	con.PixelsPerBin = def.PixelsPerBin
	con.PressureStep = def.PressureStep

	return &HistogramWrapper{con}
}

func ReadHistogramConfig(fname string) (*HistogramConfig, error) {
	wrap := DefaultHistogramWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", fname)
	}
	con := &wrap.Histogram
	if err := con.CheckInit(); err != nil { return nil, err }
	return con, nil
}

func ReadHistogramString(text string) (*HistogramConfig, error) {
	wrap := DefaultHistogramWrapper()
	if err := gcfg.ReadStringInto(wrap, text); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	con := &wrap.Histogram
	if err := con.CheckInit(); err != nil { return nil, err }
	return con, nil
}

func (con *HistogramConfig) Iterated() bool {
	return strings.Contains(con.Input, "%")
}

func (con *HistogramConfig) CheckInit() error {
	if con.Input == "" {
		return errors.New("Invalid/non-existent 'Input' value.")
	} else if con.Output == "" {
		return errors.New("Invalid/non-existent 'Output' value.")
	} else if con.Iterated() && con.IterationEnd < con.IterationStart {
		return errors.Errorf(
			"IterationEnd (%d) is smaller than IterationStart (%d).",
			con.IterationEnd, con.IterationStart,
		)
	} else if con.PixelsPerBin <= 0 {
		return errors.Errorf("PixelsPerBin must be positive, but is %d.",
			con.PixelsPerBin)
	}
	if err := checkHist(
		con.HistMin, con.HistMax, con.HistBins, con.HistPMax,
	); err != nil {
		return err
	}

	var err error
	con.dims, err = parseDims(con.Dimensions)
	return err
}

func (con *HistogramConfig) Dims() []int { return con.dims }

func (con *HistogramConfig) Indices() []int {
	if !con.Iterated() { return []int{con.IterationStart} }
	idxs := []int{}
	for i := con.IterationStart; i <= con.IterationEnd; i++ {
		idxs = append(idxs, i)
	}
	return idxs
}

func (con *HistogramConfig) InputName(i int) string {
	if !con.Iterated() { return con.Input }
	return fmt.Sprintf(con.Input, i)
}

func (con *HistogramConfig) OutputName(i int, suffix string) string {
	return path.Join(con.Output, fmt.Sprintf("%s_%d%s", con.Prefix, i, suffix))
}

func (con *HistogramConfig) Pressure(i int) float64 {
	return float64(i) * con.PressureStep
}
