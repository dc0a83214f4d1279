package io

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/table"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Atilaac/SiO2-topology/alpha"
	"github.com/Atilaac/SiO2-topology/persistence"
)

// Diagram files are whitespace separated tables with one pair per row:
//
//     dim birth death essential
//
// Essential classes have essential = 1 and death = 0.
const (
	dimCol = iota
	birthCol
	deathCol
	essentialCol
)

// WriteDiagrams writes every diagram of pd to w.
func WriteDiagrams(w io.Writer, pd *persistence.PDList) error {
	bw := bufio.NewWriter(w)
	for d := 0; d <= alpha.MaxDim; d++ {
		diag := pd.Diagram(d)
		for i := range diag.Births {
			fmt.Fprintf(bw, "%d %.17g %.17g 0\n", d, diag.Births[i], diag.Deaths[i])
		}
		for _, b := range diag.EssentialBirths {
			fmt.Fprintf(bw, "%d %.17g 0 1\n", d, b)
		}
	}
	return bw.Flush()
}

// WriteDiagramsFile writes pd to the file fname.
func WriteDiagramsFile(fname string, pd *persistence.PDList) error {
	return writeFile(fname, func(w io.Writer) error {
		return WriteDiagrams(w, pd)
	})
}

// ReadDiagrams reads a file written by WriteDiagrams.
func ReadDiagrams(fname string) (*persistence.PDList, error) {
	cols, err := table.ReadTable(
		fname, []int{dimCol, birthCol, deathCol, essentialCol}, nil,
	)
	if err != nil { return nil, errors.Wrapf(err, "reading %s", fname) }

	pd := &persistence.PDList{}
	for d := range pd.Diagrams {
		pd.Diagrams[d] = &persistence.Diagram{Dim: d}
	}

	dims, births, deaths, ess := cols[0], cols[1], cols[2], cols[3]
	for i := range dims {
		d := int(dims[i])
		if d < 0 || d > alpha.MaxDim || float64(d) != dims[i] {
			return nil, errors.Errorf(
				"%s: row %d has invalid dimension %g", fname, i, dims[i],
			)
		}

		diag := pd.Diagrams[d]
		if ess[i] != 0 {
			diag.EssentialBirths = append(diag.EssentialBirths, births[i])
		} else {
			diag.Births = append(diag.Births, births[i])
			diag.Deaths = append(diag.Deaths, deaths[i])
		}
	}
	return pd, nil
}

// WriteBoundaryMap writes the filtration one simplex per line:
//
//     index dim value atoms... : boundary...
func WriteBoundaryMap(w io.Writer, f *alpha.Filtration) error {
	bw := bufio.NewWriter(w)
	for i := range f.Simplices {
		s := &f.Simplices[i]
		fmt.Fprintf(bw, "%d %d %.17g", i, s.Dim, s.Value)
		for _, v := range s.Verts {
			fmt.Fprintf(bw, " %d", v.Atom)
			if v.Shift != [3]int8{} {
				fmt.Fprintf(bw, "[%d,%d,%d]", v.Shift[0], v.Shift[1], v.Shift[2])
			}
		}
		fmt.Fprint(bw, " :")
		for _, b := range s.Boundary { fmt.Fprintf(bw, " %d", b) }
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func WriteBoundaryMapFile(fname string, f *alpha.Filtration) error {
	return writeFile(fname, func(w io.Writer) error {
		return WriteBoundaryMap(w, f)
	})
}

// Summary describes the analysis of one structure.
type Summary struct {
	Input    string     `yaml:"input"`
	Index    int        `yaml:"index"`
	Pressure float64    `yaml:"pressure_gpa"`
	Atoms    int        `yaml:"atoms"`
	Hidden   int        `yaml:"hidden_atoms"`
	Padded   int        `yaml:"padded_points"`
	Periodic []bool     `yaml:"periodic"`
	Cell     []float64  `yaml:"cell"`

	Simplices []int `yaml:"simplices"`
	Euler     int   `yaml:"euler_characteristic"`
	Pairs     []int `yaml:"pairs"`
	Essential []int `yaml:"essential"`

	Histograms []HistSummary `yaml:"histograms,omitempty"`
	Seconds    float64       `yaml:"seconds"`
}

type HistSummary struct {
	Dim     int    `yaml:"dim"`
	Binned  int    `yaml:"binned"`
	Skipped int    `yaml:"skipped"`
	Level   int    `yaml:"pmax_level"`
	Image   string `yaml:"image"`
}

// NewSummary fills in the counts of a summary from a filtration and its
// diagrams.
func NewSummary(f *alpha.Filtration, pd *persistence.PDList) *Summary {
	s := &Summary{
		Atoms: f.Atoms, Hidden: f.Hidden, Padded: f.Padded,
		Euler: f.EulerCharacteristic(),
	}
	counts := f.Counts()
	for d := 0; d <= alpha.MaxDim; d++ {
		s.Simplices = append(s.Simplices, counts[d])
		s.Pairs = append(s.Pairs, pd.Diagram(d).Len())
		s.Essential = append(s.Essential, len(pd.Diagram(d).EssentialBirths))
	}
	return s
}

func WriteSummary(w io.Writer, s *Summary) error {
	out, err := yaml.Marshal(s)
	if err != nil { return errors.Wrap(err, "encoding summary") }
	_, err = w.Write(out)
	return err
}

func WriteSummaryFile(fname string, s *Summary) error {
	return writeFile(fname, func(w io.Writer) error {
		return WriteSummary(w, s)
	})
}

// ReadSummaryFile reads a summary written by WriteSummaryFile.
func ReadSummaryFile(fname string) (*Summary, error) {
	b, err := os.ReadFile(fname)
	if err != nil { return nil, err }
	s := &Summary{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", fname)
	}
	return s, nil
}

// writeFile creates fname and hands it to write, keeping the first error.
func writeFile(fname string, write func(io.Writer) error) (err error) {
	f, err := os.Create(fname)
	if err != nil { return err }
	defer func() {
		if cerr := f.Close(); err == nil { err = cerr }
	}()
	return errors.Wrapf(write(f), "writing %s", fname)
}
