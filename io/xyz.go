package io

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Atilaac/SiO2-topology/geom"
)

// offDiagonalEps is the largest relative off-diagonal lattice component
// which is still treated as orthorhombic.
const offDiagonalEps = 1e-8

// Structure is one frame of an atomic configuration.
type Structure struct {
	Symbols   []string
	Positions []geom.Vec
	// Cell is only meaningful if HasCell is true.
	Cell    geom.Cell
	HasCell bool
	Comment string
}

// Len returns the number of atoms.
func (s *Structure) Len() int { return len(s.Positions) }

// Weights returns the squared radius of every atom. An empty radii map gives
// zero weights.
func (s *Structure) Weights(radii map[string]float64) ([]float64, error) {
	ws := make([]float64, len(s.Symbols))
	if len(radii) == 0 { return ws, nil }

	for i, sym := range s.Symbols {
		r, ok := radii[sym]
		if !ok {
			return nil, errors.Errorf("no radius given for element '%s'", sym)
		}
		ws[i] = r * r
	}
	return ws, nil
}

// ReadXYZFile reads the last frame of an XYZ or extended XYZ file.
func ReadXYZFile(fname string) (*Structure, error) {
	f, err := os.Open(fname)
	if err != nil { return nil, err }
	defer f.Close()

	frames, err := ReadXYZ(f)
	if err != nil { return nil, errors.Wrapf(err, "reading %s", fname) }
	return frames[len(frames) - 1], nil
}

// ReadXYZ reads every frame from r. Extended XYZ comment lines may set the
// cell with Lattice="ax ay az bx by bz cx cy cz", the periodic axes with
// pbc="T T T" and the column layout with Properties=species:S:1:pos:R:3.
func ReadXYZ(r io.Reader) ([]*Structure, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<16), 1<<24)
	line := 0
	next := func() (string, bool) {
		if !sc.Scan() { return "", false }
		line++
		return sc.Text(), true
	}

	frames := []*Structure{}
	for {
		header, ok := next()
		if !ok { break }
		header = strings.TrimSpace(header)
		if header == "" { continue }

		n, err := strconv.Atoi(header)
		if err != nil || n <= 0 {
			return nil, errors.Errorf(
				"line %d: expected an atom count, got '%s'", line, header,
			)
		}

		comment, ok := next()
		if !ok {
			return nil, errors.Errorf("line %d: missing comment line", line)
		}
		s, cols, err := parseComment(comment)
		if err != nil { return nil, errors.Wrapf(err, "line %d", line) }

		for i := 0; i < n; i++ {
			text, ok := next()
			if !ok {
				return nil, errors.Errorf(
					"frame %d ends after %d of %d atoms", len(frames), i, n,
				)
			}
			sym, pos, err := cols.parse(text)
			if err != nil { return nil, errors.Wrapf(err, "line %d", line) }
			s.Symbols = append(s.Symbols, sym)
			s.Positions = append(s.Positions, pos)
		}
		frames = append(frames, s)
	}
	if err := sc.Err(); err != nil { return nil, err }
	if len(frames) == 0 { return nil, errors.New("no frames") }

	return frames, nil
}

// columns locates the species and position columns of an atom line.
type columns struct {
	species, pos int
}

func (c columns) parse(text string) (string, geom.Vec, error) {
	fields := strings.Fields(text)
	if len(fields) <= c.species || len(fields) < c.pos + 3 {
		return "", geom.Vec{}, errors.Errorf("too few columns in '%s'", text)
	}

	var v geom.Vec
	for k := 0; k < 3; k++ {
		x, err := strconv.ParseFloat(fields[c.pos + k], 64)
		if err != nil {
			return "", geom.Vec{}, errors.Errorf(
				"bad coordinate '%s'", fields[c.pos + k],
			)
		}
		v[k] = x
	}
	return fields[c.species], v, nil
}

// parseComment reads the extended XYZ keys out of a comment line. Comments
// which are not key=value lists are kept as plain text.
func parseComment(comment string) (*Structure, columns, error) {
	s := &Structure{Comment: comment}
	cols := columns{0, 1}
	kv := keyValues(comment)

	pbc, pbcSet := [3]bool{}, false
	for key, val := range kv {
		switch strings.ToLower(key) {
		case "lattice":
			cell, err := parseLattice(val)
			if err != nil { return nil, cols, err }
			s.Cell, s.HasCell = cell, true
		case "pbc":
			fields := strings.Fields(val)
			if len(fields) != 3 {
				return nil, cols, errors.Errorf("pbc needs 3 flags, got '%s'", val)
			}
			for k, f := range fields {
				pbc[k] = strings.EqualFold(f, "T") || strings.EqualFold(f, "true")
			}
			pbcSet = true
		case "properties":
			var err error
			cols, err = parseProperties(val)
			if err != nil { return nil, cols, err }
		}
	}

	if !pbcSet { pbc = [3]bool{s.HasCell, s.HasCell, s.HasCell} }
	s.Cell.Periodic = pbc
	return s, cols, nil
}

func parseLattice(val string) (geom.Cell, error) {
	fields := strings.Fields(val)
	if len(fields) != 9 {
		return geom.Cell{}, errors.Errorf(
			"Lattice needs 9 components, got %d", len(fields),
		)
	}

	var m [9]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.Cell{}, errors.Errorf("bad Lattice component '%s'", f)
		}
		m[i] = x
	}

	cell := geom.Cell{}
	for k := 0; k < 3; k++ {
		L := m[4*k]
		for j := 0; j < 3; j++ {
			if j != k && math.Abs(m[3*k + j]) > offDiagonalEps*math.Abs(L) {
				return geom.Cell{}, errors.Errorf(
					"only orthorhombic cells are supported, Lattice is '%s'", val,
				)
			}
		}
		cell.Lengths[k] = L
	}
	return cell, nil
}

// parseProperties finds the species and pos columns of a Properties value
// such as species:S:1:pos:R:3:forces:R:3.
func parseProperties(val string) (columns, error) {
	parts := strings.Split(val, ":")
	if len(parts)%3 != 0 {
		return columns{}, errors.Errorf("malformed Properties '%s'", val)
	}

	cols := columns{-1, -1}
	col := 0
	for i := 0; i < len(parts); i += 3 {
		width, err := strconv.Atoi(parts[i+2])
		if err != nil || width <= 0 {
			return columns{}, errors.Errorf("malformed Properties '%s'", val)
		}
		switch strings.ToLower(parts[i]) {
		case "species":
			cols.species = col
		case "pos":
			if width != 3 {
				return columns{}, errors.Errorf("pos must have 3 columns")
			}
			cols.pos = col
		}
		col += width
	}

	if cols.species < 0 || cols.pos < 0 {
		return columns{}, errors.Errorf(
			"Properties '%s' needs species and pos", val,
		)
	}
	return cols, nil
}

// keyValues splits key=value and key="quoted value" pairs. Bare words are
// ignored.
func keyValues(s string) map[string]string {
	out := map[string]string{}
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) { i++ }
		start := i
		for i < len(s) && s[i] != '=' && !isSpace(s[i]) { i++ }
		key := s[start:i]
		if i >= len(s) || s[i] != '=' {
			continue
		}
		i++

		var val string
		if i < len(s) && s[i] == '"' {
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				val, i = s[i+1:], len(s)
			} else {
				val, i = s[i+1:i+1+end], i + 2 + end
			}
		} else {
			start := i
			for i < len(s) && !isSpace(s[i]) { i++ }
			val = s[start:i]
		}
		if key != "" { out[key] = val }
	}
	return out
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }
