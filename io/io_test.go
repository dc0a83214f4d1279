package io

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atilaac/SiO2-topology/alpha"
	"github.com/Atilaac/SiO2-topology/geom"
	"github.com/Atilaac/SiO2-topology/persistence"
)

const extXYZ = `3
Lattice="10.0 0.0 0.0 0.0 11.0 0.0 0.0 0.0 12.0" Properties=species:S:1:pos:R:3:forces:R:3 pbc="T T F" energy=-1.5
Si 0.0 0.0 0.0 0.1 0.1 0.1
O  1.6 0.0 0.0 0.0 0.0 0.0
O  -1.6 0.0 0.0 0.0 0.0 0.0
`

func TestReadExtendedXYZ(t *testing.T) {
	frames, err := ReadXYZ(strings.NewReader(extXYZ))
	require.NoError(t, err)
	require.Len(t, frames, 1)

	s := frames[0]
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"Si", "O", "O"}, s.Symbols)
	assert.Equal(t, geom.Vec{-1.6, 0, 0}, s.Positions[2])
	assert.True(t, s.HasCell)
	assert.Equal(t, geom.Vec{10, 11, 12}, s.Cell.Lengths)
	assert.Equal(t, [3]bool{true, true, false}, s.Cell.Periodic)
}

func TestReadPlainXYZ(t *testing.T) {
	text := "2\nwater-free silica fragment\nSi 0 0 0\nO 1 2 3\n\n" +
		"1\nsecond frame\nO 4 5 6\n"
	frames, err := ReadXYZ(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.False(t, frames[0].HasCell)
	assert.Equal(t, [3]bool{}, frames[0].Cell.Periodic)
	assert.Equal(t, "water-free silica fragment", frames[0].Comment)
	assert.Equal(t, geom.Vec{4, 5, 6}, frames[1].Positions[0])

	// Files return their last frame.
	fname := filepath.Join(t.TempDir(), "frames.xyz")
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))
	s, err := ReadXYZFile(fname)
	require.NoError(t, err)
	assert.Equal(t, []string{"O"}, s.Symbols)
}

func TestReadXYZErrors(t *testing.T) {
	table := []string{
		"",
		"x\ncomment\n",
		"2\ncomment\nSi 0 0 0\n",
		"1\ncomment\nSi 0 zero 0\n",
		"1\ncomment\nSi 0 0\n",
		"1\nLattice=\"1 0 0 0 1 0\"\nSi 0 0 0\n",
		"1\nLattice=\"1 0.5 0 0 1 0 0 0 1\"\nSi 0 0 0\n",
		"1\npbc=\"T T\"\nSi 0 0 0\n",
		"1\nProperties=pos:R:3\nSi 0 0 0\n",
		"1\nProperties=species:S:1:pos:R\nSi 0 0 0\n",
	}
	for i, text := range table {
		_, err := ReadXYZ(strings.NewReader(text))
		assert.Error(t, err, "%d)", i)
	}
}

func TestKeyValues(t *testing.T) {
	kv := keyValues(`a=1 b="x y z"  free words c=3 d="unterminated`)
	assert.Equal(t, map[string]string{
		"a": "1", "b": "x y z", "c": "3", "d": "unterminated",
	}, kv)
}

func TestWeights(t *testing.T) {
	s := &Structure{Symbols: []string{"Si", "O", "O"}}

	ws, err := s.Weights(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, ws)

	ws, err = s.Weights(map[string]float64{"Si": 0.5, "O": 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 1, 1}, ws)

	_, err = s.Weights(map[string]float64{"Si": 0.5})
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	con, err := ReadPersistentHomologyString(`[PersistentHomology]
Input = SiO2_%d.xyz
Output = out
IterationStart = 1
IterationEnd = 3
Radius = O 0.5
Radius = Si 0.25
Periodic = false
Dimensions = 2, 1
HistBins = 64
`)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, con.Indices())
	assert.Equal(t, "SiO2_2.xyz", con.InputName(2))
	assert.Equal(t, filepath.Join("out", "SiO2_3_H1.png"),
		con.OutputName(3, "_H1.png"))
	assert.Equal(t, map[string]float64{"O": 0.5, "Si": 0.25}, con.Radii())
	assert.Equal(t, []int{1, 2}, con.Dims())
	assert.False(t, con.Periodic)
	assert.True(t, con.Squared)
	assert.Equal(t, 64, con.HistBins)
	assert.Equal(t, 10.25, con.HistMax)
	assert.Equal(t, 20.0, con.Pressure(2))

	_, ok := con.CellOverride()
	assert.False(t, ok)
}

func TestConfigSingleInput(t *testing.T) {
	con, err := ReadPersistentHomologyString(`[PersistentHomology]
Input = SiO2_0.xyz
Output = .
CellX = 10
CellY = 10
CellZ = 20
`)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, con.Indices())
	assert.Equal(t, "SiO2_0.xyz", con.InputName(0))
	assert.Empty(t, con.Radii())

	cell, ok := con.CellOverride()
	require.True(t, ok)
	assert.Equal(t, geom.Vec{10, 10, 20}, cell.Lengths)
}

func TestConfigErrors(t *testing.T) {
	table := []string{
		"Output = out",
		"Input = a.xyz",
		"Input = a_%d.xyz\nOutput = o\nIterationStart = 2\nIterationEnd = 1",
		"Input = a.xyz\nOutput = o\nRadius = O",
		"Input = a.xyz\nOutput = o\nRadius = O -1",
		"Input = a.xyz\nOutput = o\nDimensions = 1,4",
		"Input = a.xyz\nOutput = o\nHistBins = 0",
		"Input = a.xyz\nOutput = o\nHistMin = 5\nHistMax = 1",
		"Input = a.xyz\nOutput = o\nHistPMax = 2",
		"Input = a.xyz\nOutput = o\nPadding = -1",
		"Input = a.xyz\nOutput = o\nWorkers = -2",
		"Input = a.xyz\nOutput = o\nNotAField = 1",
	}
	for i, body := range table {
		_, err := ReadPersistentHomologyString("[PersistentHomology]\n" + body)
		assert.Error(t, err, "%d)", i)
	}
}

func TestExampleConfigParses(t *testing.T) {
	con, err := ReadPersistentHomologyString(ExamplePersistentHomologyFile)
	require.NoError(t, err)
	assert.True(t, con.Iterated())
	assert.Equal(t, []int{0}, con.Indices())
}

func TestHistogramConfig(t *testing.T) {
	con, err := ReadHistogramString(`[Histogram]
Input = out/SiO2_%d.pd
Output = hist
IterationEnd = 1
Dimensions = 2
HistMax = 4
`)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, con.Indices())
	assert.Equal(t, "out/SiO2_1.pd", con.InputName(1))
	assert.Equal(t, filepath.Join("hist", "SiO2_0_H2.png"),
		con.OutputName(0, "_H2.png"))
	assert.Equal(t, []int{2}, con.Dims())
	assert.Equal(t, 4.0, con.HistMax)
	assert.Equal(t, 256, con.HistBins)

	_, err = ReadHistogramString(ExampleHistogramFile)
	assert.NoError(t, err)

	for i, body := range []string{
		"Output = hist", "Input = a.pd", "Input = a.pd\nOutput = o\nHistMax = 0",
		"Input = a.pd\nOutput = o\nDimensions = x",
	} {
		_, err := ReadHistogramString("[Histogram]\n" + body)
		assert.Error(t, err, "%d)", i)
	}
}

func testDiagrams(t *testing.T) *persistence.PDList {
	h := math.Sqrt(3)
	in := &alpha.Input{Points: []geom.Vec{
		{0, 0, 0}, {2, 0, 0}, {1, h, 0}, {1, h / 3, 2 * math.Sqrt(2.0/3)},
		{3, 3, 3},
	}}
	f, err := alpha.Build(context.Background(), in, alpha.DefaultOptions())
	require.NoError(t, err)
	pd, err := persistence.Compute(context.Background(), f)
	require.NoError(t, err)
	return pd
}

func TestDiagramRoundTrip(t *testing.T) {
	pd := testDiagrams(t)
	fname := filepath.Join(t.TempDir(), "test.pd")
	require.NoError(t, WriteDiagramsFile(fname, pd))

	read, err := ReadDiagrams(fname)
	require.NoError(t, err)
	for d := 0; d <= alpha.MaxDim; d++ {
		assert.Equal(t, pd.Diagram(d).Births, read.Diagram(d).Births, "dim %d", d)
		assert.Equal(t, pd.Diagram(d).Deaths, read.Diagram(d).Deaths, "dim %d", d)
		assert.Equal(t, pd.Diagram(d).EssentialBirths,
			read.Diagram(d).EssentialBirths, "dim %d", d)
	}
}

func TestBoundaryMap(t *testing.T) {
	h := math.Sqrt(3)
	in := &alpha.Input{Points: []geom.Vec{
		{0, 0, 0}, {2, 0, 0}, {1, h, 0}, {1, h / 3, 2 * math.Sqrt(2.0/3)},
	}}
	f, err := alpha.Build(context.Background(), in, alpha.DefaultOptions())
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteBoundaryMap(buf, f))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 15)
	assert.True(t, strings.HasPrefix(lines[0], "0 0 0 "))
	assert.True(t, strings.HasSuffix(lines[0], " :"))
	assert.Equal(t, 4, len(strings.Fields(strings.Split(lines[14], ":")[1])))
}

func TestSummaryRoundTrip(t *testing.T) {
	h := math.Sqrt(3)
	in := &alpha.Input{Points: []geom.Vec{
		{0, 0, 0}, {2, 0, 0}, {1, h, 0}, {1, h / 3, 2 * math.Sqrt(2.0/3)},
	}}
	f, err := alpha.Build(context.Background(), in, alpha.DefaultOptions())
	require.NoError(t, err)
	pd, err := persistence.Compute(context.Background(), f)
	require.NoError(t, err)

	s := NewSummary(f, pd)
	s.Input, s.Index, s.Pressure = "x.xyz", 2, 20
	s.Periodic, s.Cell = []bool{false, false, false}, []float64{0, 0, 0}
	s.Histograms = []HistSummary{{Dim: 1, Binned: 3, Level: 1, Image: "a.png"}}
	assert.Equal(t, []int{4, 6, 4, 1}, s.Simplices)
	assert.Equal(t, []int{3, 3, 1, 0}, s.Pairs)
	assert.Equal(t, []int{1, 0, 0, 0}, s.Essential)
	assert.Equal(t, 1, s.Euler)

	fname := filepath.Join(t.TempDir(), "summary.yaml")
	require.NoError(t, WriteSummaryFile(fname, s))
	read, err := ReadSummaryFile(fname)
	require.NoError(t, err)
	assert.Equal(t, s, read)
}
