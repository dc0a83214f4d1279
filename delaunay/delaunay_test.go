package delaunay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atilaac/SiO2-topology/geom"
)

// testEps is relative to the squared width of the point set.
const testEps = 1e-9

func randomPoints(gen *rand.Rand, n int, width float64) []geom.Vec {
	pts := make([]geom.Vec, n)
	for i := range pts {
		pts[i] = geom.Vec{
			gen.Float64() * width, gen.Float64() * width, gen.Float64() * width,
		}
	}
	return pts
}

// jitteredCube returns the corners of a unit cube, moved slightly so that
// they are not cospherical.
func jitteredCube(gen *rand.Rand) []geom.Vec {
	pts := []geom.Vec{}
	for i := 0; i < 8; i++ {
		p := geom.Vec{float64(i & 1), float64((i >> 1) & 1), float64(i >> 2)}
		for k := 0; k < 3; k++ { p[k] += (gen.Float64() - 0.5) * 0.02 }
		pts = append(pts, p)
	}
	return pts
}

func checkEmpty(t *testing.T, tri *Triangulation, pts []geom.Vec, ws []float64) {
	min, max := geom.Bounds(pts)
	tol := testEps * max.Sub(min).Norm2()
	w := func(i int) float64 {
		if ws == nil { return 0 }
		return ws[i]
	}

	for _, v := range tri.Tetrahedra() {
		tp := []geom.Vec{pts[v[0]], pts[v[1]], pts[v[2]], pts[v[3]]}
		tw := []float64{w(v[0]), w(v[1]), w(v[2]), w(v[3])}
		assert.True(t, geom.Orient(tp[0], tp[1], tp[2], tp[3]) > 0,
			"tetrahedron %v is not positively oriented", v)

		s, err := geom.OrthoSphere(tp, tw)
		require.NoError(t, err)
		for i, p := range pts {
			if tri.Hidden[i] { continue }
			assert.True(t, s.Power(p, w(i)) > -tol,
				"point %d is inside the orthosphere of %v", i, v)
		}
	}
}

func TestRandomDelaunay(t *testing.T) {
	gen := rand.New(rand.NewSource(1337))
	for _, n := range []int{4, 10, 100, 500} {
		pts := randomPoints(gen, n, 10)
		tri, err := New(pts, nil)
		require.NoError(t, err, "n = %d", n)

		assert.Equal(t, n, tri.Len())
		assert.NotEmpty(t, tri.Tetrahedra(), "n = %d", n)
		for i := range pts {
			assert.False(t, tri.Hidden[i], "n = %d, point %d", n, i)
		}
		checkEmpty(t, tri, pts, nil)
	}
}

// TestTranslatedCopies triangulates point sets holding exact translated
// copies of one another. Copies shifted along x and y share z coordinates,
// so many hull faces are coplanar and cocircular.
func TestTranslatedCopies(t *testing.T) {
	tests := []struct {
		name   string
		shifts []geom.Vec
	}{
		{"x", []geom.Vec{{-10, 0, 0}, {10, 0, 0}}},
		{"xy", []geom.Vec{
			{-10, -10, 0}, {-10, 0, 0}, {-10, 10, 0}, {0, -10, 0},
			{0, 10, 0}, {10, -10, 0}, {10, 0, 0}, {10, 10, 0},
		}},
	}

	for _, test := range tests {
		for seed := int64(1); seed <= 6; seed++ {
			gen := rand.New(rand.NewSource(seed))
			base := randomPoints(gen, 40, 10)
			baseWs := make([]float64, len(base))
			for i := range baseWs { baseWs[i] = 0.1 * gen.Float64() }

			pts := append([]geom.Vec{}, base...)
			ws := append([]float64{}, baseWs...)
			for _, d := range test.shifts {
				for i, p := range base {
					pts = append(pts, p.Add(d))
					ws = append(ws, baseWs[i])
				}
			}

			tri, err := New(pts, ws)
			require.NoError(t, err, "%s, seed %d", test.name, seed)
			tets := tri.Tetrahedra()
			assert.NotEmpty(t, tets, "%s, seed %d", test.name, seed)
			for _, v := range tets {
				o := geom.Orient(pts[v[0]], pts[v[1]], pts[v[2]], pts[v[3]])
				assert.True(t, o > 0, "%s, seed %d: %v has orientation %g",
					test.name, seed, v, o)
			}
			checkEmpty(t, tri, pts, ws)
		}
	}
}

func TestSingleTetrahedron(t *testing.T) {
	pts := []geom.Vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	tri, err := New(pts, nil)
	require.NoError(t, err)

	tets := tri.Tetrahedra()
	require.Len(t, tets, 1)
	seen := map[int]bool{}
	for _, v := range tets[0] { seen[v] = true }
	assert.Len(t, seen, 4)
}

func TestWeightedHidden(t *testing.T) {
	gen := rand.New(rand.NewSource(7))
	pts := append(jitteredCube(gen), geom.Vec{0.5, 0.5, 0.5})

	ws := make([]float64, len(pts))
	tri, err := New(pts, ws)
	require.NoError(t, err)
	assert.False(t, tri.Hidden[8])
	checkEmpty(t, tri, pts, ws)

	// A strongly negative weight makes the center redundant.
	ws[8] = -1
	tri, err = New(pts, ws)
	require.NoError(t, err)
	assert.True(t, tri.Hidden[8])
	for i := 0; i < 8; i++ { assert.False(t, tri.Hidden[i]) }
	checkEmpty(t, tri, pts, ws)
}

func TestDuplicates(t *testing.T) {
	gen := rand.New(rand.NewSource(3))
	pts := randomPoints(gen, 30, 1)
	pts = append(pts, pts[5])

	tri, err := New(pts, nil)
	require.NoError(t, err)
	assert.True(t, tri.Hidden[5] != tri.Hidden[30])
}

func TestDegenerate(t *testing.T) {
	table := []struct {
		pts []geom.Vec
		ws  []float64
	}{
		{[]geom.Vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, nil},
		{[]geom.Vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}, nil},
		{[]geom.Vec{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}, nil},
		{[]geom.Vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			[]float64{0, 0}},
	}

	for i, test := range table {
		_, err := New(test.pts, test.ws)
		assert.Error(t, err, "%d)", i)
	}
}

func TestMortonOrder(t *testing.T) {
	gen := rand.New(rand.NewSource(11))
	pts := randomPoints(gen, 200, 3)
	idxs := mortonOrder(pts)

	seen := make([]bool, len(pts))
	for _, i := range idxs { seen[i] = true }
	for i := range seen { assert.True(t, seen[i], "%d missing", i) }

	assert.Equal(t, uint64(0), interleave(0))
	assert.Equal(t, uint64(1|1<<3|1<<6), interleave(7))
}
