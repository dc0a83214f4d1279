package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEps = 1e-10

func TestOrthoSphere(t *testing.T) {
	h := math.Sqrt(3)
	table := []struct {
		pts []Vec
		ws  []float64
		c   Vec
		r2  float64
	}{
		{[]Vec{{1, 2, 3}}, nil, Vec{1, 2, 3}, 0},
		{[]Vec{{1, 2, 3}}, []float64{0.5}, Vec{1, 2, 3}, -0.5},
		{[]Vec{{0, 0, 0}, {2, 0, 0}}, nil, Vec{1, 0, 0}, 1},
		// The center moves toward the lighter point.
		{[]Vec{{0, 0, 0}, {2, 0, 0}}, []float64{1, 0}, Vec{1.25, 0, 0}, 0.5625},
		{[]Vec{{0, 0, 0}, {2, 0, 0}, {1, h, 0}}, nil,
			Vec{1, h / 3, 0}, 4.0 / 3},
		{[]Vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, nil,
			Vec{0.5, 0.5, 0.5}, 0.75},
	}

	for i, test := range table {
		s, err := OrthoSphere(test.pts, test.ws)
		require.NoError(t, err, "%d)", i)
		assert.InDeltaSlice(t, test.c[:], s.C[:], testEps, "%d)", i)
		assert.InDelta(t, test.r2, s.R2, testEps, "%d)", i)

		for j, p := range test.pts {
			w := 0.0
			if test.ws != nil { w = test.ws[j] }
			assert.InDelta(t, 0, s.Power(p, w), testEps, "%d) point %d", i, j)
		}
	}
}

func TestOrthoSphereDegenerate(t *testing.T) {
	_, err := OrthoSphere([]Vec{{0, 0, 0}, {0, 0, 0}}, nil)
	assert.Equal(t, ErrDegenerate, err)

	_, err = OrthoSphere([]Vec{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}, nil)
	assert.Equal(t, ErrDegenerate, err)

	_, err = OrthoSphere(nil, nil)
	assert.Error(t, err)
}

func TestOrient(t *testing.T) {
	a, b, c := Vec{0, 0, 0}, Vec{1, 0, 0}, Vec{0, 1, 0}
	assert.InDelta(t, 1, Orient(a, b, c, Vec{0, 0, 1}), testEps)
	assert.InDelta(t, -1, Orient(a, b, c, Vec{0, 0, -1}), testEps)
	assert.InDelta(t, 0, Orient(a, b, c, Vec{3, 4, 0}), testEps)
}

func TestCellWrap(t *testing.T) {
	c := &Cell{Lengths: Vec{10, 10, 10}, Periodic: [3]bool{true, true, false}}
	require.NoError(t, c.Check())

	table := []struct {
		v, out Vec
	}{
		{Vec{1, 2, 3}, Vec{1, 2, 3}},
		{Vec{-1, 12, -3}, Vec{9, 2, -3}},
		{Vec{10, 20, 30}, Vec{0, 0, 30}},
	}
	for i, test := range table {
		out := c.Wrap(test.v)
		assert.InDeltaSlice(t, test.out[:], out[:], testEps, "%d)", i)
	}

	assert.Equal(t, Vec{11, 8, 13}, c.Image(Vec{1, 2, 3}, [3]int{1, 0, 1}))
	assert.Equal(t, 10.0, c.MinPeriodicLength())
	assert.True(t, c.AnyPeriodic())

	bad := &Cell{Periodic: [3]bool{true, false, false}}
	assert.Error(t, bad.Check())
}
