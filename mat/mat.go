/*package mat contains the small dense solvers needed for orthosphere
computations. The systems which show up here are at most 3x3 Gram matrices,
so everything is written for clarity rather than for cache behavior.
*/
package mat

import (
	"math"

	"github.com/pkg/errors"
)

// ErrSingular is returned when a matrix cannot be factored.
var ErrSingular = errors.New("mat: matrix is singular")

type Matrix struct {
	Vals []float64
	Width, Height int
}

type LUFactors struct {
	lu Matrix
	pivot []int
	d float64
}

func NewMatrix(vals []float64, width, height int) (*Matrix, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf(
			"mat: dimensions must be positive, got %dx%d", width, height,
		)
	} else if width*height != len(vals) {
		return nil, errors.Errorf(
			"mat: %dx%d matrix given %d values", width, height, len(vals),
		)
	}

	return &Matrix{Vals: vals, Width: width, Height: height}, nil
}

func NewLUFactors(n int) *LUFactors {
	luf := new(LUFactors)

	luf.lu.Vals, luf.lu.Width, luf.lu.Height = make([]float64, n*n), n, n
	luf.pivot = make([]int, n)
	luf.d = 1

	return luf
}

func (m *Matrix) LU() (*LUFactors, error) {
	if m.Width != m.Height {
		return nil, errors.Errorf("mat: %dx%d matrix is non-square",
			m.Width, m.Height)
	}

	lu := NewLUFactors(m.Width)
	if err := m.LUFactorsAt(lu); err != nil { return nil, err }
	return lu, nil
}

// LUFactorsAt computes the LU decomposition of m with scaled partial
// pivoting and stores it in luf.
func (m *Matrix) LUFactorsAt(luf *LUFactors) error {
	if luf.lu.Width != m.Width || luf.lu.Height != m.Height {
		return errors.New("mat: luf has different dimensions than m")
	}

	n := m.Width
	scale := make([]float64, n)
	lu := luf.lu.Vals
	luf.d = 1
	copy(lu, m.Vals)

	for i := 0; i < n; i++ {
		max := 0.0
		for j := 0; j < n; j++ {
			tmp := math.Abs(lu[i*n + j])
			if tmp > max { max = tmp }
		}
		if max == 0 { return ErrSingular }
		scale[i] = 1 / max
	}

	for k := 0; k < n; k++ {
		max := 0.0
		maxi := k
		for i := k; i < n; i++ {
			tmp := scale[i] * math.Abs(lu[i*n + k])
			if tmp > max {
				max = tmp
				maxi = i
			}
		}

		if k != maxi {
			for j := 0; j < n; j++ {
				lu[k*n + j], lu[maxi*n + j] = lu[maxi*n + j], lu[k*n + j]
			}
			luf.d = -luf.d
			scale[maxi] = scale[k]
		}
		luf.pivot[k] = maxi

		if lu[k*n + k] == 0 { return ErrSingular }

		for i := k + 1; i < n; i++ {
			lu[i*n + k] /= lu[k*n + k]
			tmp := lu[i*n + k]
			for j := k + 1; j < n; j++ {
				lu[i*n + j] -= tmp * lu[k*n + j]
			}
		}
	}

	return nil
}

// SolveVector solves M * xs = bs for xs.
//
// bs and xs may point to the same physical memory.
func (luf *LUFactors) SolveVector(bs, xs []float64) error {
	n := luf.lu.Width
	if n != len(bs) || n != len(xs) {
		return errors.Errorf(
			"mat: vector lengths %d and %d do not match matrix width %d",
			len(bs), len(xs), n,
		)
	}

	copy(xs, bs)
	forwardSubst(n, luf.pivot, luf.lu.Vals, xs)
	backSubst(n, luf.lu.Vals, xs)
	return nil
}

// Solves L * y = b for y, applying the row swaps as it goes.
func forwardSubst(n int, pivot []int, lu, ys []float64) {
	for i := 0; i < n; i++ {
		piv := pivot[i]
		ys[i], ys[piv] = ys[piv], ys[i]
	}

	for i := 0; i < n; i++ {
		sum := ys[i]
		for j := 0; j < i; j++ {
			sum -= lu[i*n + j] * ys[j]
		}
		ys[i] = sum
	}
}

// Solves U * x = y for x in place.
// x_i = (y_i - sum_j=i+1^N-1 (beta_ij x_j)) / beta_ii
func backSubst(n int, lu, xs []float64) {
	for i := n - 1; i >= 0; i-- {
		sum := xs[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i*n + j] * xs[j]
		}
		xs[i] = sum / lu[i*n + i]
	}
}

func (luf *LUFactors) Determinant() float64 {
	d := luf.d
	lu := luf.lu.Vals
	n := luf.lu.Width

	for i := 0; i < n; i++ {
		d *= lu[i*n + i]
	}
	return d
}

// Solve solves the n x n system vals * xs = bs and returns xs.
func Solve(vals []float64, n int, bs []float64) ([]float64, error) {
	m, err := NewMatrix(vals, n, n)
	if err != nil { return nil, err }
	luf, err := m.LU()
	if err != nil { return nil, err }

	xs := make([]float64, n)
	if err := luf.SolveVector(bs, xs); err != nil { return nil, err }
	return xs, nil
}
