/*package persistence computes persistence diagrams of alpha filtrations by
reducing the boundary matrix over Z/2.

Columns are reduced from the highest dimension down so that every pivot found
in dimension d clears a column of dimension d - 1 without further work.
*/
package persistence

import (
	"context"
	"math"

	"github.com/Atilaac/SiO2-topology/alpha"
)

const ctxStride = 1024

// Diagram is the persistence diagram of one homology dimension. Births[i]
// and Deaths[i] form a pair. Classes which never die are listed separately.
type Diagram struct {
	Dim             int
	Births, Deaths  []float64
	EssentialBirths []float64
}

// Len returns the number of finite pairs.
func (d *Diagram) Len() int { return len(d.Births) }

// Persistences returns death - birth for every finite pair.
func (d *Diagram) Persistences() []float64 {
	out := make([]float64, len(d.Births))
	for i := range out { out[i] = d.Deaths[i] - d.Births[i] }
	return out
}

// MaxDeath returns the largest finite death, or -Inf for an empty diagram.
func (d *Diagram) MaxDeath() float64 {
	max := math.Inf(-1)
	for _, x := range d.Deaths { max = math.Max(max, x) }
	return max
}

// PDList holds the diagrams of dimensions 0 through alpha.MaxDim.
type PDList struct {
	Diagrams [alpha.MaxDim + 1]*Diagram
}

// Diagram returns the diagram of dimension d. Dimensions outside the complex
// give empty diagrams.
func (l *PDList) Diagram(d int) *Diagram {
	if d < 0 || d > alpha.MaxDim { return &Diagram{Dim: d} }
	return l.Diagrams[d]
}

// Compute reduces the boundary matrix of f. Pairs with zero persistence are
// dropped.
func Compute(ctx context.Context, f *alpha.Filtration) (*PDList, error) {
	n := len(f.Simplices)
	pivotOf := make([]int, n)
	for i := range pivotOf { pivotOf[i] = -1 }
	reduced := make([][]int, n)
	cleared := make([]bool, n)
	negative := make([]bool, n)
	paired := make([]bool, n)

	l := &PDList{}
	for d := range l.Diagrams { l.Diagrams[d] = &Diagram{Dim: d} }

	steps := 0
	for dim := alpha.MaxDim; dim >= 1; dim-- {
		for j := 0; j < n; j++ {
			s := &f.Simplices[j]
			if s.Dim != dim || cleared[j] { continue }

			steps++
			if steps%ctxStride == 0 {
				if err := ctx.Err(); err != nil { return nil, err }
			}

			col := append([]int(nil), s.Boundary...)
			for len(col) > 0 {
				k := pivotOf[col[len(col) - 1]]
				if k < 0 { break }
				col = symmetricDifference(col, reduced[k])
			}
			if len(col) == 0 { continue }

			low := col[len(col) - 1]
			pivotOf[low] = j
			reduced[j] = col
			negative[j] = true
			paired[low] = true
			cleared[low] = true

			birth, death := f.Simplices[low].Value, s.Value
			if birth == death { continue }
			diag := l.Diagrams[dim - 1]
			diag.Births = append(diag.Births, birth)
			diag.Deaths = append(diag.Deaths, death)
		}
	}

	for i := range f.Simplices {
		if negative[i] || paired[i] { continue }
		s := &f.Simplices[i]
		diag := l.Diagrams[s.Dim]
		diag.EssentialBirths = append(diag.EssentialBirths, s.Value)
	}

	return l, nil
}

// symmetricDifference returns the Z/2 sum of two sorted columns.
func symmetricDifference(a, b []int) []int {
	out := make([]int, 0, len(a) + len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
