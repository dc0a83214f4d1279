/*package alpha builds alpha filtrations of atomic configurations.

An alpha filtration assigns to every simplex of the regular triangulation of
the weighted atoms the squared radius at which the union of growing balls
first contains it. Periodic cells are handled by triangulating the atoms
together with nearby periodic images and identifying simplices which differ
only by a lattice translation. The result is a filtration of the quotient
complex, so a fully periodic cell produces the homology of a 3-torus at large
radii.
*/
package alpha

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/Atilaac/SiO2-topology/delaunay"
	"github.com/Atilaac/SiO2-topology/geom"
)

// MaxDim is the largest simplex dimension in a 3D alpha complex.
const MaxDim = 3

// ctxStride is the number of tetrahedra processed between context checks.
const ctxStride = 4096

// maxShift is the largest number of cell lengths a Vertex can be shifted by.
const maxShift = 127

// Input is an atomic configuration. Weights may be nil, which is the same
// as all weights being zero.
type Input struct {
	Points  []geom.Vec
	Weights []float64
	Cell    geom.Cell
}

type Options struct {
	// Squared reports squared radii. Otherwise values are signed radii,
	// sign(v) * sqrt(|v|).
	Squared bool
	// Padding is the width of the shell of periodic images kept around the
	// cell. Features whose balls are wider than the padding can come out
	// wrong. Zero selects half of the shortest periodic cell length.
	Padding float64
}

// DefaultOptions returns squared values with automatic padding.
func DefaultOptions() Options { return Options{Squared: true} }

// Vertex is an atom in a specific periodic image.
type Vertex struct {
	Atom  int32
	Shift [3]int8
}

// Simplex is a simplex of the filtration. Verts is the canonical
// representative: sorted, with the smallest atom in the central image.
type Simplex struct {
	Verts []Vertex
	Dim   int
	Value float64
	// Boundary holds the indices of the facets of the simplex in
	// Filtration.Simplices. It is empty for vertices.
	Boundary []int
}

// Filtration is a list of simplices sorted by value, with faces before
// cofaces.
type Filtration struct {
	Simplices []Simplex
	Atoms     int
	// Padded is the number of points which went into the triangulation.
	Padded int
	// Hidden is the number of atoms which do not appear in the complex.
	Hidden int
}

// Counts returns the number of simplices of each dimension.
func (f *Filtration) Counts() [MaxDim + 1]int {
	var counts [MaxDim + 1]int
	for i := range f.Simplices { counts[f.Simplices[i].Dim]++ }
	return counts
}

// EulerCharacteristic returns the alternating sum of the simplex counts.
func (f *Filtration) EulerCharacteristic() int {
	counts := f.Counts()
	return counts[0] - counts[1] + counts[2] - counts[3]
}

type key struct {
	n int8
	v [MaxDim + 1]Vertex
}

// record is a simplex under construction.
type record struct {
	key      key
	dim      int
	r2       float64
	boundary []int
	attached []bool
	value    float64
}

type builder struct {
	pts  []geom.Vec
	ws   []float64
	vs   []Vertex
	ids  map[key]int
	recs []record
}

// Build computes the alpha filtration of in.
func Build(ctx context.Context, in *Input, opts Options) (*Filtration, error) {
	if len(in.Points) == 0 {
		return nil, errors.New("alpha: no atoms")
	} else if in.Weights != nil && len(in.Weights) != len(in.Points) {
		return nil, errors.Errorf(
			"alpha: %d atoms but %d weights", len(in.Points), len(in.Weights),
		)
	} else if opts.Padding < 0 {
		return nil, errors.Errorf("alpha: negative padding %g", opts.Padding)
	}
	if err := in.Cell.Check(); err != nil {
		return nil, errors.Wrap(err, "alpha")
	}
	if in.Cell.AnyPeriodic() &&
		opts.Padding > maxShift*in.Cell.MinPeriodicLength() {
		return nil, errors.Errorf(
			"alpha: padding %g is more than %d cell lengths",
			opts.Padding, maxShift,
		)
	}

	b := &builder{ids: map[key]int{}}
	pad := opts.Padding
	if pad == 0 { pad = in.Cell.MinPeriodicLength() / 2 }
	b.embed(in, pad)

	tri, err := delaunay.New(b.pts, b.ws)
	if err != nil { return nil, errors.Wrap(err, "alpha: triangulating") }
	if err := ctx.Err(); err != nil { return nil, err }

	for i, t := range tri.Tetrahedra() {
		if i%ctxStride == 0 {
			if err := ctx.Err(); err != nil { return nil, err }
		}
		if !b.central(t[:]) { continue }
		if _, err := b.intern(t[:]); err != nil { return nil, err }
	}

	hidden := 0
	for i, v := range b.vs {
		if v.Shift != [3]int8{} { continue }
		if tri.Hidden[i] {
			hidden++
			continue
		}
		if _, err := b.intern([]int{i}); err != nil { return nil, err }
	}

	b.assignValues()
	if err := ctx.Err(); err != nil { return nil, err }

	f := b.sorted(opts.Squared)
	f.Atoms, f.Padded, f.Hidden = len(in.Points), len(b.pts), hidden
	return f, nil
}

// embed fills the builder with every atom and the periodic images within pad
// of the cell.
func (b *builder) embed(in *Input, pad float64) {
	cell := &in.Cell
	var lo, hi [3]int
	for k := 0; k < 3; k++ {
		if cell.Periodic[k] {
			m := int(math.Ceil(pad / cell.Lengths[k]))
			if m < 1 { m = 1 }
			lo[k], hi[k] = -m, m
		}
	}

	for i, p := range in.Points {
		w := 0.0
		if in.Weights != nil { w = in.Weights[i] }
		p = cell.Wrap(p)

		for sx := lo[0]; sx <= hi[0]; sx++ {
			for sy := lo[1]; sy <= hi[1]; sy++ {
				for sz := lo[2]; sz <= hi[2]; sz++ {
					shift := [3]int{sx, sy, sz}
					q := cell.Image(p, shift)
					if !inShell(cell, q, pad) { continue }

					b.pts = append(b.pts, q)
					b.ws = append(b.ws, w)
					b.vs = append(b.vs, Vertex{
						int32(i), [3]int8{int8(sx), int8(sy), int8(sz)},
					})
				}
			}
		}
	}
}

func inShell(cell *geom.Cell, q geom.Vec, pad float64) bool {
	for k := 0; k < 3; k++ {
		if !cell.Periodic[k] { continue }
		if q[k] < -pad || q[k] >= cell.Lengths[k]+pad { return false }
	}
	return true
}

// central returns true if any of the points is in the central image.
func (b *builder) central(idxs []int) bool {
	for _, i := range idxs {
		if b.vs[i].Shift == [3]int8{} { return true }
	}
	return false
}

// canonical returns the key shared by every lattice translation of the
// simplex spanned by vs. The smallest vertex is moved to the central image,
// which is well defined because vertex order is translation invariant.
func canonical(vs []Vertex) key {
	anchor := vs[0]
	for _, v := range vs[1:] {
		if vertexLess(v, anchor) { anchor = v }
	}

	k := key{n: int8(len(vs))}
	for i, v := range vs {
		for d := 0; d < 3; d++ { v.Shift[d] -= anchor.Shift[d] }
		k.v[i] = v
	}
	sub := k.v[:len(vs)]
	sort.Slice(sub, func(i, j int) bool { return vertexLess(sub[i], sub[j]) })
	return k
}

func vertexLess(a, b Vertex) bool {
	if a.Atom != b.Atom { return a.Atom < b.Atom }
	for d := 0; d < 3; d++ {
		if a.Shift[d] != b.Shift[d] { return a.Shift[d] < b.Shift[d] }
	}
	return false
}

// intern returns the record index of the simplex spanned by the padded
// points idxs, creating it and its faces if needed.
func (b *builder) intern(idxs []int) (int, error) {
	vs := make([]Vertex, len(idxs))
	for i, idx := range idxs { vs[i] = b.vs[idx] }
	k := canonical(vs)
	if id, ok := b.ids[k]; ok { return id, nil }

	pts, ws := b.geometry(idxs)
	s, err := geom.OrthoSphere(pts, ws)
	if err != nil {
		return -1, errors.Wrapf(err, "alpha: simplex %v", vs)
	}

	rec := record{key: k, dim: len(idxs) - 1, r2: s.R2}
	if len(idxs) > 1 {
		face := make([]int, len(idxs) - 1)
		for j := range idxs {
			face = face[:0]
			for i, idx := range idxs {
				if i != j { face = append(face, idx) }
			}

			fid, err := b.intern(face)
			if err != nil { return -1, err }

			fpts, fws := b.geometry(face)
			fs, err := geom.OrthoSphere(fpts, fws)
			if err != nil {
				return -1, errors.Wrapf(err, "alpha: face of simplex %v", vs)
			}

			rec.boundary = append(rec.boundary, fid)
			rec.attached = append(rec.attached,
				fs.Power(b.pts[idxs[j]], b.ws[idxs[j]]) < 0)
		}
	}

	id := len(b.recs)
	b.recs = append(b.recs, rec)
	b.ids[k] = id
	return id, nil
}

func (b *builder) geometry(idxs []int) ([]geom.Vec, []float64) {
	pts, ws := make([]geom.Vec, len(idxs)), make([]float64, len(idxs))
	for i, idx := range idxs { pts[i], ws[i] = b.pts[idx], b.ws[idx] }
	return pts, ws
}

// assignValues sets filtration values from the top dimension down. A face
// which is attached to a coface, or whose own orthosphere is larger than a
// coface's value, enters with its first coface.
func (b *builder) assignValues() {
	minCoface := make([]float64, len(b.recs))
	attached := make([]bool, len(b.recs))
	for i := range minCoface { minCoface[i] = math.Inf(+1) }

	for dim := MaxDim; dim >= 0; dim-- {
		for i := range b.recs {
			rec := &b.recs[i]
			if rec.dim != dim { continue }

			if attached[i] {
				rec.value = minCoface[i]
			} else {
				rec.value = math.Min(rec.r2, minCoface[i])
			}

			for j, fid := range rec.boundary {
				minCoface[fid] = math.Min(minCoface[fid], rec.value)
				if rec.attached[j] { attached[fid] = true }
			}
		}
	}
}

// sorted converts records into a filtration ordered by (value, dim, creation
// order).
func (b *builder) sorted(squared bool) *Filtration {
	order := make([]int, len(b.recs))
	for i := range order { order[i] = i }
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := &b.recs[order[i]], &b.recs[order[j]]
		if ri.value != rj.value { return ri.value < rj.value }
		return ri.dim < rj.dim
	})

	pos := make([]int, len(b.recs))
	for p, id := range order { pos[id] = p }

	f := &Filtration{Simplices: make([]Simplex, len(order))}
	for p, id := range order {
		rec := &b.recs[id]
		s := &f.Simplices[p]
		s.Dim = rec.dim
		s.Verts = append([]Vertex(nil), rec.key.v[:rec.key.n]...)
		s.Value = rec.value
		if !squared { s.Value = signedSqrt(rec.value) }

		if len(rec.boundary) > 0 {
			s.Boundary = make([]int, len(rec.boundary))
			for j, fid := range rec.boundary { s.Boundary[j] = pos[fid] }
			sort.Ints(s.Boundary)
		}
	}
	return f
}

func signedSqrt(x float64) float64 {
	if x < 0 { return -math.Sqrt(-x) }
	return math.Sqrt(x)
}
