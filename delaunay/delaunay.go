/*package delaunay builds 3D regular triangulations, the weighted
generalization of Delaunay tetrahedralizations, with the Bowyer-Watson
algorithm.

The triangulation starts from a single enclosing tetrahedron. Each point is
located with a visibility walk, every tetrahedron whose orthosphere it
conflicts with is removed, and the resulting star-shaped cavity is
retriangulated from the new point. Tetrahedra touching the enclosing
vertices are dropped from the output, so the convex hull of the input may be
incomplete. Callers which need a correct triangulation near some region
should pad the input around it.
*/
package delaunay

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/Atilaac/SiO2-topology/geom"
)

const (
	// superScale is the size of the enclosing tetrahedron in units of the
	// input's bounding radius.
	superScale = 50.0
	// Relative volume below which an input is considered coplanar.
	flatEps = 1e-12
	// Relative squared distance below which two points are the same.
	dupEps = 1e-24
	// Maximum number of times a cavity is grown around one point.
	maxGrowth = 64
)

// ErrDegenerate is returned for inputs without four affinely independent
// points.
var ErrDegenerate = errors.New("delaunay: input points are degenerate")

// Tet is a positively oriented tetrahedron. N[i] is the neighbor across the
// face opposite V[i], or -1.
type Tet struct {
	V, N [4]int
	s    geom.Sphere
	dead bool
}

// Triangulation is a regular triangulation of a weighted point set.
type Triangulation struct {
	// Hidden[i] is true if point i does not appear in the triangulation,
	// either because it is redundant under its weight or because it
	// duplicates an earlier point.
	Hidden []bool

	pts []geom.Vec
	ws  []float64
	n   int

	tets []Tet
	free []int
	last int

	mark    []int
	stamp   int
	rot     int
	scale2  float64
	flatTol float64
}

type boundaryFace struct {
	v         [4]int
	j         int
	outer, ok int
}

// New triangulates pts with weights ws. ws may be nil for an unweighted
// (Delaunay) triangulation.
func New(pts []geom.Vec, ws []float64) (*Triangulation, error) {
	n := len(pts)
	if n < 4 {
		return nil, errors.Errorf(
			"delaunay: need at least 4 points, got %d", n,
		)
	} else if ws != nil && len(ws) != n {
		return nil, errors.Errorf(
			"delaunay: %d points but %d weights", n, len(ws),
		)
	}

	if err := checkVolume(pts); err != nil { return nil, err }

	tri := &Triangulation{
		Hidden: make([]bool, n),
		pts: make([]geom.Vec, n, n + 4),
		ws: make([]float64, n + 4),
		n: n,
	}
	copy(tri.pts, pts)
	if ws != nil { copy(tri.ws, ws) }

	tri.initSuper()

	for _, i := range mortonOrder(pts) {
		if err := tri.insert(i); err != nil {
			return nil, errors.Wrapf(err, "inserting point %d", i)
		}
	}

	for k := range tri.tets {
		tet := &tri.tets[k]
		if tet.dead || !tri.finite(tet.V) { continue }
		if !tri.positive(tet.V) {
			return nil, errors.Errorf(
				"delaunay: flat tetrahedron %v", tet.V,
			)
		}
	}

	// Weighted points can become redundant after later insertions, so
	// visibility is only known at the end.
	for i := range tri.Hidden { tri.Hidden[i] = true }
	for i := range tri.tets {
		if tri.tets[i].dead { continue }
		for _, v := range tri.tets[i].V {
			if v < n { tri.Hidden[v] = false }
		}
	}

	return tri, nil
}

// Len returns the number of input points.
func (tri *Triangulation) Len() int { return tri.n }

// Point returns input point i.
func (tri *Triangulation) Point(i int) geom.Vec { return tri.pts[i] }

// Tetrahedra returns the vertex indices of every tetrahedron which does not
// touch the enclosing tetrahedron.
func (tri *Triangulation) Tetrahedra() [][4]int {
	out := [][4]int{}
	for i := range tri.tets {
		t := &tri.tets[i]
		if t.dead || !tri.finite(t.V) { continue }
		out = append(out, t.V)
	}
	return out
}

// finite returns true if v has no vertex of the enclosing tetrahedron.
func (tri *Triangulation) finite(v [4]int) bool {
	return v[0] < tri.n && v[1] < tri.n && v[2] < tri.n && v[3] < tri.n
}

// checkVolume returns ErrDegenerate if every point lies on a common plane.
func checkVolume(pts []geom.Vec) error {
	min, max := geom.Bounds(pts)
	scale := max.Sub(min).Norm()
	if scale == 0 { return ErrDegenerate }

	p0 := pts[0]
	i1, best := 0, 0.0
	for i, p := range pts {
		if d := p.Sub(p0).Norm2(); d > best { i1, best = i, d }
	}
	p1 := pts[i1]
	axis := p1.Sub(p0)

	i2, best := 0, 0.0
	for i, p := range pts {
		if d := axis.Cross(p.Sub(p0)).Norm2(); d > best { i2, best = i, d }
	}
	p2 := pts[i2]

	best = 0.0
	for _, p := range pts {
		best = math.Max(best, math.Abs(geom.Orient(p0, p1, p2, p)))
	}
	if best <= flatEps*scale*scale*scale { return ErrDegenerate }
	return nil
}

func (tri *Triangulation) initSuper() {
	min, max := geom.Bounds(tri.pts)
	c := min.Add(max).Scale(0.5)
	tri.scale2 = max.Sub(min).Norm2()
	tri.flatTol = flatEps * tri.scale2 * math.Sqrt(tri.scale2)
	r := max.Sub(min).Norm()/2 + 1
	s := superScale * r

	dirs := [4]geom.Vec{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}
	var v [4]int
	for i, d := range dirs {
		tri.pts = append(tri.pts, c.Add(d.Scale(s)))
		v[i] = tri.n + i
	}

	if geom.Orient(tri.pts[v[0]], tri.pts[v[1]],
		tri.pts[v[2]], tri.pts[v[3]]) < 0 {
		v[2], v[3] = v[3], v[2]
	}
	tri.last = tri.newTet(v)
}

func (tri *Triangulation) newTet(v [4]int) int {
	var idx int
	if len(tri.free) > 0 {
		idx = tri.free[len(tri.free) - 1]
		tri.free = tri.free[:len(tri.free) - 1]
	} else {
		idx = len(tri.tets)
		tri.tets = append(tri.tets, Tet{})
		tri.mark = append(tri.mark, 0)
	}

	t := &tri.tets[idx]
	t.V, t.N, t.dead = v, [4]int{-1, -1, -1, -1}, false

	pts := []geom.Vec{
		tri.pts[v[0]], tri.pts[v[1]], tri.pts[v[2]], tri.pts[v[3]],
	}
	ws := []float64{tri.ws[v[0]], tri.ws[v[1]], tri.ws[v[2]], tri.ws[v[3]]}
	s, err := geom.OrthoSphere(pts, ws)
	if err != nil {
		// Flat tetrahedra conflict with everything so that the next
		// insertion which reaches them removes them.
		c := pts[0].Add(pts[1]).Add(pts[2]).Add(pts[3]).Scale(0.25)
		s = geom.Sphere{C: c, R2: math.Inf(+1)}
	}
	t.s = s

	return idx
}

func (tri *Triangulation) conflict(t int, q geom.Vec, wq float64) bool {
	return tri.tets[t].s.Power(q, wq) < 0
}

// locate walks from the last created tetrahedron to the one containing q.
func (tri *Triangulation) locate(q geom.Vec) (int, error) {
	t := tri.last
	if tri.tets[t].dead { t = tri.anyLive() }

	maxSteps := 4*len(tri.tets) + 16
walk:
	for step := 0; step < maxSteps; step++ {
		tet := &tri.tets[t]
		tri.rot++
		for k := 0; k < 4; k++ {
			j := (k + tri.rot) % 4
			if tri.orientReplaced(t, j, q) < 0 {
				if tet.N[j] < 0 { break walk }
				t = tet.N[j]
				continue walk
			}
		}
		return t, nil
	}

	// The walk can fail near numerically flat tetrahedra.
	for i := range tri.tets {
		if tri.tets[i].dead { continue }
		inside := true
		for j := 0; j < 4 && inside; j++ {
			inside = tri.orientReplaced(i, j, q) >= 0
		}
		if inside { return i, nil }
	}
	return -1, errors.Errorf("delaunay: cannot locate point %v", q)
}

func (tri *Triangulation) anyLive() int {
	for i := range tri.tets {
		if !tri.tets[i].dead { return i }
	}
	return -1
}

// duplicate returns true if q coincides with a vertex of t.
func (tri *Triangulation) duplicate(t int, q geom.Vec) bool {
	for _, v := range tri.tets[t].V {
		if tri.pts[v].Sub(q).Norm2() <= dupEps*tri.scale2 { return true }
	}
	return false
}

// orientReplaced returns the orientation of tetrahedron t with vertex j
// replaced by q.
func (tri *Triangulation) orientReplaced(t, j int, q geom.Vec) float64 {
	v := tri.tets[t].V
	var p [4]geom.Vec
	for i := 0; i < 4; i++ {
		if i == j {
			p[i] = q
		} else {
			p[i] = tri.pts[v[i]]
		}
	}
	return geom.Orient(p[0], p[1], p[2], p[3])
}

func (tri *Triangulation) insert(i int) error {
	q, wq := tri.pts[i], tri.ws[i]

	t, err := tri.locate(q)
	if err != nil { return err }
	if !tri.conflict(t, q, wq) || tri.duplicate(t, q) { return nil }

	tri.stamp++
	cavity := []int{t}
	tri.mark[t] = tri.stamp

	for c := 0; c < len(cavity); c++ {
		for _, nb := range tri.tets[cavity[c]].N {
			if nb < 0 || tri.mark[nb] == tri.stamp { continue }
			if tri.conflict(nb, q, wq) {
				tri.mark[nb] = tri.stamp
				cavity = append(cavity, nb)
			}
		}
	}

	faces, err := tri.cavityFaces(i, &cavity)
	if err != nil { return err }

	for _, ct := range cavity {
		tri.tets[ct].dead = true
		tri.free = append(tri.free, ct)
	}

	// Faces of the new tetrahedra which contain q are glued along the edge
	// they share with the cavity boundary.
	edges := make(map[[2]int][2]int, 3*len(faces))
	for _, f := range faces {
		nt := tri.newTet(f.v)
		tri.tets[nt].N[f.j] = f.outer
		if f.outer >= 0 && f.ok >= 0 { tri.tets[f.outer].N[f.ok] = nt }

		for k := 0; k < 4; k++ {
			if k == f.j { continue }
			key := edgeKey(f.v, f.j, k)
			if other, ok := edges[key]; ok {
				tri.tets[nt].N[k] = other[0]
				tri.tets[other[0]].N[other[1]] = nt
				delete(edges, key)
			} else {
				edges[key] = [2]int{nt, k}
			}
		}
		tri.last = nt
	}

	return nil
}

// cavityFaces returns the boundary faces of the cavity as tetrahedra with
// point i in place of the vertex inside the cavity. A face which point i does
// not strictly see would become a flat or inverted tetrahedron. This happens
// for coplanar and cospherical inputs, e.g. periodic images which share a
// coordinate. The tetrahedron behind such a face is added to the cavity.
func (tri *Triangulation) cavityFaces(
	i int, cavity *[]int,
) ([]boundaryFace, error) {
	faces := []boundaryFace{}
	for round := 0; round <= maxGrowth; round++ {
		faces = faces[:0]
		grow := []int{}
		for _, ct := range *cavity {
			tet := &tri.tets[ct]
			for j := 0; j < 4; j++ {
				nb := tet.N[j]
				if nb >= 0 && tri.mark[nb] == tri.stamp { continue }

				f := boundaryFace{v: tet.V, j: j, outer: nb, ok: -1}
				f.v[j] = i
				if nb >= 0 && !tri.positive(f.v) {
					grow = append(grow, nb)
					continue
				}
				if nb >= 0 {
					for k := 0; k < 4; k++ {
						if tri.tets[nb].N[k] == ct { f.ok = k }
					}
				}
				faces = append(faces, f)
			}
		}

		if len(grow) == 0 { return faces, nil }
		for _, nb := range grow {
			if tri.mark[nb] == tri.stamp { continue }
			tri.mark[nb] = tri.stamp
			*cavity = append(*cavity, nb)
		}
	}
	return nil, errors.Errorf(
		"delaunay: cavity of point %v is not star-shaped", tri.pts[i],
	)
}

// positive returns true if the tetrahedron v has a volume above the flatness
// tolerance.
func (tri *Triangulation) positive(v [4]int) bool {
	o := geom.Orient(tri.pts[v[0]], tri.pts[v[1]], tri.pts[v[2]], tri.pts[v[3]])
	return o > tri.flatTol
}

// edgeKey returns the sorted pair of vertices of v other than v[j] and v[k].
func edgeKey(v [4]int, j, k int) [2]int {
	key := [2]int{}
	n := 0
	for i := 0; i < 4; i++ {
		if i == j || i == k { continue }
		key[n] = v[i]
		n++
	}
	if key[0] > key[1] { key[0], key[1] = key[1], key[0] }
	return key
}

// mortonOrder returns the indices of pts sorted along a Z-order curve, which
// keeps consecutive insertions close together and the walks short.
func mortonOrder(pts []geom.Vec) []int {
	min, max := geom.Bounds(pts)
	span := max.Sub(min)
	codes := make([]uint64, len(pts))
	for i, p := range pts {
		var q [3]uint64
		for k := 0; k < 3; k++ {
			if span[k] > 0 {
				q[k] = uint64((p[k] - min[k]) / span[k] * 1023)
			}
		}
		codes[i] = interleave(q[0]) | interleave(q[1])<<1 | interleave(q[2])<<2
	}

	idxs := make([]int, len(pts))
	for i := range idxs { idxs[i] = i }
	sort.SliceStable(idxs, func(a, b int) bool {
		return codes[idxs[a]] < codes[idxs[b]]
	})
	return idxs
}

// interleave spreads the low 10 bits of x so that there are two zero bits
// between each of them.
func interleave(x uint64) uint64 {
	var out uint64
	for b := uint(0); b < 10; b++ {
		out |= ((x >> b) & 1) << (3 * b)
	}
	return out
}
