package geom

import (
	"math"
)

// Vec is a point or displacement in 3D space. Units are whatever the input
// structure uses, usually Angstroms.
type Vec [3]float64

func (v Vec) Add(u Vec) Vec { return Vec{v[0] + u[0], v[1] + u[1], v[2] + u[2]} }
func (v Vec) Sub(u Vec) Vec { return Vec{v[0] - u[0], v[1] - u[1], v[2] - u[2]} }
func (v Vec) Scale(k float64) Vec { return Vec{v[0] * k, v[1] * k, v[2] * k} }
func (v Vec) Dot(u Vec) float64 { return v[0]*u[0] + v[1]*u[1] + v[2]*u[2] }
func (v Vec) Norm2() float64 { return v.Dot(v) }
func (v Vec) Norm() float64 { return math.Sqrt(v.Norm2()) }

func (v Vec) Cross(u Vec) Vec {
	return Vec{
		v[1]*u[2] - v[2]*u[1],
		v[2]*u[0] - v[0]*u[2],
		v[0]*u[1] - v[1]*u[0],
	}
}

// Orient returns six times the signed volume of the tetrahedron (a, b, c, d).
// It is positive when d lies on the side of the plane (a, b, c) that the
// right-handed normal (b - a) x (c - a) points to.
func Orient(a, b, c, d Vec) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
}

// Bounds returns the axis-aligned bounding box of vs.
func Bounds(vs []Vec) (min, max Vec) {
	if len(vs) == 0 { return min, max }
	min, max = vs[0], vs[0]
	for _, v := range vs[1:] {
		for k := 0; k < 3; k++ {
			min[k] = math.Min(min[k], v[k])
			max[k] = math.Max(max[k], v[k])
		}
	}
	return min, max
}
