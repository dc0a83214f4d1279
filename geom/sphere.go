package geom

import (
	"github.com/pkg/errors"

	"github.com/Atilaac/SiO2-topology/mat"
)

// Sphere is a weighted sphere. R2 is the squared radius, which can be
// negative for spheres orthogonal to heavily weighted points.
type Sphere struct {
	C  Vec
	R2 float64
}

// ErrDegenerate is returned when the points of a simplex are affinely
// dependent.
var ErrDegenerate = errors.New("geom: degenerate simplex")

// OrthoSphere returns the smallest sphere orthogonal to every weighted point
// in pts. The center lies in the affine hull of pts. With zero weights this
// is the smallest circumsphere. ws may be nil.
func OrthoSphere(pts []Vec, ws []float64) (Sphere, error) {
	k := len(pts) - 1
	if k < 0 || k > 3 {
		return Sphere{}, errors.Errorf(
			"geom: orthosphere of %d points is undefined", len(pts),
		)
	}
	w := func(i int) float64 {
		if ws == nil { return 0 }
		return ws[i]
	}

	if k == 0 { return Sphere{pts[0], 0 - w(0)}, nil }

	// With x = c - p0 = sum_j lambda_j d_j the orthogonality conditions
	// become d_i . x = (|d_i|^2 - w_i + w_0) / 2.
	ds := make([]Vec, k)
	for i := range ds { ds[i] = pts[i+1].Sub(pts[0]) }

	gram := make([]float64, k*k)
	bs := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			gram[i*k + j] = ds[i].Dot(ds[j])
		}
		bs[i] = (ds[i].Norm2() - w(i+1) + w(0)) / 2
	}

	lambdas, err := mat.Solve(gram, k, bs)
	if err != nil {
		if err == mat.ErrSingular { return Sphere{}, ErrDegenerate }
		return Sphere{}, err
	}

	x := Vec{}
	for i, l := range lambdas { x = x.Add(ds[i].Scale(l)) }
	return Sphere{pts[0].Add(x), x.Norm2() - w(0)}, nil
}

// Power returns the power distance of the weighted point (q, wq) to s.
// Negative values mean q is inside s.
func (s Sphere) Power(q Vec, wq float64) float64 {
	return q.Sub(s.C).Norm2() - wq - s.R2
}
