package geom

import (
	"math"

	"github.com/pkg/errors"
)

// Cell is an orthorhombic simulation cell with its origin at zero. Axes which
// are not periodic are treated as open.
type Cell struct {
	Lengths  Vec
	Periodic [3]bool
}

// Check returns an error if a periodic axis has a non-positive length.
func (c *Cell) Check() error {
	for k := 0; k < 3; k++ {
		if c.Periodic[k] && !(c.Lengths[k] > 0) {
			return errors.Errorf(
				"periodic axis %d has non-positive length %g", k, c.Lengths[k],
			)
		}
	}
	return nil
}

// AnyPeriodic returns true if at least one axis is periodic.
func (c *Cell) AnyPeriodic() bool {
	return c.Periodic[0] || c.Periodic[1] || c.Periodic[2]
}

// MinPeriodicLength returns the shortest periodic cell length, or 0 if no
// axis is periodic.
func (c *Cell) MinPeriodicLength() float64 {
	min := 0.0
	for k := 0; k < 3; k++ {
		if !c.Periodic[k] { continue }
		if min == 0 || c.Lengths[k] < min { min = c.Lengths[k] }
	}
	return min
}

// Wrap maps v into [0, L) along every periodic axis.
func (c *Cell) Wrap(v Vec) Vec {
	for k := 0; k < 3; k++ {
		if !c.Periodic[k] { continue }
		L := c.Lengths[k]
		v[k] -= math.Floor(v[k]/L) * L
		if v[k] >= L { v[k] -= L }
	}
	return v
}

// Image returns v translated by shift cell lengths.
func (c *Cell) Image(v Vec, shift [3]int) Vec {
	for k := 0; k < 3; k++ {
		v[k] += float64(shift[k]) * c.Lengths[k]
	}
	return v
}
