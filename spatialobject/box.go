package spatialobject

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hupe1980/zspatial/space"
)

// Box is an axis-aligned box with inclusive bounds.
type Box struct {
	id int64
	lo []float64
	hi []float64
}

// NewBox creates an n-dimensional box.
func NewBox(id int64, lo, hi []float64) (*Box, error) {
	if len(lo) == 0 || len(lo) != len(hi) {
		return nil, fmt.Errorf("%w: box bounds have %d and %d coordinates", ErrInvalidGeometry, len(lo), len(hi))
	}
	for d := range lo {
		if math.IsNaN(lo[d]) || math.IsNaN(hi[d]) || lo[d] > hi[d] {
			return nil, fmt.Errorf("%w: box dimension %d spans [%v, %v]", ErrInvalidGeometry, d, lo[d], hi[d])
		}
	}
	return &Box{id: id, lo: slices.Clone(lo), hi: slices.Clone(hi)}, nil
}

// NewBox2D creates a two-dimensional box from its corners.
func NewBox2D(id int64, xLo, yLo, xHi, yHi float64) (*Box, error) {
	return NewBox(id, []float64{xLo, yLo}, []float64{xHi, yHi})
}

// MustBox2D is like NewBox2D but panics on invalid input.
func MustBox2D(id int64, xLo, yLo, xHi, yHi float64) *Box {
	b, err := NewBox2D(id, xLo, yLo, xHi, yHi)
	if err != nil {
		panic(err)
	}
	return b
}

// ID implements SpatialObject.
func (b *Box) ID() int64 { return b.id }

// Bounds implements space.Decomposable.
func (b *Box) Bounds() ([]float64, []float64) { return b.lo, b.hi }

// Lo returns the lower bound in dimension d.
func (b *Box) Lo(d int) float64 { return b.lo[d] }

// Hi returns the upper bound in dimension d.
func (b *Box) Hi(d int) float64 { return b.hi[d] }

// CompareRegion implements space.Decomposable.
func (b *Box) CompareRegion(r space.Region) space.RegionComparison {
	return r.CompareBox(b.lo, b.hi)
}

// Overlaps reports whether two boxes share at least one point.
func (b *Box) Overlaps(o *Box) bool {
	return boundsOverlap(b.lo, b.hi, o.lo, o.hi)
}

// Contains reports whether p lies inside the box.
func (b *Box) Contains(p []float64) bool {
	if len(p) != len(b.lo) {
		return false
	}
	for d, v := range p {
		if v < b.lo[d] || v > b.hi[d] {
			return false
		}
	}
	return true
}

func (b *Box) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Box#%d(", b.id)
	for d := range b.lo {
		if d > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g:%g", b.lo[d], b.hi[d])
	}
	sb.WriteByte(')')
	return sb.String()
}
