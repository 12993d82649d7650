package spatialobject

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/zspatial/space"
)

// regionSlack widens cells by this fraction of a grid cell when clipping
// segments, so rounding can only add cells to a line's cover.
const regionSlack = 1e-6

// LineString is a two-dimensional polyline.
type LineString struct {
	id     int64
	points [][2]float64
	lo     []float64
	hi     []float64
}

// NewLineString creates a polyline through at least two points.
func NewLineString(id int64, points [][2]float64) (*LineString, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: line string needs at least 2 points, got %d", ErrInvalidGeometry, len(points))
	}
	lo := []float64{math.Inf(1), math.Inf(1)}
	hi := []float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		for d := range 2 {
			if math.IsNaN(p[d]) || math.IsInf(p[d], 0) {
				return nil, fmt.Errorf("%w: non-finite coordinate %v", ErrInvalidGeometry, p)
			}
			lo[d] = min(lo[d], p[d])
			hi[d] = max(hi[d], p[d])
		}
	}
	return &LineString{id: id, points: slices.Clone(points), lo: lo, hi: hi}, nil
}

// ID implements SpatialObject.
func (l *LineString) ID() int64 { return l.id }

// Points returns the vertices of the line.
func (l *LineString) Points() [][2]float64 { return l.points }

// Bounds implements space.Decomposable.
func (l *LineString) Bounds() ([]float64, []float64) { return l.lo, l.hi }

// CompareRegion implements space.Decomposable. A line never contains a
// region, so the answer is Outside or Overlaps.
func (l *LineString) CompareRegion(r space.Region) space.RegionComparison {
	if r.Dimensions() != 2 {
		return space.RegionOutside
	}
	sx := r.CellSize(0) * regionSlack
	sy := r.CellSize(1) * regionSlack
	xlo, ylo := r.Lo(0)-sx, r.Lo(1)-sy
	xhi, yhi := r.Hi(0)+sx, r.Hi(1)+sy
	for i := 1; i < len(l.points); i++ {
		if segmentIntersectsBox(l.points[i-1], l.points[i], xlo, ylo, xhi, yhi) {
			return space.RegionOverlaps
		}
	}
	return space.RegionOutside
}

func (l *LineString) intersectsBox(b *Box) bool {
	if len(b.lo) != 2 || !boundsOverlap(l.lo, l.hi, b.lo, b.hi) {
		return false
	}
	for i := 1; i < len(l.points); i++ {
		if segmentIntersectsBox(l.points[i-1], l.points[i], b.lo[0], b.lo[1], b.hi[0], b.hi[1]) {
			return true
		}
	}
	return false
}

func (l *LineString) intersectsLine(o *LineString) bool {
	if !boundsOverlap(l.lo, l.hi, o.lo, o.hi) {
		return false
	}
	for i := 1; i < len(l.points); i++ {
		for j := 1; j < len(o.points); j++ {
			if segmentsIntersect(l.points[i-1], l.points[i], o.points[j-1], o.points[j]) {
				return true
			}
		}
	}
	return false
}

func (l *LineString) containsPoint(p []float64) bool {
	if len(p) != 2 {
		return false
	}
	q := [2]float64{p[0], p[1]}
	for i := 1; i < len(l.points); i++ {
		if onSegment(l.points[i-1], l.points[i], q) && orientation(l.points[i-1], l.points[i], q) == 0 {
			return true
		}
	}
	return false
}

func (l *LineString) String() string {
	return fmt.Sprintf("LineString#%d%v", l.id, l.points)
}

// segmentIntersectsBox clips segment ab against the closed box with the
// Liang-Barsky algorithm.
func segmentIntersectsBox(a, b [2]float64, xlo, ylo, xhi, yhi float64) bool {
	t0, t1 := 0.0, 1.0
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return false
			}
			t1 = min(t1, t)
		}
		return true
	}
	return clip(-dx, a[0]-xlo) &&
		clip(dx, xhi-a[0]) &&
		clip(-dy, a[1]-ylo) &&
		clip(dy, yhi-a[1]) &&
		t0 <= t1
}

func orientation(a, b, c [2]float64) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether c lies in the bounding box of segment ab.
func onSegment(a, b, c [2]float64) bool {
	return min(a[0], b[0]) <= c[0] && c[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= c[1] && c[1] <= max(a[1], b[1])
}

func segmentsIntersect(p1, p2, q1, q2 [2]float64) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && onSegment(p1, p2, q1)) ||
		(o2 == 0 && onSegment(p1, p2, q2)) ||
		(o3 == 0 && onSegment(q1, q2, p1)) ||
		(o4 == 0 && onSegment(q1, q2, p2))
}
