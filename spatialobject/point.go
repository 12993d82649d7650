package spatialobject

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/zspatial/space"
)

// Point is a single location.
type Point struct {
	id     int64
	coords []float64
}

// NewPoint creates a point.
func NewPoint(id int64, coords ...float64) (*Point, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: point without coordinates", ErrInvalidGeometry)
	}
	for _, c := range coords {
		if math.IsNaN(c) {
			return nil, fmt.Errorf("%w: NaN coordinate", ErrInvalidGeometry)
		}
	}
	return &Point{id: id, coords: slices.Clone(coords)}, nil
}

// ID implements SpatialObject.
func (p *Point) ID() int64 { return p.id }

// Coords returns the point's coordinates.
func (p *Point) Coords() []float64 { return p.coords }

// Bounds implements space.Decomposable.
func (p *Point) Bounds() ([]float64, []float64) { return p.coords, p.coords }

// CompareRegion implements space.Decomposable.
func (p *Point) CompareRegion(r space.Region) space.RegionComparison {
	if r.ContainsPoint(p.coords) {
		return space.RegionOverlaps
	}
	return space.RegionOutside
}

func (p *Point) String() string {
	return fmt.Sprintf("Point#%d%v", p.id, p.coords)
}
