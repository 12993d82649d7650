package space

// RegionComparison is the answer an object gives when asked about a cell.
type RegionComparison int

const (
	// RegionOutside means the object does not touch the region.
	RegionOutside RegionComparison = iota
	// RegionOverlaps means the object partially covers the region.
	RegionOverlaps
	// RegionInside means the region lies entirely inside the object.
	RegionInside
)

// String returns a string representation of the RegionComparison.
func (c RegionComparison) String() string {
	switch c {
	case RegionOutside:
		return "Outside"
	case RegionOverlaps:
		return "Overlaps"
	case RegionInside:
		return "Inside"
	default:
		return "Unknown"
	}
}

// Decomposable is what the decomposition needs from a spatial object.
type Decomposable interface {
	// Bounds returns the object's bounding box in application coordinates.
	Bounds() (lo, hi []float64)

	// CompareRegion reports how the object relates to the cell r.
	CompareRegion(r Region) RegionComparison
}

// Region is the box of space covered by one z-value.
//
// Grid bounds are exact and inclusive. Application bounds are derived from
// them and describe the half-open box [Lo, Hi) (closed on the space's upper
// edge), which is what geometric tests should use.
type Region struct {
	s      *Space
	z      Z
	gridLo []int64
	gridHi []int64
}

// Z returns the cell's z-value.
func (r Region) Z() Z { return r.z }

// Dimensions returns the number of dimensions of the region.
func (r Region) Dimensions() int { return len(r.gridLo) }

// GridLo returns the first grid coordinate covered in dimension d.
func (r Region) GridLo(d int) int64 { return r.gridLo[d] }

// GridHi returns the last grid coordinate covered in dimension d.
func (r Region) GridHi(d int) int64 { return r.gridHi[d] }

// Lo returns the region's lower application coordinate in dimension d.
func (r Region) Lo(d int) float64 {
	return r.s.lo[d] + float64(r.gridLo[d])*r.s.cellSize[d]
}

// Hi returns the region's upper application coordinate in dimension d.
func (r Region) Hi(d int) float64 {
	if r.gridHi[d] == r.s.gridMax[d] {
		return r.s.hi[d]
	}
	return r.s.lo[d] + float64(r.gridHi[d]+1)*r.s.cellSize[d]
}

// CellSize returns the width of one full-resolution grid cell in dimension d.
func (r Region) CellSize(d int) float64 { return r.s.cellSize[d] }

// CompareBox compares an axis-aligned box, given in application
// coordinates, with the region. The box is mapped onto the grid with the
// same rounding the space uses for points, so the answer is exact with
// respect to Shuffle.
func (r Region) CompareBox(lo, hi []float64) RegionComparison {
	if len(lo) != len(r.gridLo) || len(hi) != len(r.gridLo) {
		return RegionOutside
	}
	inside := true
	for d := range r.gridLo {
		glo := r.s.toGrid(d, lo[d])
		ghi := r.s.toGrid(d, hi[d])
		if ghi < r.gridLo[d] || glo > r.gridHi[d] {
			return RegionOutside
		}
		if glo > r.gridLo[d] || ghi < r.gridHi[d] {
			inside = false
		}
	}
	if inside {
		return RegionInside
	}
	return RegionOverlaps
}

// ContainsPoint reports whether a point lies in the region, using the
// space's grid rounding.
func (r Region) ContainsPoint(p []float64) bool {
	if len(p) != len(r.gridLo) {
		return false
	}
	for d := range r.gridLo {
		g := r.s.toGrid(d, p[d])
		if g < r.gridLo[d] || g > r.gridHi[d] {
			return false
		}
	}
	return true
}
