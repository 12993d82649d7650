package spatialobject

// Overlap is an exact overlap test for the object types of this package.
// Pairs involving other implementations fall back to comparing bounding
// boxes.
func Overlap(a, b SpatialObject) bool {
	switch x := a.(type) {
	case *Box:
		switch y := b.(type) {
		case *Box:
			return x.Overlaps(y)
		case *Point:
			return x.Contains(y.coords)
		case *LineString:
			return y.intersectsBox(x)
		}
	case *Point:
		switch y := b.(type) {
		case *Box:
			return y.Contains(x.coords)
		case *Point:
			return samePoint(x.coords, y.coords)
		case *LineString:
			return y.containsPoint(x.coords)
		}
	case *LineString:
		switch y := b.(type) {
		case *Box:
			return x.intersectsBox(y)
		case *Point:
			return x.containsPoint(y.coords)
		case *LineString:
			return x.intersectsLine(y)
		}
	}
	alo, ahi := a.Bounds()
	blo, bhi := b.Bounds()
	return boundsOverlap(alo, ahi, blo, bhi)
}

func samePoint(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
