package space

import (
	"fmt"
	"math"
	"slices"
)

const (
	// MaxDimensions is the largest dimensionality a Space supports.
	MaxDimensions = 6

	// DefaultMaxZ is the default number of z-values an object decomposes into.
	DefaultMaxZ = 4

	// MaxDecomposition caps the number of z-values per object.
	MaxDecomposition = 64
)

// Space maps application coordinates onto a grid and the grid onto z-values.
//
// Each dimension d spans [lo[d], hi[d]] and is resolved to 2^bits[d] grid
// cells. The bits of all dimensions are interleaved into one z-value, most
// significant first. A Space is immutable and safe for concurrent use.
type Space struct {
	lo         []float64
	hi         []float64
	xBits      []int
	interleave []int
	zBits      int
	cellSize   []float64
	gridMax    []int64
}

type options struct {
	interleave []int
}

// Option configures a Space.
type Option func(*options)

// WithInterleave sets the dimension consumed by each z-value bit, most
// significant first. Dimension d must appear exactly bits[d] times.
// Without it, dimensions are interleaved round-robin starting with 0.
func WithInterleave(dims []int) Option {
	return func(o *options) {
		o.interleave = slices.Clone(dims)
	}
}

// New creates a Space from per-dimension bounds and bit budgets.
func New(lo, hi []float64, xBits []int, optFns ...Option) (*Space, error) {
	n := len(lo)
	if n == 0 || n > MaxDimensions {
		return nil, fmt.Errorf("%w: %d dimensions", ErrInvalidSpace, n)
	}
	if len(hi) != n || len(xBits) != n {
		return nil, fmt.Errorf("%w: lo, hi and bits must have the same length", ErrInvalidSpace)
	}

	var o options
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	s := &Space{
		lo:       slices.Clone(lo),
		hi:       slices.Clone(hi),
		xBits:    slices.Clone(xBits),
		cellSize: make([]float64, n),
		gridMax:  make([]int64, n),
	}
	for d := range n {
		if math.IsNaN(lo[d]) || math.IsInf(lo[d], 0) || math.IsNaN(hi[d]) || math.IsInf(hi[d], 0) || lo[d] >= hi[d] {
			return nil, fmt.Errorf("%w: dimension %d has bounds [%v, %v]", ErrInvalidSpace, d, lo[d], hi[d])
		}
		if xBits[d] < 1 {
			return nil, fmt.Errorf("%w: dimension %d has %d bits", ErrInvalidSpace, d, xBits[d])
		}
		s.zBits += xBits[d]
		cells := int64(1) << uint(xBits[d])
		s.gridMax[d] = cells - 1
		s.cellSize[d] = (hi[d] - lo[d]) / float64(cells)
	}
	if s.zBits > MaxZBits {
		return nil, fmt.Errorf("%w: %d total bits exceeds %d", ErrInvalidSpace, s.zBits, MaxZBits)
	}

	if o.interleave != nil {
		if err := s.checkInterleave(o.interleave); err != nil {
			return nil, err
		}
		s.interleave = o.interleave
	} else {
		s.interleave = roundRobin(s.xBits, s.zBits)
	}
	return s, nil
}

func (s *Space) checkInterleave(dims []int) error {
	if len(dims) != s.zBits {
		return fmt.Errorf("%w: interleave has %d entries, want %d", ErrInvalidSpace, len(dims), s.zBits)
	}
	counts := make([]int, len(s.xBits))
	for _, d := range dims {
		if d < 0 || d >= len(s.xBits) {
			return fmt.Errorf("%w: interleave names dimension %d", ErrInvalidSpace, d)
		}
		counts[d]++
	}
	for d, c := range counts {
		if c != s.xBits[d] {
			return fmt.Errorf("%w: interleave uses dimension %d %d times, want %d", ErrInvalidSpace, d, c, s.xBits[d])
		}
	}
	return nil
}

func roundRobin(xBits []int, total int) []int {
	dims := make([]int, 0, total)
	used := make([]int, len(xBits))
	for len(dims) < total {
		for d := range xBits {
			if used[d] < xBits[d] {
				dims = append(dims, d)
				used[d]++
			}
		}
	}
	return dims
}

// Dimensions returns the number of dimensions.
func (s *Space) Dimensions() int { return len(s.lo) }

// Lo returns the lower bound of dimension d.
func (s *Space) Lo(d int) float64 { return s.lo[d] }

// Hi returns the upper bound of dimension d.
func (s *Space) Hi(d int) float64 { return s.hi[d] }

// Bits returns the bit budget of dimension d.
func (s *Space) Bits(d int) int { return s.xBits[d] }

// Interleave returns the dimension consumed by each z-value bit, most
// significant first.
func (s *Space) Interleave() []int { return slices.Clone(s.interleave) }

// Equal reports whether s and o produce identical z-values.
func (s *Space) Equal(o *Space) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return slices.Equal(s.lo, o.lo) &&
		slices.Equal(s.hi, o.hi) &&
		slices.Equal(s.xBits, o.xBits) &&
		slices.Equal(s.interleave, o.interleave)
}

// ZBits returns the total number of interleaved bits.
func (s *Space) ZBits() int { return s.zBits }

// MaxResolutionLength is the largest z-value length this space produces.
// A per-level table needs MaxResolutionLength()+1 slots.
func (s *Space) MaxResolutionLength() int { return s.zBits }

// Relationship computes how cell a relates to cell b.
func (s *Space) Relationship(a, b Z) Relationship { return Relate(a, b) }

func (s *Space) toGrid(d int, v float64) int64 {
	if v <= s.lo[d] {
		return 0
	}
	if v >= s.hi[d] {
		return s.gridMax[d]
	}
	g := int64((v - s.lo[d]) / s.cellSize[d])
	return min(max(g, 0), s.gridMax[d])
}

func (s *Space) contains(p []float64) bool {
	for d, v := range p {
		if math.IsNaN(v) || v < s.lo[d] || v > s.hi[d] {
			return false
		}
	}
	return true
}

// Shuffle returns the full-resolution z-value of a point.
func (s *Space) Shuffle(point []float64) (Z, error) {
	if len(point) != len(s.lo) {
		return 0, fmt.Errorf("%w: got %d coordinates, want %d", ErrDimensionMismatch, len(point), len(s.lo))
	}
	if !s.contains(point) {
		return 0, fmt.Errorf("%w: point %v", ErrOutsideSpace, point)
	}
	return s.shuffleGrid(point), nil
}

func (s *Space) shuffleGrid(point []float64) Z {
	var g [MaxDimensions]int64
	var used [MaxDimensions]int
	for d := range s.lo {
		g[d] = s.toGrid(d, point[d])
	}
	var prefix uint64
	for _, d := range s.interleave {
		bit := uint64(g[d]>>uint(s.xBits[d]-1-used[d])) & 1
		used[d]++
		prefix = prefix<<1 | bit
	}
	return makeZ(prefix, s.zBits)
}

// Region returns the box covered by z.
func (s *Space) Region(z Z) Region {
	n := len(s.lo)
	r := Region{
		s:      s,
		z:      z,
		gridLo: make([]int64, n),
		gridHi: make([]int64, n),
	}
	var taken [MaxDimensions]int
	length := min(z.Length(), s.zBits)
	prefix := z.Prefix()
	for i := range length {
		d := s.interleave[i]
		bit := int64(prefix>>uint(length-1-i)) & 1
		r.gridLo[d] = r.gridLo[d]<<1 | bit
		taken[d]++
	}
	for d := range n {
		free := uint(s.xBits[d] - taken[d])
		r.gridLo[d] <<= free
		r.gridHi[d] = r.gridLo[d] | (int64(1)<<free - 1)
	}
	return r
}

// Decompose covers obj with at most maxZ cells. The result is non-empty,
// sorted and free of nested cells, and its union contains the object.
//
// maxZ <= 0 selects DefaultMaxZ; values above MaxDecomposition are capped.
func (s *Space) Decompose(obj Decomposable, maxZ int) ([]Z, error) {
	if maxZ <= 0 {
		maxZ = DefaultMaxZ
	}
	maxZ = min(maxZ, MaxDecomposition)

	lo, hi := obj.Bounds()
	if len(lo) != len(s.lo) || len(hi) != len(s.lo) {
		return nil, fmt.Errorf("%w: object has %d dimensions, space has %d", ErrDimensionMismatch, len(lo), len(s.lo))
	}
	for d := range lo {
		if lo[d] > hi[d] {
			return nil, fmt.Errorf("%w: inverted bounds in dimension %d", ErrInvalidSpace, d)
		}
	}
	if !s.contains(lo) || !s.contains(hi) {
		return nil, fmt.Errorf("%w: bounds %v - %v", ErrOutsideSpace, lo, hi)
	}

	zlo := s.shuffleGrid(lo)
	zhi := s.shuffleGrid(hi)
	root := zlo.Ancestor(CommonPrefixLength(zlo, zhi))

	switch obj.CompareRegion(s.Region(root)) {
	case RegionInside, RegionOutside:
		// An object outside its own bounding cell is degenerate; the
		// bounding cell is still a sound cover.
		return []Z{root}, nil
	}

	var out []Z
	queue := []Z{root}
	for len(queue) > 0 && len(out)+len(queue) < maxZ {
		z := queue[0]
		queue = queue[1:]
		if z.Length() >= s.zBits {
			out = append(out, z)
			continue
		}
		for bit := range uint64(2) {
			child := z.Child(bit)
			switch obj.CompareRegion(s.Region(child)) {
			case RegionInside:
				out = append(out, child)
			case RegionOverlaps:
				queue = append(queue, child)
			}
		}
	}
	out = append(out, queue...)
	if len(out) == 0 {
		// Every child reported outside: fall back to the bounding cell.
		return []Z{root}, nil
	}
	slices.Sort(out)
	return out, nil
}
