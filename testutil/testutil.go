package testutil

import (
	"context"
	"math/rand"
	"sync"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Boxes generates num 2-D boxes inside [lo, hi)^2 with sides up to maxSide.
// Ids are firstID, firstID+1, ...
func (r *RNG) Boxes(num int, firstID int64, lo, hi, maxSide float64) []spatialobject.SpatialObject {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]spatialobject.SpatialObject, num)
	for i := range out {
		var c [4]float64
		for d := range 2 {
			w := r.rand.Float64() * maxSide
			start := lo + r.rand.Float64()*(hi-lo-w)
			c[d], c[d+2] = start, start+w
		}
		out[i] = spatialobject.MustBox2D(firstID+int64(i), c[0], c[1], c[2], c[3])
	}
	return out
}

// Points generates num 2-D points inside [lo, hi)^2.
func (r *RNG) Points(num int, firstID int64, lo, hi float64) []spatialobject.SpatialObject {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]spatialobject.SpatialObject, num)
	for i := range out {
		x := lo + r.rand.Float64()*(hi-lo)
		y := lo + r.rand.Float64()*(hi-lo)
		p, err := spatialobject.NewPoint(firstID+int64(i), x, y)
		if err != nil {
			panic(err)
		}
		out[i] = p
	}
	return out
}

// Space2D returns a square 2-D space [0, size)^2 with bits per dimension.
func Space2D(size float64, bits int) *space.Space {
	s, err := space.New([]float64{0, 0}, []float64{size, size}, []int{bits, bits})
	if err != nil {
		panic(err)
	}
	return s
}

// Fill decomposes every object with budget maxZ and adds one record per
// z-value to idx.
func Fill(ctx context.Context, s *space.Space, idx index.Index, maxZ int, objs ...spatialobject.SpatialObject) error {
	for _, obj := range objs {
		zs, err := s.Decompose(obj, maxZ)
		if err != nil {
			return err
		}
		for _, z := range zs {
			if err := idx.Add(ctx, index.Record{Key: index.Key{Z: z, SOID: obj.ID()}, Object: obj}); err != nil {
				return err
			}
		}
	}
	return nil
}

// PairID identifies a pair of objects by id.
type PairID struct {
	Left, Right int64
}

// BruteForceJoin returns every pair (a, b) with a from left and b from right
// for which overlap reports true.
func BruteForceJoin(left, right []spatialobject.SpatialObject, overlap func(a, b spatialobject.SpatialObject) bool) map[PairID]struct{} {
	out := make(map[PairID]struct{})
	for _, a := range left {
		for _, b := range right {
			if overlap(a, b) {
				out[PairID{Left: a.ID(), Right: b.ID()}] = struct{}{}
			}
		}
	}
	return out
}
