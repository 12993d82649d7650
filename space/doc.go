// Package space defines the coordinate system of a spatial index and the
// z-values (cells of a space-filling curve) objects are decomposed into.
//
// A Space maps each dimension onto a grid of 2^bits cells and interleaves the
// grid coordinates into a single integer key:
//
//	s, _ := space.New([]float64{0, 0}, []float64{1e6, 1e6}, []int{20, 20})
//	zs, _ := s.Decompose(box, space.DefaultMaxZ)
//
// Z-values sort in the depth-first order of the decomposition hierarchy, so
// an ordered key store can answer "which cells overlap this one" with range
// seeks. Relate classifies two cells as Ancestor, Descendant, Equal or
// Disjoint from their bit prefixes alone.
package space
