// Package spatialobject provides the spatial objects stored in a spatial
// index and the exact overlap tests used to filter join candidates.
package spatialobject

import (
	"errors"

	"github.com/hupe1980/zspatial/space"
)

var (
	// ErrInvalidGeometry is returned when coordinates do not describe a valid object.
	ErrInvalidGeometry = errors.New("spatialobject: invalid geometry")
	// ErrUnknownType is returned when decoding an unregistered type tag.
	ErrUnknownType = errors.New("spatialobject: unknown type")
)

// SpatialObject is an object that can be decomposed into z-values and
// identified across decompositions.
//
// ID must be unique within an index: it is the tie-breaker of index keys and
// the identity duplicate elimination works with.
type SpatialObject interface {
	space.Decomposable

	// ID returns the object's identity.
	ID() int64
}

func boundsOverlap(alo, ahi, blo, bhi []float64) bool {
	if len(alo) != len(blo) {
		return false
	}
	for d := range alo {
		if ahi[d] < blo[d] || bhi[d] < alo[d] {
			return false
		}
	}
	return true
}
