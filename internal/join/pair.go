package join

import (
	"errors"
	"fmt"

	"github.com/hupe1980/zspatial/spatialobject"
)

// Pair is one join result. Left comes from the left input, Right from the
// right input.
type Pair struct {
	Left  spatialobject.SpatialObject
	Right spatialobject.SpatialObject
}

// PairKey identifies a pair by its object ids.
type PairKey struct {
	Left  int64
	Right int64
}

// Key returns the identity of p.
func (p Pair) Key() PairKey {
	return PairKey{Left: p.Left.ID(), Right: p.Right.ID()}
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Left.ID(), p.Right.ID())
}

// Filter is the exact overlap oracle. It is called for candidate pairs
// whose cells are structurally related and decides whether the objects
// really overlap.
type Filter func(left, right spatialobject.SpatialObject) (bool, error)

// FilterError reports a failed oracle call.
type FilterError struct {
	Left  int64
	Right int64
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("join: filter failed for pair (%d, %d): %v", e.Left, e.Right, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// ErrNilFilter is returned when a join is built without an oracle.
var ErrNilFilter = errors.New("join: nil filter")
