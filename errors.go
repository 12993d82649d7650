package zspatial

import (
	"errors"

	"github.com/hupe1980/zspatial/internal/join"
)

var (
	// ErrSpaceMismatch is returned when joining indexes built on different spaces.
	ErrSpaceMismatch = errors.New("zspatial: indexes use different spaces")

	// ErrNilSpace is returned when an index is created without a space.
	ErrNilSpace = errors.New("zspatial: nil space")

	// ErrNilIndex is returned when a spatial index is created without a key store,
	// or a join is given a nil spatial index.
	ErrNilIndex = errors.New("zspatial: nil index")

	// ErrNilObject is returned when a nil spatial object is passed.
	ErrNilObject = errors.New("zspatial: nil object")

	// ErrNilFilter is returned when a join is created without a filter.
	ErrNilFilter = join.ErrNilFilter
)

// FilterError reports that the filter failed for a candidate pair.
// The filter's error is available through errors.Unwrap.
type FilterError = join.FilterError
