package space

import "errors"

var (
	// ErrInvalidLength is returned for a z-value length outside [0, MaxZBits].
	ErrInvalidLength = errors.New("space: invalid z-value length")
	// ErrInvalidPrefix is returned when a prefix does not fit its length.
	ErrInvalidPrefix = errors.New("space: invalid z-value prefix")
	// ErrInvalidSpace is returned when space bounds or bit budgets are malformed.
	ErrInvalidSpace = errors.New("space: invalid space definition")
	// ErrDimensionMismatch is returned when coordinates do not match the space's dimensionality.
	ErrDimensionMismatch = errors.New("space: dimension mismatch")
	// ErrOutsideSpace is returned when an object or point lies outside the space bounds.
	ErrOutsideSpace = errors.New("space: outside space bounds")
)
