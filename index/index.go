package index

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
)

var (
	// ErrClosedCursor is returned when a closed cursor is used.
	ErrClosedCursor = errors.New("index: cursor is closed")
	// ErrDuplicateKey is returned when adding a key that is already present.
	ErrDuplicateKey = errors.New("index: duplicate key")
)

// Key orders records by z-value, then by spatial object id.
type Key struct {
	Z    space.Z
	SOID int64
}

// KeyLowerBound returns the smallest key with z-value z.
func KeyLowerBound(z space.Z) Key {
	return Key{Z: z, SOID: math.MinInt64}
}

// Compare returns -1, 0 or +1 depending on whether k sorts before, equal to
// or after o.
func (k Key) Compare(o Key) int {
	switch {
	case k.Z < o.Z:
		return -1
	case k.Z > o.Z:
		return 1
	case k.SOID < o.SOID:
		return -1
	case k.SOID > o.SOID:
		return 1
	default:
		return 0
	}
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Z, k.SOID)
}

// Record pairs a key with the object stored under it. Records are values:
// holding one never aliases store memory.
type Record struct {
	Key    Key
	Object spatialobject.SpatialObject
}

// Cursor is a positioned, forward-only reader over an index.
//
// A new cursor is positioned before the first record. Cursors are not safe
// for concurrent use and must be closed to release store resources.
type Cursor interface {
	// Seek positions the cursor so that the next call to Next returns the
	// first record with a key >= key.
	Seek(ctx context.Context, key Key) error

	// Next returns the record at the cursor and advances past it.
	// ok is false once the cursor is exhausted.
	Next(ctx context.Context) (rec Record, ok bool, err error)

	// Close releases the cursor.
	Close() error
}

// Index is an ordered key store of spatial records.
type Index interface {
	// Add inserts a record. Adding a key that exists returns ErrDuplicateKey.
	Add(ctx context.Context, rec Record) error

	// Remove deletes the record with the given key and reports whether it existed.
	Remove(ctx context.Context, key Key) (bool, error)

	// Cursor opens a cursor positioned before the first record.
	Cursor(ctx context.Context) (Cursor, error)

	// Len returns the number of records.
	Len() int

	// Stable reports whether cursors observe a snapshot that later
	// mutations do not affect.
	Stable() bool
}
