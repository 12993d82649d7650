package join

import (
	"context"
	"fmt"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/space"
)

// ancestorFinder resolves the record stored under an exact z-value.
type ancestorFinder interface {
	Find(ctx context.Context, z space.Z) (index.Record, bool, error)
	Close() error
}

type ancestorSlot struct {
	valid bool
	z     space.Z
	rec   index.Record
	found bool
}

// Ancestors finds the record stored under an exact z-value, keeping one
// slot per resolution level.
//
// A lookup at level L is answered from slot L when that slot last resolved
// the same z; otherwise the cursor seeks to the z's lower bound and reads
// one record. Absent cells are remembered as well, so a repeated miss costs
// no seek either.
//
// Ancestors owns its cursor and is not safe for concurrent use.
type Ancestors struct {
	cursor   index.Cursor
	slots    []ancestorSlot
	counters *Counters
}

// NewAncestors creates a cache over c for z-values of length < levels.
func NewAncestors(c index.Cursor, levels int, counters *Counters) *Ancestors {
	if counters == nil {
		counters = &Counters{}
	}
	return &Ancestors{
		cursor:   c,
		slots:    make([]ancestorSlot, levels),
		counters: counters,
	}
}

// Find returns the record whose key has z-value z. ok is false when the
// index holds no record at exactly z.
func (a *Ancestors) Find(ctx context.Context, z space.Z) (index.Record, bool, error) {
	a.counters.AncestorFind.Add(1)

	level := z.Length()
	if level >= len(a.slots) {
		return index.Record{}, false, fmt.Errorf("join: ancestor level %d exceeds %d", level, len(a.slots)-1)
	}

	slot := &a.slots[level]
	if slot.valid && slot.z == z {
		a.counters.AncestorCacheHit.Add(1)
		return slot.rec, slot.found, nil
	}

	a.counters.Seek.Add(1)
	if err := a.cursor.Seek(ctx, index.KeyLowerBound(z)); err != nil {
		return index.Record{}, false, err
	}
	a.counters.Next.Add(1)
	rec, ok, err := a.cursor.Next(ctx)
	if err != nil {
		return index.Record{}, false, err
	}

	*slot = ancestorSlot{
		valid: true,
		z:     z,
		rec:   rec,
		found: ok && rec.Key.Z == z,
	}
	if !slot.found {
		slot.rec = index.Record{}
	}
	return slot.rec, slot.found, nil
}

// Close releases the cursor.
func (a *Ancestors) Close() error {
	return a.cursor.Close()
}

// sliceAncestors answers Find by binary search over sorted records.
type sliceAncestors struct {
	recs     []index.Record
	counters *Counters
}

func (a *sliceAncestors) Find(_ context.Context, z space.Z) (index.Record, bool, error) {
	a.counters.AncestorFind.Add(1)
	i := lowerBound(a.recs, index.KeyLowerBound(z))
	if i < len(a.recs) && a.recs[i].Key.Z == z {
		return a.recs[i], true, nil
	}
	return index.Record{}, false, nil
}

func (a *sliceAncestors) Close() error { return nil }
