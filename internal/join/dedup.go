package join

import (
	"container/list"
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Source is a stream of pairs.
type Source interface {
	Next(ctx context.Context) (Pair, bool, error)
	Close() error
}

// seenSet remembers emitted pairs.
type seenSet interface {
	// Seen reports whether k was already recorded, recording it if not.
	Seen(k PairKey) bool
}

// exactSet remembers every emitted pair: one bitmap of right ids per left id.
type exactSet struct {
	byLeft map[int64]*roaring64.Bitmap
}

func newExactSet() *exactSet {
	return &exactSet{byLeft: make(map[int64]*roaring64.Bitmap)}
}

func (s *exactSet) Seen(k PairKey) bool {
	rights, ok := s.byLeft[k.Left]
	if !ok {
		rights = roaring64.New()
		s.byLeft[k.Left] = rights
	}
	r := uint64(k.Right)
	if rights.Contains(r) {
		return true
	}
	rights.Add(r)
	return false
}

// windowSet remembers the most recently emitted pairs only. A duplicate
// arriving after capacity other distinct pairs is not recognized.
type windowSet struct {
	capacity  int
	items     map[PairKey]*list.Element
	evictList *list.List
}

func newWindowSet(capacity int) *windowSet {
	return &windowSet{
		capacity:  capacity,
		items:     make(map[PairKey]*list.Element, capacity),
		evictList: list.New(),
	}
}

func (s *windowSet) Seen(k PairKey) bool {
	if ent, ok := s.items[k]; ok {
		s.evictList.MoveToFront(ent)
		return true
	}
	s.items[k] = s.evictList.PushFront(k)
	for s.evictList.Len() > s.capacity {
		back := s.evictList.Back()
		s.evictList.Remove(back)
		delete(s.items, back.Value.(PairKey))
	}
	return false
}

// Dedup drops pairs whose identity was already emitted.
type Dedup struct {
	src      Source
	seen     seenSet
	counters *Counters
}

// NewDedup wraps src. With window 0 every emitted pair is remembered;
// a positive window remembers only that many recent pairs.
func NewDedup(src Source, window int, counters *Counters) *Dedup {
	if counters == nil {
		counters = &Counters{}
	}
	var seen seenSet
	if window > 0 {
		seen = newWindowSet(window)
	} else {
		seen = newExactSet()
	}
	return &Dedup{src: src, seen: seen, counters: counters}
}

// Next returns the next pair not emitted before.
func (d *Dedup) Next(ctx context.Context) (Pair, bool, error) {
	for {
		p, ok, err := d.src.Next(ctx)
		if err != nil || !ok {
			return Pair{}, false, err
		}
		if d.seen.Seen(p.Key()) {
			d.counters.DuplicateSuppressed.Add(1)
			continue
		}
		return p, true, nil
	}
}

// Close closes the source.
func (d *Dedup) Close() error {
	return d.src.Close()
}
