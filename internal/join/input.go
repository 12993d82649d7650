package join

import (
	"context"
	"errors"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/space"
)

// Input is one side of a join: a cursor over the side's records in key
// order and a finder for exact cells of the same records.
type Input struct {
	cursor   index.Cursor
	finder   ancestorFinder
	counters *Counters

	cur index.Record
	eof bool

	// nest holds records already read from this side that contain the
	// current merge position, outermost first.
	nest []index.Record
}

// NewIndexInput opens the two cursors an index side needs: one to scan,
// one for its Ancestors cache.
func NewIndexInput(ctx context.Context, idx index.Index, levels int, counters *Counters) (*Input, error) {
	if counters == nil {
		counters = &Counters{}
	}
	scan, err := idx.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	lookup, err := idx.Cursor(ctx)
	if err != nil {
		_ = scan.Close()
		return nil, err
	}
	return &Input{
		cursor:   scan,
		finder:   NewAncestors(lookup, levels, counters),
		counters: counters,
	}, nil
}

// NewRecordsInput builds a side from records sorted by key, such as the
// decomposition of a single query object.
func NewRecordsInput(recs []index.Record, counters *Counters) *Input {
	if counters == nil {
		counters = &Counters{}
	}
	return &Input{
		cursor:   newSliceCursor(recs),
		finder:   &sliceAncestors{recs: recs, counters: counters},
		counters: counters,
	}
}

func (in *Input) next(ctx context.Context) error {
	in.counters.Next.Add(1)
	rec, ok, err := in.cursor.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		in.cur = index.Record{}
		in.eof = true
		return nil
	}
	in.cur = rec
	return nil
}

func (in *Input) seek(ctx context.Context, key index.Key) error {
	in.counters.Seek.Add(1)
	if err := in.cursor.Seek(ctx, key); err != nil {
		return err
	}
	return in.next(ctx)
}

// popDisjoint drops nest entries that no longer contain z. Entries are
// nested, so the scan stops at the first one that does.
func (in *Input) popDisjoint(z space.Z) {
	for n := len(in.nest); n > 0; n-- {
		if space.Relate(in.nest[n-1].Key.Z, z) != space.Disjoint {
			break
		}
		in.nest = in.nest[:n-1]
	}
}

// skipTo discards cur, which overlaps nothing the other side has left, and
// moves to the first record that may overlap target: the shallowest cell on
// target's path that this side stores, or else target itself.
func (in *Input) skipTo(ctx context.Context, target space.Z) error {
	from := space.CommonPrefixLength(in.cur.Key.Z, target) + 1
	for level := from; level < target.Length(); level++ {
		_, ok, err := in.finder.Find(ctx, target.Ancestor(level))
		if err != nil {
			return err
		}
		if ok {
			return in.seek(ctx, index.KeyLowerBound(target.Ancestor(level)))
		}
	}
	return in.seek(ctx, index.KeyLowerBound(target))
}

// Close releases both cursors.
func (in *Input) Close() error {
	return errors.Join(in.cursor.Close(), in.finder.Close())
}
