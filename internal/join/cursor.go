package join

import (
	"context"
	"slices"

	"github.com/hupe1980/zspatial/index"
)

// sliceCursor is an index.Cursor over sorted records held in memory.
// It backs the query side of single-object joins.
type sliceCursor struct {
	recs   []index.Record
	pos    int
	closed bool
}

func newSliceCursor(recs []index.Record) *sliceCursor {
	return &sliceCursor{recs: recs}
}

func (c *sliceCursor) Seek(ctx context.Context, key index.Key) error {
	if c.closed {
		return index.ErrClosedCursor
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.pos = lowerBound(c.recs, key)
	return nil
}

func (c *sliceCursor) Next(ctx context.Context) (index.Record, bool, error) {
	if c.closed {
		return index.Record{}, false, index.ErrClosedCursor
	}
	if err := ctx.Err(); err != nil {
		return index.Record{}, false, err
	}
	if c.pos >= len(c.recs) {
		return index.Record{}, false, nil
	}
	rec := c.recs[c.pos]
	c.pos++
	return rec, true, nil
}

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

func lowerBound(recs []index.Record, key index.Key) int {
	i, _ := slices.BinarySearchFunc(recs, key, func(r index.Record, k index.Key) int {
		return r.Key.Compare(k)
	})
	return i
}
