// Package sortedarray implements index.Index on a sorted slice.
//
// Seeks are binary searches. Cursors iterate the slice that was current when
// they were opened; the first mutation after a cursor was opened copies the
// slice, so open cursors keep a stable snapshot.
package sortedarray

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/zspatial/index"
)

// Index is a sorted-array index. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	records []index.Record
	shared  bool // an open cursor references records
}

// New creates an empty index.
func New() *Index {
	return &Index{}
}

func (x *Index) search(key index.Key) (int, bool) {
	return slices.BinarySearchFunc(x.records, key, func(r index.Record, k index.Key) int {
		return r.Key.Compare(k)
	})
}

// own makes records safe to mutate in place.
func (x *Index) own(extra int) {
	if !x.shared {
		return
	}
	records := make([]index.Record, len(x.records), len(x.records)+extra)
	copy(records, x.records)
	x.records = records
	x.shared = false
}

// Add implements index.Index.
func (x *Index) Add(ctx context.Context, rec index.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	i, found := x.search(rec.Key)
	if found {
		return index.ErrDuplicateKey
	}
	x.own(1)
	x.records = slices.Insert(x.records, i, rec)
	return nil
}

// Remove implements index.Index.
func (x *Index) Remove(ctx context.Context, key index.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	i, found := x.search(key)
	if !found {
		return false, nil
	}
	x.own(0)
	x.records = slices.Delete(x.records, i, i+1)
	return true, nil
}

// Cursor implements index.Index.
func (x *Index) Cursor(ctx context.Context) (index.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	x.shared = true
	return &cursor{records: x.records}, nil
}

// Len implements index.Index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Stable implements index.Index.
func (x *Index) Stable() bool { return true }

type cursor struct {
	records []index.Record
	pos     int
	closed  bool
}

func (c *cursor) Seek(ctx context.Context, key index.Key) error {
	if c.closed {
		return index.ErrClosedCursor
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.pos, _ = slices.BinarySearchFunc(c.records, key, func(r index.Record, k index.Key) int {
		return r.Key.Compare(k)
	})
	return nil
}

func (c *cursor) Next(ctx context.Context) (index.Record, bool, error) {
	if c.closed {
		return index.Record{}, false, index.ErrClosedCursor
	}
	if err := ctx.Err(); err != nil {
		return index.Record{}, false, err
	}
	if c.pos >= len(c.records) {
		return index.Record{}, false, nil
	}
	rec := c.records[c.pos]
	c.pos++
	return rec, true, nil
}

func (c *cursor) Close() error {
	c.closed = true
	c.records = nil
	return nil
}
