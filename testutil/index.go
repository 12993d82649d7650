package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/hupe1980/zspatial/index"
)

// ErrInjected is the default error returned by FaultyIndex.
var ErrInjected = errors.New("testutil: injected fault")

// CountingIndex wraps an index and counts cursor operations across all of
// its cursors.
type CountingIndex struct {
	index.Index

	Cursors atomic.Int64
	Seeks   atomic.Int64
	Nexts   atomic.Int64
	Closes  atomic.Int64
}

// NewCountingIndex wraps idx.
func NewCountingIndex(idx index.Index) *CountingIndex {
	return &CountingIndex{Index: idx}
}

// Cursor implements index.Index.
func (x *CountingIndex) Cursor(ctx context.Context) (index.Cursor, error) {
	c, err := x.Index.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	x.Cursors.Add(1)
	return &countingCursor{Cursor: c, x: x}, nil
}

// Open returns the number of cursors not yet closed.
func (x *CountingIndex) Open() int64 {
	return x.Cursors.Load() - x.Closes.Load()
}

type countingCursor struct {
	index.Cursor
	x *CountingIndex
}

func (c *countingCursor) Seek(ctx context.Context, key index.Key) error {
	c.x.Seeks.Add(1)
	return c.Cursor.Seek(ctx, key)
}

func (c *countingCursor) Next(ctx context.Context) (index.Record, bool, error) {
	c.x.Nexts.Add(1)
	return c.Cursor.Next(ctx)
}

func (c *countingCursor) Close() error {
	c.x.Closes.Add(1)
	return c.Cursor.Close()
}

// FaultyIndex wraps an index and fails cursor operations once a budget of
// successful operations is spent.
type FaultyIndex struct {
	index.Index

	// Err is returned by failing operations. Defaults to ErrInjected.
	Err error

	remaining atomic.Int64
}

// NewFaultyIndex wraps idx; the first failAfter cursor operations
// (Seek or Next, across all cursors) succeed.
func NewFaultyIndex(idx index.Index, failAfter int64) *FaultyIndex {
	x := &FaultyIndex{Index: idx, Err: ErrInjected}
	x.remaining.Store(failAfter)
	return x
}

// Cursor implements index.Index.
func (x *FaultyIndex) Cursor(ctx context.Context) (index.Cursor, error) {
	c, err := x.Index.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyCursor{Cursor: c, x: x}, nil
}

func (x *FaultyIndex) charge() error {
	if x.remaining.Add(-1) < 0 {
		return x.Err
	}
	return nil
}

type faultyCursor struct {
	index.Cursor
	x *FaultyIndex
}

func (c *faultyCursor) Seek(ctx context.Context, key index.Key) error {
	if err := c.x.charge(); err != nil {
		return err
	}
	return c.Cursor.Seek(ctx, key)
}

func (c *faultyCursor) Next(ctx context.Context) (index.Record, bool, error) {
	if err := c.x.charge(); err != nil {
		return index.Record{}, false, err
	}
	return c.Cursor.Next(ctx)
}
