// Package tree implements index.Index on a copy-on-write B-tree.
//
// Every cursor iterates its own clone of the tree. Cloning is O(1) and later
// writes to the index copy the touched nodes, so cursors see a stable
// snapshot.
package tree

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/hupe1980/zspatial/index"
)

const (
	// DefaultDegree is the B-tree degree used by New.
	DefaultDegree = 32

	// pageSize is the number of records a cursor buffers per tree descent.
	pageSize = 64
)

func less(a, b index.Record) bool {
	return a.Key.Less(b.Key)
}

// Index is a B-tree index. It is safe for concurrent use.
type Index struct {
	mu sync.Mutex
	bt *btree.BTreeG[index.Record]
}

// New creates an empty index with DefaultDegree.
func New() *Index {
	return NewWithDegree(DefaultDegree)
}

// NewWithDegree creates an empty index with the given B-tree degree.
func NewWithDegree(degree int) *Index {
	if degree < 2 {
		degree = 2
	}
	return &Index{bt: btree.NewG(degree, less)}
}

// Add implements index.Index.
func (x *Index) Add(ctx context.Context, rec index.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.bt.Has(rec) {
		return index.ErrDuplicateKey
	}
	x.bt.ReplaceOrInsert(rec)
	return nil
}

// Remove implements index.Index.
func (x *Index) Remove(ctx context.Context, key index.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	_, ok := x.bt.Delete(index.Record{Key: key})
	return ok, nil
}

// Cursor implements index.Index.
func (x *Index) Cursor(ctx context.Context) (index.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	snapshot := x.bt.Clone()
	x.mu.Unlock()

	return &cursor{
		bt:   snapshot,
		from: index.Record{Key: index.KeyLowerBound(0)},
	}, nil
}

// Len implements index.Index.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.bt.Len()
}

// Stable implements index.Index.
func (x *Index) Stable() bool { return true }

type cursor struct {
	bt *btree.BTreeG[index.Record]

	// from is where the next page starts; when exclusive, a record with
	// exactly that key is skipped.
	from      index.Record
	exclusive bool
	eof       bool

	buf    []index.Record
	pos    int
	closed bool
}

func (c *cursor) Seek(ctx context.Context, key index.Key) error {
	if c.closed {
		return index.ErrClosedCursor
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.from = index.Record{Key: key}
	c.exclusive = false
	c.eof = false
	c.buf = c.buf[:0]
	c.pos = 0
	return nil
}

func (c *cursor) Next(ctx context.Context) (index.Record, bool, error) {
	if c.closed {
		return index.Record{}, false, index.ErrClosedCursor
	}
	if err := ctx.Err(); err != nil {
		return index.Record{}, false, err
	}
	if c.pos >= len(c.buf) {
		c.fill()
		if len(c.buf) == 0 {
			return index.Record{}, false, nil
		}
	}
	rec := c.buf[c.pos]
	c.pos++
	return rec, true, nil
}

func (c *cursor) fill() {
	c.buf = c.buf[:0]
	c.pos = 0
	if c.eof {
		return
	}
	c.bt.AscendGreaterOrEqual(c.from, func(r index.Record) bool {
		if c.exclusive && r.Key == c.from.Key {
			return true
		}
		c.buf = append(c.buf, r)
		return len(c.buf) < pageSize
	})
	if len(c.buf) < pageSize {
		c.eof = true
	}
	if n := len(c.buf); n > 0 {
		c.from = index.Record{Key: c.buf[n-1].Key}
		c.exclusive = true
	}
}

func (c *cursor) Close() error {
	c.closed = true
	c.bt = nil
	c.buf = nil
	return nil
}
