// Package throttle decorates an index.Index so that every cursor operation
// is charged against a resource.Controller.
//
// Waits honour the caller's context: a canceled or expired context surfaces
// from Seek or Next as the context's error.
package throttle

import (
	"context"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/resource"
)

// Index wraps another index and throttles its cursors.
type Index struct {
	index.Index
	rc *resource.Controller
}

// New wraps idx. A nil controller disables throttling.
func New(idx index.Index, rc *resource.Controller) *Index {
	return &Index{Index: idx, rc: rc}
}

// Unwrap returns the wrapped index.
func (x *Index) Unwrap() index.Index {
	return x.Index
}

// Cursor implements index.Index.
func (x *Index) Cursor(ctx context.Context) (index.Cursor, error) {
	c, err := x.Index.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	return &cursor{Cursor: c, rc: x.rc}, nil
}

type cursor struct {
	index.Cursor
	rc *resource.Controller
}

func (c *cursor) Seek(ctx context.Context, key index.Key) error {
	if err := c.rc.AcquireOps(ctx, 1); err != nil {
		return err
	}
	return c.Cursor.Seek(ctx, key)
}

func (c *cursor) Next(ctx context.Context) (index.Record, bool, error) {
	if err := c.rc.AcquireOps(ctx, 1); err != nil {
		return index.Record{}, false, err
	}
	return c.Cursor.Next(ctx)
}
