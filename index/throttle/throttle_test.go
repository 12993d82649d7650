package throttle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/index/indextest"
	"github.com/hupe1980/zspatial/index/sortedarray"
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/space"
)

func TestConformance(t *testing.T) {
	indextest.Run(t, func() index.Index {
		return New(sortedarray.New(), resource.NewController(resource.Config{}))
	})
}

func TestCursor_ChargesOps(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{})
	x := New(sortedarray.New(), rc)
	for i := range 3 {
		require.NoError(t, x.Add(ctx, indextest.Record(space.MustZ(uint64(i), 2), int64(i))))
	}

	c, err := x.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Seek(ctx, index.KeyLowerBound(0)))
	assert.Len(t, indextest.Drain(ctx, t, c), 3)

	// One seek, three records and the end-of-stream call.
	assert.Equal(t, int64(5), rc.Stats().Ops)
}

func TestCursor_RateLimitCancels(t *testing.T) {
	rc := resource.NewController(resource.Config{OpsPerSecond: 0.001, OpsBurst: 1})
	x := New(sortedarray.New(), rc)

	c, err := x.Cursor(context.Background())
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = c.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Same(t, x.Unwrap(), x.Index)
}
