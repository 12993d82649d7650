// Package indextest is a conformance suite for index.Index implementations.
package indextest

import (
	"context"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
)

// Factory creates an empty index.
type Factory func() index.Index

// Run executes the conformance suite against indexes built by newIndex.
func Run(t *testing.T, newIndex Factory) {
	t.Run("Empty", func(t *testing.T) { testEmpty(t, newIndex()) })
	t.Run("Order", func(t *testing.T) { testOrder(t, newIndex()) })
	t.Run("Seek", func(t *testing.T) { testSeek(t, newIndex()) })
	t.Run("Duplicate", func(t *testing.T) { testDuplicate(t, newIndex()) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, newIndex()) })
	t.Run("Snapshot", func(t *testing.T) { testSnapshot(t, newIndex()) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newIndex()) })
	t.Run("Canceled", func(t *testing.T) { testCanceled(t, newIndex()) })
}

// Record builds a record whose object is a unit box.
func Record(z space.Z, soid int64) index.Record {
	return index.Record{
		Key:    index.Key{Z: z, SOID: soid},
		Object: spatialobject.MustBox2D(soid, 0, 0, 1, 1),
	}
}

// Drain reads every remaining record of c.
func Drain(ctx context.Context, t testing.TB, c index.Cursor) []index.Key {
	t.Helper()
	var keys []index.Key
	for {
		rec, ok, err := c.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return keys
		}
		keys = append(keys, rec.Key)
	}
}

func randomKeys(n int) []index.Key {
	r := rand.New(rand.NewSource(42))
	seen := make(map[index.Key]struct{}, n)
	keys := make([]index.Key, 0, n)
	for len(keys) < n {
		length := r.Intn(12)
		var prefix uint64
		if length > 0 {
			prefix = uint64(r.Int63n(1 << uint(length)))
		}
		k := index.Key{Z: space.MustZ(prefix, length), SOID: int64(r.Intn(8))}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

func fill(t *testing.T, idx index.Index, keys []index.Key) {
	t.Helper()
	ctx := context.Background()
	for _, k := range keys {
		require.NoError(t, idx.Add(ctx, Record(k.Z, k.SOID)))
	}
}

func sorted(keys []index.Key) []index.Key {
	out := slices.Clone(keys)
	slices.SortFunc(out, index.Key.Compare)
	return out
}

func testEmpty(t *testing.T, idx index.Index) {
	ctx := context.Background()
	assert.Equal(t, 0, idx.Len())

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Seek(ctx, index.KeyLowerBound(space.MustZ(1, 1))))
	_, ok, err = c.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testOrder(t *testing.T, idx index.Index) {
	ctx := context.Background()
	keys := randomKeys(500)
	fill(t, idx, keys)
	assert.Equal(t, len(keys), idx.Len())

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, sorted(keys), Drain(ctx, t, c))
}

func testSeek(t *testing.T, idx index.Index) {
	ctx := context.Background()
	keys := randomKeys(300)
	fill(t, idx, keys)
	want := sorted(keys)

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	r := rand.New(rand.NewSource(7))
	for range 50 {
		target := want[r.Intn(len(want))]
		lb := index.KeyLowerBound(target.Z)
		require.NoError(t, c.Seek(ctx, lb))

		i, _ := slices.BinarySearchFunc(want, lb, index.Key.Compare)
		rec, ok, err := c.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want[i], rec.Key)
		assert.Equal(t, target.Z, rec.Key.Z)
	}

	// Seeking backwards repositions the cursor.
	require.NoError(t, c.Seek(ctx, want[len(want)-1]))
	require.NoError(t, c.Seek(ctx, want[0]))
	assert.Equal(t, want, Drain(ctx, t, c))

	// Past the end.
	require.NoError(t, c.Seek(ctx, index.Key{Z: want[len(want)-1].Z, SOID: want[len(want)-1].SOID + 1}))
	_, ok, err := c.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDuplicate(t *testing.T, idx index.Index) {
	ctx := context.Background()
	z := space.MustZ(5, 3)
	require.NoError(t, idx.Add(ctx, Record(z, 1)))
	assert.ErrorIs(t, idx.Add(ctx, Record(z, 1)), index.ErrDuplicateKey)
	require.NoError(t, idx.Add(ctx, Record(z, 2)))
	assert.Equal(t, 2, idx.Len())
}

func testRemove(t *testing.T, idx index.Index) {
	ctx := context.Background()
	keys := randomKeys(50)
	fill(t, idx, keys)

	ok, err := idx.Remove(ctx, keys[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Remove(ctx, keys[0])
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, sorted(keys[1:]), Drain(ctx, t, c))
}

func testSnapshot(t *testing.T, idx index.Index) {
	if !idx.Stable() {
		t.Skip("index does not provide snapshot cursors")
	}
	ctx := context.Background()
	keys := randomKeys(100)
	fill(t, idx, keys[:50])

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	fill(t, idx, keys[50:])
	_, err = idx.Remove(ctx, keys[0])
	require.NoError(t, err)

	assert.Equal(t, sorted(keys[:50]), Drain(ctx, t, c))
	assert.Equal(t, 99, idx.Len())
}

func testClosed(t *testing.T, idx index.Index) {
	ctx := context.Background()
	fill(t, idx, randomKeys(3))

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, _, err = c.Next(ctx)
	assert.ErrorIs(t, err, index.ErrClosedCursor)
	assert.ErrorIs(t, c.Seek(ctx, index.KeyLowerBound(0)), index.ErrClosedCursor)
}

func testCanceled(t *testing.T, idx index.Index) {
	fill(t, idx, randomKeys(3))

	c, err := idx.Cursor(context.Background())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = c.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Seek(ctx, index.KeyLowerBound(0)), context.Canceled)
	assert.ErrorIs(t, idx.Add(ctx, Record(space.MustZ(1, 1), 99)), context.Canceled)
}
