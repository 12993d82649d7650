package join

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/index/sortedarray"
	"github.com/hupe1980/zspatial/index/tree"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
	"github.com/hupe1980/zspatial/testutil"
)

func keepAll(_, _ spatialobject.SpatialObject) (bool, error) { return true, nil }

func overlap(a, b spatialobject.SpatialObject) (bool, error) {
	return spatialobject.Overlap(a, b), nil
}

func levels(s *space.Space) int { return s.MaxResolutionLength() + 1 }

func newIndexJoin(t *testing.T, s *space.Space, left, right index.Index, filter Filter, counters *Counters) *Iterator {
	t.Helper()
	ctx := context.Background()
	l, err := NewIndexInput(ctx, left, levels(s), counters)
	require.NoError(t, err)
	r, err := NewIndexInput(ctx, right, levels(s), counters)
	require.NoError(t, err)
	it, err := NewIterator(l, r, filter, counters)
	require.NoError(t, err)
	return it
}

func collect(t *testing.T, src Source) []PairKey {
	t.Helper()
	var out []PairKey
	for {
		p, ok, err := src.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, p.Key())
	}
}

func asSet(keys []PairKey) map[testutil.PairID]struct{} {
	out := make(map[testutil.PairID]struct{}, len(keys))
	for _, k := range keys {
		out[testutil.PairID{Left: k.Left, Right: k.Right}] = struct{}{}
	}
	return out
}

func TestAncestors_RepeatLookupsDoNotSeek(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	base := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, base, 4, testutil.NewRNG(3).Boxes(40, 1, 0, 1024, 200)...))
	idx := testutil.NewCountingIndex(base)

	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	counters := &Counters{}
	anc := NewAncestors(c, levels(s), counters)
	defer anc.Close()

	// A stored cell and an absent one.
	all, err := base.Cursor(ctx)
	require.NoError(t, err)
	first, ok, err := all.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, all.Close())
	present := first.Key.Z
	absent := space.MustZ(0, s.ZBits())
	if absent == present {
		absent = space.MustZ(1, s.ZBits())
	}

	rec, ok, err := anc.Find(ctx, present)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Key, rec.Key)
	seeks := idx.Seeks.Load()

	for range 3 {
		again, ok, err := anc.Find(ctx, present)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, again)
	}
	assert.Equal(t, seeks, idx.Seeks.Load())

	_, ok, err = anc.Find(ctx, absent)
	require.NoError(t, err)
	assert.False(t, ok)
	seeks = idx.Seeks.Load()
	_, ok, err = anc.Find(ctx, absent)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, seeks, idx.Seeks.Load())

	snap := counters.Snapshot()
	assert.Equal(t, int64(6), snap.AncestorFind)
	assert.Equal(t, int64(4), snap.AncestorCacheHit)

	_, _, err = anc.Find(ctx, space.MustZ(0, s.ZBits()).Parent())
	require.NoError(t, err)
	assert.Equal(t, int64(7), counters.AncestorFind.Load())
}

func TestAncestors_LevelOutOfRange(t *testing.T) {
	c, err := sortedarray.New().Cursor(context.Background())
	require.NoError(t, err)
	anc := NewAncestors(c, 4, nil)
	_, _, err = anc.Find(context.Background(), space.MustZ(0, 4))
	assert.Error(t, err)
}

func TestJoin_MatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(42)

	left := append(rng.Boxes(150, 1, 0, 1024, 120), rng.Points(50, 1000, 0, 1024)...)
	right := rng.Boxes(150, 5000, 0, 1024, 60)
	want := testutil.BruteForceJoin(left, right, spatialobject.Overlap)
	require.NotEmpty(t, want)

	for _, maxZ := range []int{1, 4, 16} {
		for name, newIndex := range map[string]func() index.Index{
			"sortedarray": func() index.Index { return sortedarray.New() },
			"tree":        func() index.Index { return tree.New() },
		} {
			li, ri := newIndex(), newIndex()
			require.NoError(t, testutil.Fill(ctx, s, li, maxZ, left...))
			require.NoError(t, testutil.Fill(ctx, s, ri, maxZ, right...))

			counters := &Counters{}
			it := newIndexJoin(t, s, li, ri, overlap, counters)
			got := collect(t, it)

			assert.Equal(t, want, asSet(got), "%s maxZ=%d", name, maxZ)
			assert.GreaterOrEqual(t, len(got), len(want))
			assert.Equal(t, int64(len(got)), counters.FilterHit.Load())

			// Exact dedup leaves each pair once.
			it = newIndexJoin(t, s, li, ri, overlap, counters)
			deduped := collect(t, NewDedup(it, 0, counters))
			assert.Len(t, deduped, len(want))
			assert.Equal(t, want, asSet(deduped))
		}
	}
}

func TestJoin_SelfJoinEqualBoxes(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	idx := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, idx, 4,
		spatialobject.MustBox2D(1, 10, 20, 30, 40),
		spatialobject.MustBox2D(2, 10, 20, 30, 40),
	))

	it := newIndexJoin(t, s, idx, idx, keepAll, nil)
	got := collect(t, NewDedup(it, 0, nil))

	assert.ElementsMatch(t, []PairKey{{1, 1}, {1, 2}, {2, 1}, {2, 2}}, got)
}

func TestJoin_DisjointRegions(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(9)
	li, ri := sortedarray.New(), sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, li, 8, rng.Boxes(50, 1, 0, 400, 50)...))
	require.NoError(t, testutil.Fill(ctx, s, ri, 8, rng.Boxes(50, 100, 600, 1000, 50)...))

	counters := &Counters{}
	got := collect(t, newIndexJoin(t, s, li, ri, keepAll, counters))

	assert.Empty(t, got)
	assert.Zero(t, counters.FilterCall.Load())
}

func TestJoin_EmptyInputs(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	full := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, full, 4, testutil.NewRNG(1).Boxes(10, 1, 0, 1024, 100)...))

	assert.Empty(t, collect(t, newIndexJoin(t, s, sortedarray.New(), full, keepAll, nil)))
	assert.Empty(t, collect(t, newIndexJoin(t, s, full, sortedarray.New(), keepAll, nil)))
}

func TestJoin_SkipsWithAncestorCache(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)

	// Many points on the left, three small boxes on the right: the left
	// side must seek past most of its records.
	left := testutil.NewRNG(5).Points(2000, 1, 0, 1024)
	right := []spatialobject.SpatialObject{
		spatialobject.MustBox2D(10000, 100, 100, 120, 120),
		spatialobject.MustBox2D(10001, 700, 300, 720, 320),
		spatialobject.MustBox2D(10002, 400, 900, 410, 910),
	}
	li, ri := sortedarray.New(), sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, li, 4, left...))
	require.NoError(t, testutil.Fill(ctx, s, ri, 4, right...))

	counted := testutil.NewCountingIndex(li)
	counters := &Counters{}
	got := collect(t, newIndexJoin(t, s, counted, ri, overlap, counters))

	assert.Equal(t, testutil.BruteForceJoin(left, right, spatialobject.Overlap), asSet(got))
	assert.Less(t, counted.Nexts.Load(), int64(li.Len()))
	assert.Positive(t, counters.AncestorFind.Load())
	assert.Equal(t, int64(0), counted.Open())
}

func TestJoin_StoreErrorPropagates(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(11)
	li, ri := sortedarray.New(), sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, li, 4, rng.Boxes(100, 1, 0, 1024, 200)...))
	require.NoError(t, testutil.Fill(ctx, s, ri, 4, rng.Boxes(100, 500, 0, 1024, 200)...))

	faulty := testutil.NewFaultyIndex(ri, 25)
	counted := testutil.NewCountingIndex(faulty)
	it := newIndexJoin(t, s, li, counted, keepAll, nil)

	var err error
	for {
		var ok bool
		_, ok, err = it.Next(ctx)
		if err != nil || !ok {
			break
		}
	}
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.ErrorIs(t, it.Err(), testutil.ErrInjected)
	assert.Equal(t, int64(0), counted.Open())

	// Nothing more after the failure.
	_, ok, err := it.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestJoin_FilterErrorPropagates(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	idx := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, idx, 4, spatialobject.MustBox2D(7, 10, 10, 20, 20)))

	boom := errors.New("boom")
	it := newIndexJoin(t, s, idx, idx, func(_, _ spatialobject.SpatialObject) (bool, error) {
		return false, boom
	}, nil)

	_, ok, err := it.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	var fe *FilterError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(7), fe.Left)
	assert.Equal(t, int64(7), fe.Right)
}

func TestJoin_Canceled(t *testing.T) {
	s := testutil.Space2D(1024, 10)
	idx := sortedarray.New()
	require.NoError(t, testutil.Fill(context.Background(), s, idx, 4, testutil.NewRNG(2).Boxes(20, 1, 0, 1024, 300)...))

	it := newIndexJoin(t, s, idx, idx, keepAll, nil)
	ctx, cancel := context.WithCancel(context.Background())
	_, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	for ok && err == nil {
		_, ok, err = it.Next(ctx)
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoin_CloseReleasesCursors(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	base := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, base, 4, testutil.NewRNG(4).Boxes(20, 1, 0, 1024, 300)...))
	idx := testutil.NewCountingIndex(base)

	it := newIndexJoin(t, s, idx, idx, keepAll, nil)
	assert.Equal(t, int64(4), idx.Open())

	_, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.Equal(t, int64(0), idx.Open())

	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestJoin_RecordsInputMatchesSingletonIndex(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(21)
	idx := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, idx, 4, rng.Boxes(200, 1, 0, 1024, 80)...))

	q := spatialobject.MustBox2D(-1, 200, 300, 520, 610)
	zs, err := s.Decompose(q, 8)
	require.NoError(t, err)
	recs := make([]index.Record, len(zs))
	for i, z := range zs {
		recs[i] = index.Record{Key: index.Key{Z: z, SOID: q.ID()}, Object: q}
	}

	single := sortedarray.New()
	require.NoError(t, testutil.Fill(ctx, s, single, 8, q))

	it, err := NewIterator(NewRecordsInput(recs, nil), mustIndexInput(t, s, idx), overlap, nil)
	require.NoError(t, err)
	fromRecords := collect(t, NewDedup(it, 0, nil))

	fromIndex := collect(t, NewDedup(newIndexJoin(t, s, single, idx, overlap, nil), 0, nil))

	assert.NotEmpty(t, fromRecords)
	assert.ElementsMatch(t, fromIndex, fromRecords)
}

func mustIndexInput(t *testing.T, s *space.Space, idx index.Index) *Input {
	t.Helper()
	in, err := NewIndexInput(context.Background(), idx, levels(s), nil)
	require.NoError(t, err)
	return in
}

func TestNewIterator_NilFilter(t *testing.T) {
	_, err := NewIterator(NewRecordsInput(nil, nil), NewRecordsInput(nil, nil), nil, nil)
	assert.ErrorIs(t, err, ErrNilFilter)
}
