package zspatial

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/index/sortedarray"
	"github.com/hupe1980/zspatial/index/tree"
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
	"github.com/hupe1980/zspatial/testutil"
)

func newIndex(t *testing.T, s *space.Space, store index.Index, objs []SpatialObject, optFns ...Option) *SpatialIndex {
	t.Helper()
	si, err := NewSpatialIndex(s, store, optFns...)
	require.NoError(t, err)
	for _, obj := range objs {
		require.NoError(t, si.Add(context.Background(), obj))
	}
	return si
}

func drain(t *testing.T, it *Iterator) []PairKey {
	t.Helper()
	defer it.Close()
	var out []PairKey
	for it.Next() {
		out = append(out, it.Pair().Key())
	}
	require.NoError(t, it.Err())
	return out
}

func keySet(keys []PairKey) map[testutil.PairID]struct{} {
	out := make(map[testutil.PairID]struct{}, len(keys))
	for _, k := range keys {
		out[testutil.PairID{Left: k.Left, Right: k.Right}] = struct{}{}
	}
	return out
}

func TestSpatialJoin_SelfJoinEqualBoxes(t *testing.T) {
	s := testutil.Space2D(1024, 10)
	idx := newIndex(t, s, tree.New(), []SpatialObject{
		spatialobject.MustBox2D(1, 10, 20, 30, 40),
		spatialobject.MustBox2D(2, 10, 20, 30, 40),
	})

	j, err := NewSpatialJoin(KeepAll, Exclude)
	require.NoError(t, err)

	it, err := j.Iterator(context.Background(), idx, idx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []PairKey{{Left: 1, Right: 1}, {Left: 1, Right: 2}, {Left: 2, Right: 1}, {Left: 2, Right: 2}}, drain(t, it))
}

func TestSpatialJoin_MatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(4096, 12)
	rng := testutil.NewRNG(77)

	leftObjs := rng.Boxes(300, 1, 0, 4096, 300)
	rightObjs := append(rng.Boxes(200, 10000, 0, 4096, 150), rng.Points(100, 20000, 0, 4096)...)
	want := testutil.BruteForceJoin(leftObjs, rightObjs, spatialobject.Overlap)
	require.NotEmpty(t, want)

	left := newIndex(t, s, tree.New(), leftObjs, WithMaxZ(8))
	right := newIndex(t, s, sortedarray.New(), rightObjs, WithMaxZ(8))

	t.Run("exclude", func(t *testing.T) {
		j, err := NewSpatialJoin(Overlaps, Exclude)
		require.NoError(t, err)
		it, err := j.Iterator(ctx, left, right)
		require.NoError(t, err)

		got := drain(t, it)
		assert.Len(t, got, len(want))
		assert.Equal(t, want, keySet(got))
	})

	t.Run("include", func(t *testing.T) {
		j, err := NewSpatialJoin(Overlaps, Include)
		require.NoError(t, err)
		it, err := j.Iterator(ctx, left, right)
		require.NoError(t, err)

		got := drain(t, it)
		assert.GreaterOrEqual(t, len(got), len(want))
		assert.Equal(t, want, keySet(got))
	})

	t.Run("precision", func(t *testing.T) {
		j, err := NewSpatialJoin(Overlaps, Include)
		require.NoError(t, err)
		for p, err := range j.Pairs(ctx, left, right) {
			require.NoError(t, err)
			assert.True(t, spatialobject.Overlap(p.Left, p.Right), "%s", p)
		}
	})

	t.Run("repeatable", func(t *testing.T) {
		j, err := NewSpatialJoin(Overlaps, Include)
		require.NoError(t, err)
		first, err := j.Iterator(ctx, left, right)
		require.NoError(t, err)
		second, err := j.Iterator(ctx, left, right)
		require.NoError(t, err)
		assert.Equal(t, drain(t, first), drain(t, second))
	})
}

func TestSpatialJoin_DisjointRegions(t *testing.T) {
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(8)
	left := newIndex(t, s, tree.New(), rng.Boxes(40, 1, 0, 400, 60))
	right := newIndex(t, s, tree.New(), rng.Boxes(40, 100, 600, 1000, 60))

	counters := &Counters{}
	j, err := NewSpatialJoin(KeepAll, Exclude, WithCounters(counters))
	require.NoError(t, err)
	assert.Same(t, counters, j.Counters())

	it, err := j.Iterator(context.Background(), left, right)
	require.NoError(t, err)
	assert.Empty(t, drain(t, it))
	assert.Zero(t, counters.FilterCall.Load())
	assert.Zero(t, counters.PairEmitted.Load())
}

func TestSpatialJoin_SpaceMismatch(t *testing.T) {
	a := newIndex(t, testutil.Space2D(1024, 10), tree.New(), nil)
	fewerBits := newIndex(t, testutil.Space2D(1024, 9), tree.New(), nil)
	widerBounds := newIndex(t, testutil.Space2D(2048, 10), tree.New(), nil)

	j, err := NewSpatialJoin(KeepAll, Include)
	require.NoError(t, err)
	_, err = j.Iterator(context.Background(), a, fewerBits)
	assert.ErrorIs(t, err, ErrSpaceMismatch)
	_, err = j.Iterator(context.Background(), a, widerBounds)
	assert.ErrorIs(t, err, ErrSpaceMismatch)

	// Spaces built separately with the same parameters are equal.
	same := newIndex(t, testutil.Space2D(1024, 10), tree.New(), nil)
	it, err := j.Iterator(context.Background(), a, same)
	require.NoError(t, err)
	assert.Empty(t, drain(t, it))

	_, err = j.Iterator(context.Background(), a, nil)
	assert.ErrorIs(t, err, ErrNilIndex)

	_, err = NewSpatialJoin(nil, Include)
	assert.ErrorIs(t, err, ErrNilFilter)
}

func TestSpatialJoin_QueryMatchesSingletonJoin(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	idx := newIndex(t, s, tree.New(), testutil.NewRNG(12).Boxes(300, 1, 0, 1024, 60))

	j, err := NewSpatialJoin(Overlaps, Exclude)
	require.NoError(t, err)

	for _, q := range []SpatialObject{
		spatialobject.MustBox2D(-1, 100, 100, 400, 300),
		spatialobject.MustBox2D(-2, 500, 500, 501, 501),
		mustLine(t, -3, [][2]float64{{0, 0}, {1024, 1024}}),
	} {
		it, err := j.QueryIterator(ctx, q, idx)
		require.NoError(t, err)
		fromQuery := drain(t, it)

		single := newIndex(t, s, sortedarray.New(), []SpatialObject{q})
		it, err = j.Iterator(ctx, single, idx)
		require.NoError(t, err)
		fromIndex := drain(t, it)

		assert.ElementsMatch(t, fromIndex, fromQuery, "query %d", q.ID())
		for _, k := range fromQuery {
			assert.Equal(t, q.ID(), k.Left)
		}
	}
}

func mustLine(t *testing.T, id int64, pts [][2]float64) SpatialObject {
	t.Helper()
	l, err := spatialobject.NewLineString(id, pts)
	require.NoError(t, err)
	return l
}

func TestSpatialJoin_PairsBreakReleasesCursors(t *testing.T) {
	s := testutil.Space2D(1024, 10)
	objs := testutil.NewRNG(3).Boxes(50, 1, 0, 1024, 200)
	store := testutil.NewCountingIndex(tree.New())
	idx := newIndex(t, s, store, objs)

	j, err := NewSpatialJoin(KeepAll, Include)
	require.NoError(t, err)

	n := 0
	for _, err := range j.Pairs(context.Background(), idx, idx) {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(0), store.Open())
}

func TestSpatialJoin_FilterError(t *testing.T) {
	s := testutil.Space2D(1024, 10)
	idx := newIndex(t, s, tree.New(), []SpatialObject{spatialobject.MustBox2D(5, 1, 1, 2, 2)})

	boom := errors.New("boom")
	j, err := NewSpatialJoin(func(_, _ SpatialObject) (bool, error) { return false, boom }, Exclude)
	require.NoError(t, err)

	var got error
	for _, err := range j.Pairs(context.Background(), idx, idx) {
		got = err
	}
	require.ErrorIs(t, got, boom)
	var fe *FilterError
	require.ErrorAs(t, got, &fe)
	assert.Equal(t, int64(5), fe.Left)
}

func TestSpatialJoin_StoreErrorAndCancel(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	objs := testutil.NewRNG(6).Boxes(100, 1, 0, 1024, 200)
	base := tree.New()
	require.NoError(t, testutil.Fill(ctx, s, base, space.DefaultMaxZ, objs...))

	faulty := newIndex(t, s, testutil.NewFaultyIndex(base, 40), nil)
	healthy := newIndex(t, s, base, nil)

	j, err := NewSpatialJoin(KeepAll, Include)
	require.NoError(t, err)

	it, err := j.Iterator(ctx, healthy, faulty)
	require.NoError(t, err)
	for it.Next() {
	}
	assert.ErrorIs(t, it.Err(), testutil.ErrInjected)

	cctx, cancel := context.WithCancel(ctx)
	it, err = j.Iterator(cctx, healthy, healthy)
	require.NoError(t, err)
	require.True(t, it.Next())
	cancel()
	for it.Next() {
	}
	assert.ErrorIs(t, it.Err(), context.Canceled)
}

func TestSpatialJoin_QueryAll(t *testing.T) {
	ctx := context.Background()
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(31)
	idx := newIndex(t, s, tree.New(), rng.Boxes(200, 1, 0, 1024, 80))
	queries := rng.Boxes(20, 1000, 0, 1024, 120)

	rc := resource.NewController(resource.Config{MaxConcurrentJoins: 3})
	metrics := &BasicMetricsCollector{}
	j, err := NewSpatialJoin(Overlaps, Exclude, WithResourceController(rc), WithMetricsCollector(metrics))
	require.NoError(t, err)

	results, err := j.QueryAll(ctx, queries, idx)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	for i, q := range queries {
		want := testutil.BruteForceJoin([]SpatialObject{q}, idx.objectsForTest(t), spatialobject.Overlap)
		got := make([]PairKey, len(results[i]))
		for k, p := range results[i] {
			got[k] = p.Key()
		}
		assert.Equal(t, want, keySet(got), "query %d", q.ID())
	}

	stats := rc.Stats()
	assert.Equal(t, int64(0), stats.ActiveJoins)
	assert.Equal(t, int64(len(queries)), stats.TotalJoins)
	assert.Positive(t, stats.Ops)
	assert.Equal(t, int64(len(queries)), metrics.GetStats().QueryCount)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = j.QueryAll(cctx, queries, idx)
	assert.ErrorIs(t, err, context.Canceled)
}

// objectsForTest lists the distinct objects stored in si.
func (si *SpatialIndex) objectsForTest(t *testing.T) []SpatialObject {
	t.Helper()
	ctx := context.Background()
	c, err := si.idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	seen := make(map[int64]bool)
	var out []SpatialObject
	for {
		rec, ok, err := c.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return out
		}
		if !seen[rec.Key.SOID] {
			seen[rec.Key.SOID] = true
			out = append(out, rec.Object)
		}
	}
}

func TestSpatialJoin_WindowOption(t *testing.T) {
	s := testutil.Space2D(1024, 10)
	strip := spatialobject.MustBox2D(1, 0, 0, 1024, 10)
	left := newIndex(t, s, tree.New(), []SpatialObject{strip}, WithMaxZ(2))
	var smalls []SpatialObject
	for i := range 10 {
		x := 100 + float64(i)*10
		smalls = append(smalls, spatialobject.MustBox2D(int64(10+i), x, 500, x+5, 505))
	}
	for _, obj := range smalls {
		require.NoError(t, left.Add(context.Background(), obj))
	}
	right := newIndex(t, s, tree.New(), []SpatialObject{spatialobject.MustBox2D(100, 0, 0, 1024, 1024)})

	count := func(optFns ...Option) int {
		j, err := NewSpatialJoin(Overlaps, Exclude, optFns...)
		require.NoError(t, err)
		it, err := j.Iterator(context.Background(), left, right)
		require.NoError(t, err)
		n := 0
		for _, k := range drain(t, it) {
			if k == (PairKey{Left: 1, Right: 100}) {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, count())
	assert.Equal(t, 2, count(WithDuplicateWindow(4)))
}

func TestSpatialJoin_LogsAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := &BasicMetricsCollector{}

	s := testutil.Space2D(1024, 10)
	idx := newIndex(t, s, tree.New(), testutil.NewRNG(2).Boxes(10, 1, 0, 1024, 100))

	j, err := NewSpatialJoin(Overlaps, Exclude, WithLogger(logger), WithMetricsCollector(metrics))
	require.NoError(t, err)
	it, err := j.Iterator(context.Background(), idx, idx)
	require.NoError(t, err)
	pairs := drain(t, it)

	assert.Contains(t, buf.String(), "join completed")
	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.JoinCount)
	assert.Equal(t, int64(len(pairs)), stats.JoinPairs)
	assert.Zero(t, stats.JoinErrors)
}
