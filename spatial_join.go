package zspatial

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/index/throttle"
	"github.com/hupe1980/zspatial/internal/join"
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/spatialobject"
)

// Pair is a join result: Left from the left index (or the query object),
// Right from the right index.
type Pair = join.Pair

// PairKey identifies a pair by the ids of its objects.
type PairKey = join.PairKey

// Filter decides whether a candidate pair really overlaps. It is called for
// every pair of objects whose cells are nested or equal and must not miss a
// true overlap. An error aborts the join.
type Filter = join.Filter

// Duplicates selects how pairs found through several cells are reported.
type Duplicates int

const (
	// Include reports a pair once per related cell pair that passes the filter.
	Include Duplicates = iota
	// Exclude reports each pair of objects once.
	Exclude
)

func (d Duplicates) String() string {
	switch d {
	case Include:
		return "include"
	case Exclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// KeepAll accepts every candidate pair. Joins with KeepAll report pairs
// whose cells overlap, which is a superset of the pairs whose objects do.
var KeepAll Filter = func(_, _ SpatialObject) (bool, error) { return true, nil }

// Overlaps is the exact overlap test for the object types of package
// spatialobject.
var Overlaps = FilterFunc(spatialobject.Overlap)

// FilterFunc adapts an infallible predicate to a Filter.
func FilterFunc(f func(left, right SpatialObject) bool) Filter {
	return func(left, right SpatialObject) (bool, error) {
		return f(left, right), nil
	}
}

// SpatialJoin finds the pairs of overlapping objects of two spatial indexes,
// or of one index and a query object.
//
// SpatialJoin is safe for concurrent use; each Iterator is not.
type SpatialJoin struct {
	filter     Filter
	duplicates Duplicates
	opts       options
}

// NewSpatialJoin creates a join with the given filter and duplicate handling.
// Honours WithDuplicateWindow, WithCounters, WithResourceController,
// WithLogger, WithLogLevel and WithMetricsCollector.
func NewSpatialJoin(filter Filter, duplicates Duplicates, optFns ...Option) (*SpatialJoin, error) {
	if filter == nil {
		return nil, ErrNilFilter
	}
	return &SpatialJoin{
		filter:     filter,
		duplicates: duplicates,
		opts:       applyOptions(optFns),
	}, nil
}

// Counters returns the counters this join records into.
func (j *SpatialJoin) Counters() *Counters {
	return j.opts.counters
}

// Iterator joins left with right. Both indexes must use the same space.
// The caller must not mutate either index while the iterator is in use
// unless the key store provides snapshot cursors.
func (j *SpatialJoin) Iterator(ctx context.Context, left, right *SpatialIndex) (*Iterator, error) {
	if left == nil || right == nil {
		return nil, ErrNilIndex
	}
	if !left.space.Equal(right.space) {
		return nil, ErrSpaceMismatch
	}
	levels := left.space.MaxResolutionLength() + 1

	return j.open(ctx, "index", func() (*join.Input, *join.Input, error) {
		l, err := join.NewIndexInput(ctx, j.store(left), levels, j.opts.counters)
		if err != nil {
			return nil, nil, err
		}
		r, err := join.NewIndexInput(ctx, j.store(right), levels, j.opts.counters)
		if err != nil {
			_ = l.Close()
			return nil, nil, err
		}
		return l, r, nil
	})
}

// QueryIterator joins a single query object with idx. Pairs carry the
// query on the left.
func (j *SpatialJoin) QueryIterator(ctx context.Context, query SpatialObject, idx *SpatialIndex) (*Iterator, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	recs, err := idx.Records(query)
	if err != nil {
		return nil, err
	}
	levels := idx.space.MaxResolutionLength() + 1

	return j.open(ctx, "query", func() (*join.Input, *join.Input, error) {
		r, err := join.NewIndexInput(ctx, j.store(idx), levels, j.opts.counters)
		if err != nil {
			return nil, nil, err
		}
		return join.NewRecordsInput(recs, j.opts.counters), r, nil
	})
}

// Pairs returns the result of joining left with right as a sequence.
// Iteration stops at the first error, which is yielded with a zero Pair.
func (j *SpatialJoin) Pairs(ctx context.Context, left, right *SpatialIndex) iter.Seq2[Pair, error] {
	return seq(func() (*Iterator, error) { return j.Iterator(ctx, left, right) })
}

// QueryPairs returns the result of joining query with idx as a sequence.
func (j *SpatialJoin) QueryPairs(ctx context.Context, query SpatialObject, idx *SpatialIndex) iter.Seq2[Pair, error] {
	return seq(func() (*Iterator, error) { return j.QueryIterator(ctx, query, idx) })
}

func seq(open func() (*Iterator, error)) iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		it, err := open()
		if err != nil {
			yield(Pair{}, err)
			return
		}
		defer it.Close()

		for it.Next() {
			if !yield(it.Pair(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Pair{}, err)
		}
	}
}

func (j *SpatialJoin) store(si *SpatialIndex) index.Index {
	if j.opts.rc == nil {
		return si.idx
	}
	return throttle.New(si.idx, j.opts.rc)
}

func (j *SpatialJoin) open(ctx context.Context, kind string, inputs func() (*join.Input, *join.Input, error)) (*Iterator, error) {
	if err := j.opts.rc.AcquireJoin(ctx); err != nil {
		return nil, err
	}
	l, r, err := inputs()
	if err != nil {
		j.opts.rc.ReleaseJoin()
		return nil, err
	}
	core, err := join.NewIterator(l, r, j.filter, j.opts.counters)
	if err != nil {
		j.opts.rc.ReleaseJoin()
		return nil, errors.Join(err, l.Close(), r.Close())
	}

	var src join.Source = core
	if j.duplicates == Exclude {
		src = join.NewDedup(core, j.opts.window, j.opts.counters)
	}

	return &Iterator{
		ctx:    ctx,
		src:    src,
		kind:   kind,
		join:   j,
		rc:     j.opts.rc,
		start:  time.Now(),
		before: j.opts.counters.Snapshot(),
	}, nil
}

// Iterator is a lazy, single-pass sequence of join results.
//
//	it, err := j.Iterator(ctx, left, right)
//	if err != nil {
//	    return err
//	}
//	defer it.Close()
//	for it.Next() {
//	    p := it.Pair()
//	    ...
//	}
//	return it.Err()
//
// The iterator releases its cursors once it is exhausted, fails or is
// closed.
type Iterator struct {
	ctx  context.Context
	src  join.Source
	kind string
	join *SpatialJoin
	rc   *resource.Controller

	cur    Pair
	pairs  int
	err    error
	done   bool
	start  time.Time
	before CounterSnapshot
}

// Next advances to the next pair and reports whether there is one.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	p, ok, err := it.src.Next(it.ctx)
	if err != nil || !ok {
		it.finish(err)
		return false
	}
	it.cur = p
	it.pairs++
	it.join.opts.counters.PairEmitted.Add(1)
	return true
}

// Pair returns the current pair.
func (it *Iterator) Pair() Pair {
	return it.cur
}

// Err returns the error that ended iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close stops the join and releases its cursors. It is safe to call more
// than once.
func (it *Iterator) Close() error {
	if it.done {
		return nil
	}
	return it.finish(nil)
}

func (it *Iterator) finish(err error) error {
	it.done = true
	it.cur = Pair{}
	closeErr := it.src.Close()
	if err == nil {
		err = closeErr
	}
	it.err = err
	it.rc.ReleaseJoin()

	o := it.join.opts
	elapsed := time.Since(it.start)
	if it.kind == "query" {
		o.metricsCollector.RecordQuery(it.pairs, elapsed, err)
	} else {
		o.metricsCollector.RecordJoin(it.pairs, elapsed, err)
	}
	o.logger.LogJoin(it.ctx, it.kind, it.pairs, o.counters.Snapshot().Sub(it.before), elapsed, err)
	return closeErr
}
