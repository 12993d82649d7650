package join

import "sync/atomic"

// Counters instruments joins. A Counters value is owned by the caller and
// may be shared by concurrent joins.
type Counters struct {
	AncestorFind        atomic.Int64
	AncestorCacheHit    atomic.Int64
	Seek                atomic.Int64
	Next                atomic.Int64
	FilterCall          atomic.Int64
	FilterHit           atomic.Int64
	DuplicateSuppressed atomic.Int64
	PairEmitted         atomic.Int64
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	AncestorFind        int64
	AncestorCacheHit    int64
	Seek                int64
	Next                int64
	FilterCall          int64
	FilterHit           int64
	DuplicateSuppressed int64
	PairEmitted         int64
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		AncestorFind:        c.AncestorFind.Load(),
		AncestorCacheHit:    c.AncestorCacheHit.Load(),
		Seek:                c.Seek.Load(),
		Next:                c.Next.Load(),
		FilterCall:          c.FilterCall.Load(),
		FilterHit:           c.FilterHit.Load(),
		DuplicateSuppressed: c.DuplicateSuppressed.Load(),
		PairEmitted:         c.PairEmitted.Load(),
	}
}

// Reset zeroes all counters.
func (c *Counters) Reset() {
	c.AncestorFind.Store(0)
	c.AncestorCacheHit.Store(0)
	c.Seek.Store(0)
	c.Next.Store(0)
	c.FilterCall.Store(0)
	c.FilterHit.Store(0)
	c.DuplicateSuppressed.Store(0)
	c.PairEmitted.Store(0)
}

// Sub returns the difference s - o.
func (s CounterSnapshot) Sub(o CounterSnapshot) CounterSnapshot {
	return CounterSnapshot{
		AncestorFind:        s.AncestorFind - o.AncestorFind,
		AncestorCacheHit:    s.AncestorCacheHit - o.AncestorCacheHit,
		Seek:                s.Seek - o.Seek,
		Next:                s.Next - o.Next,
		FilterCall:          s.FilterCall - o.FilterCall,
		FilterHit:           s.FilterHit - o.FilterHit,
		DuplicateSuppressed: s.DuplicateSuppressed - o.DuplicateSuppressed,
		PairEmitted:         s.PairEmitted - o.PairEmitted,
	}
}
