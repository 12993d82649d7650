package zspatial

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each Add. cells is the number of z-values
	// the object was stored under.
	RecordAdd(cells int, duration time.Duration, err error)

	// RecordRemove is called after each Remove.
	RecordRemove(duration time.Duration, err error)

	// RecordJoin is called when an index-index join finishes or is closed.
	RecordJoin(pairs int, duration time.Duration, err error)

	// RecordQuery is called when a single-object join finishes or is closed.
	RecordQuery(pairs int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)     {}
func (NoopMetricsCollector) RecordJoin(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount       atomic.Int64
	AddErrors      atomic.Int64
	AddCells       atomic.Int64
	RemoveCount    atomic.Int64
	RemoveErrors   atomic.Int64
	JoinCount      atomic.Int64
	JoinErrors     atomic.Int64
	JoinPairs      atomic.Int64
	JoinTotalNanos atomic.Int64
	QueryCount     atomic.Int64
	QueryErrors    atomic.Int64
	QueryPairs     atomic.Int64
	QueryNanos     atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(cells int, _ time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddCells.Add(int64(cells))
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(_ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordJoin implements MetricsCollector.
func (b *BasicMetricsCollector) RecordJoin(pairs int, duration time.Duration, err error) {
	b.JoinCount.Add(1)
	b.JoinPairs.Add(int64(pairs))
	b.JoinTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.JoinErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(pairs int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryPairs.Add(int64(pairs))
	b.QueryNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:      b.AddCount.Load(),
		AddErrors:     b.AddErrors.Load(),
		AddCells:      b.AddCells.Load(),
		RemoveCount:   b.RemoveCount.Load(),
		RemoveErrors:  b.RemoveErrors.Load(),
		JoinCount:     b.JoinCount.Load(),
		JoinErrors:    b.JoinErrors.Load(),
		JoinPairs:     b.JoinPairs.Load(),
		JoinAvgNanos:  avg(b.JoinTotalNanos.Load(), b.JoinCount.Load()),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryPairs:    b.QueryPairs.Load(),
		QueryAvgNanos: avg(b.QueryNanos.Load(), b.QueryCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount      int64
	AddErrors     int64
	AddCells      int64
	RemoveCount   int64
	RemoveErrors  int64
	JoinCount     int64
	JoinErrors    int64
	JoinPairs     int64
	JoinAvgNanos  int64
	QueryCount    int64
	QueryErrors   int64
	QueryPairs    int64
	QueryAvgNanos int64
}
