package zspatial

import (
	"log/slog"

	"github.com/hupe1980/zspatial/internal/join"
	"github.com/hupe1980/zspatial/persistence"
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/space"
)

// Counters instruments joins: ancestor lookups and cache hits, cursor
// seeks and nexts, filter calls and suppressed duplicates. A Counters value
// is owned by the caller and may be shared across joins.
type Counters = join.Counters

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot = join.CounterSnapshot

type options struct {
	maxZ             int
	window           int
	counters         *Counters
	rc               *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
	snapshot         []persistence.Option
}

// Option configures SpatialIndex and SpatialJoin construction.
// Options that do not apply to a constructor are ignored by it.
type Option func(*options)

// WithMaxZ sets the decomposition budget: the maximum number of z-values
// an object is stored under. Values <= 0 select space.DefaultMaxZ; values
// above space.MaxDecomposition are capped.
func WithMaxZ(maxZ int) Option {
	return func(o *options) {
		o.maxZ = maxZ
	}
}

// WithDuplicateWindow makes Exclude joins remember only the n most recently
// emitted pairs instead of every pair.
//
// A bounded window keeps memory constant but misses duplicates that arrive
// after more than n other distinct pairs; objects decomposed into cells far
// apart in key order produce exactly that. n <= 0 selects exact duplicate
// elimination, the default.
func WithDuplicateWindow(n int) Option {
	return func(o *options) {
		o.window = n
	}
}

// WithCounters records join instrumentation into c.
func WithCounters(c *Counters) Option {
	return func(o *options) {
		o.counters = c
	}
}

// WithResourceController bounds joins with rc: each join holds a join slot
// while it runs and every cursor operation is charged against rc's
// operation budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithSnapshotOptions sets the options SpatialIndex.Save and
// LoadSpatialIndex pass to the persistence package, such as compression or
// a custom object codec.
func WithSnapshotOptions(opts ...persistence.Option) Option {
	return func(o *options) {
		o.snapshot = append(o.snapshot, opts...)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &zspatial.BasicMetricsCollector{}
//	si, _ := zspatial.NewSpatialIndex(s, tree.New(), zspatial.WithMetricsCollector(metrics))
//	// ... use si ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := zspatial.NewJSONLogger(slog.LevelInfo)
//	j, _ := zspatial.NewSpatialJoin(zspatial.Overlaps, zspatial.Exclude, zspatial.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		maxZ:             space.DefaultMaxZ,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.counters == nil {
		o.counters = &Counters{}
	}
	if o.maxZ <= 0 {
		o.maxZ = space.DefaultMaxZ
	}
	o.maxZ = min(o.maxZ, space.MaxDecomposition)
	return o
}
