package zspatial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
)

// SpatialObject is an object that can be stored in a SpatialIndex.
type SpatialObject = spatialobject.SpatialObject

// SpatialIndex stores spatial objects in an ordered key store. An object is
// decomposed into at most MaxZ cells and stored once per cell under the key
// (z, object id).
//
// SpatialIndex is safe for concurrent use if its key store is.
type SpatialIndex struct {
	space   *space.Space
	idx     index.Index
	maxZ    int
	logger  *Logger
	metrics MetricsCollector
	opts    options
}

// NewSpatialIndex creates a spatial index over idx.
// Honours WithMaxZ, WithLogger, WithLogLevel, WithMetricsCollector,
// WithResourceController (snapshot I/O) and WithSnapshotOptions.
func NewSpatialIndex(s *space.Space, idx index.Index, optFns ...Option) (*SpatialIndex, error) {
	if s == nil {
		return nil, ErrNilSpace
	}
	if idx == nil {
		return nil, ErrNilIndex
	}
	o := applyOptions(optFns)
	return &SpatialIndex{
		space:   s,
		idx:     idx,
		maxZ:    o.maxZ,
		logger:  o.logger,
		metrics: o.metricsCollector,
		opts:    o,
	}, nil
}

// Space returns the space objects are decomposed in.
func (si *SpatialIndex) Space() *space.Space { return si.space }

// Index returns the underlying key store.
func (si *SpatialIndex) Index() index.Index { return si.idx }

// MaxZ returns the decomposition budget.
func (si *SpatialIndex) MaxZ() int { return si.maxZ }

// Len returns the number of stored records (objects times their cells).
func (si *SpatialIndex) Len() int { return si.idx.Len() }

// Decompose returns the z-values obj is stored under.
func (si *SpatialIndex) Decompose(obj SpatialObject) ([]space.Z, error) {
	if obj == nil {
		return nil, ErrNilObject
	}
	return si.space.Decompose(obj, si.maxZ)
}

// Records returns the records obj is stored as, in key order.
func (si *SpatialIndex) Records(obj SpatialObject) ([]index.Record, error) {
	zs, err := si.Decompose(obj)
	if err != nil {
		return nil, err
	}
	recs := make([]index.Record, len(zs))
	for i, z := range zs {
		recs[i] = index.Record{Key: index.Key{Z: z, SOID: obj.ID()}, Object: obj}
	}
	return recs, nil
}

// Add stores obj. Adding an object whose id is already stored under one of
// the same cells fails with index.ErrDuplicateKey and leaves the index
// unchanged.
func (si *SpatialIndex) Add(ctx context.Context, obj SpatialObject) error {
	start := time.Now()
	recs, err := si.Records(obj)
	if err == nil {
		err = si.addAll(ctx, recs)
	}
	si.metrics.RecordAdd(len(recs), time.Since(start), err)
	si.logger.LogAdd(ctx, objectID(obj), len(recs), err)
	return err
}

func (si *SpatialIndex) addAll(ctx context.Context, recs []index.Record) error {
	for i, rec := range recs {
		if err := si.idx.Add(ctx, rec); err != nil {
			// Roll back on a fresh context: ctx may be the reason we failed.
			var rollbackErr error
			for _, done := range recs[:i] {
				if _, rerr := si.idx.Remove(context.WithoutCancel(ctx), done.Key); rerr != nil {
					rollbackErr = errors.Join(rollbackErr, rerr)
				}
			}
			if rollbackErr != nil {
				return fmt.Errorf("zspatial: add %s: %w (rollback: %w)", rec.Key, err, rollbackErr)
			}
			return fmt.Errorf("zspatial: add %s: %w", rec.Key, err)
		}
	}
	return nil
}

// Remove deletes obj and reports whether any of its records were stored.
// obj must decompose as it did when it was added.
func (si *SpatialIndex) Remove(ctx context.Context, obj SpatialObject) (bool, error) {
	start := time.Now()
	removed, err := si.remove(ctx, obj)
	si.metrics.RecordRemove(time.Since(start), err)
	si.logger.LogRemove(ctx, objectID(obj), removed, err)
	return removed, err
}

func (si *SpatialIndex) remove(ctx context.Context, obj SpatialObject) (bool, error) {
	zs, err := si.Decompose(obj)
	if err != nil {
		return false, err
	}
	removed := false
	for _, z := range zs {
		ok, err := si.idx.Remove(ctx, index.Key{Z: z, SOID: obj.ID()})
		if err != nil {
			return removed, fmt.Errorf("zspatial: remove %s/%d: %w", z, obj.ID(), err)
		}
		removed = removed || ok
	}
	return removed, nil
}

func objectID(obj SpatialObject) int64 {
	if obj == nil {
		return 0
	}
	return obj.ID()
}
