package zspatial

import (
	"context"
	"io"
	"time"

	"github.com/hupe1980/zspatial/blobstore"
	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/persistence"
)

// Save writes a snapshot of the index, including its space, to w.
func (si *SpatialIndex) Save(ctx context.Context, w io.Writer) (*persistence.Info, error) {
	start := time.Now()
	info, err := persistence.Save(ctx, w, si.idx, si.snapshotOptions()...)
	si.logSnapshot(ctx, "save", info, start, err)
	return info, err
}

// SaveBlob writes a snapshot of the index to the named blob.
func (si *SpatialIndex) SaveBlob(ctx context.Context, store blobstore.BlobStore, name string) (*persistence.Info, error) {
	start := time.Now()
	info, err := persistence.SaveBlob(ctx, store, name, si.idx, si.snapshotOptions()...)
	si.logSnapshot(ctx, "save_blob", info, start, err)
	return info, err
}

func (si *SpatialIndex) snapshotOptions() []persistence.Option {
	opts := []persistence.Option{
		persistence.WithSpace(si.space),
		persistence.WithResourceController(si.opts.rc),
	}
	return append(opts, si.opts.snapshot...)
}

func (si *SpatialIndex) logSnapshot(ctx context.Context, op string, info *persistence.Info, start time.Time, err error) {
	var (
		records int
		bytes   int64
	)
	if info != nil {
		records, bytes = info.Records, info.Bytes
	}
	si.logger.LogSnapshot(ctx, op, records, bytes, time.Since(start), err)
}

// LoadSpatialIndex reads a snapshot written by SpatialIndex.Save into the
// empty key store idx and returns a spatial index on the recorded space.
//
// The decomposition budget is not part of the snapshot: pass the WithMaxZ
// the snapshot was built with, or Remove will not find decomposed objects.
func LoadSpatialIndex(ctx context.Context, r io.Reader, idx index.Index, optFns ...Option) (*SpatialIndex, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	o := applyOptions(optFns)
	start := time.Now()
	info, err := persistence.Load(ctx, r, idx, loadOptions(o)...)
	return finishLoad(ctx, "load", idx, o, optFns, info, start, err)
}

// LoadSpatialIndexBlob is LoadSpatialIndex reading the named blob.
func LoadSpatialIndexBlob(ctx context.Context, store blobstore.BlobStore, name string, idx index.Index, optFns ...Option) (*SpatialIndex, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	o := applyOptions(optFns)
	start := time.Now()
	info, err := persistence.LoadBlob(ctx, store, name, idx, loadOptions(o)...)
	return finishLoad(ctx, "load_blob", idx, o, optFns, info, start, err)
}

func loadOptions(o options) []persistence.Option {
	opts := []persistence.Option{
		persistence.RequireSpace(),
		persistence.WithResourceController(o.rc),
	}
	return append(opts, o.snapshot...)
}

func finishLoad(ctx context.Context, op string, idx index.Index, o options, optFns []Option, info *persistence.Info, start time.Time, err error) (*SpatialIndex, error) {
	var (
		records int
		bytes   int64
	)
	if info != nil {
		records, bytes = info.Records, info.Bytes
	}
	o.logger.LogSnapshot(ctx, op, records, bytes, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return NewSpatialIndex(info.Space, idx, optFns...)
}
