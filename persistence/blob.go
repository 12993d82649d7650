package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/zspatial/blobstore"
	"github.com/hupe1980/zspatial/index"
)

// SaveBlob writes a snapshot of idx to the named blob. If saving fails the
// upload is aborted where the store supports it, so no partial blob is
// published.
func SaveBlob(ctx context.Context, store blobstore.BlobStore, name string, idx index.Index, optFns ...Option) (*Info, error) {
	w, err := store.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persistence: create %s: %w", name, err)
	}

	info, err := Save(ctx, w, idx, optFns...)
	if err != nil {
		if a, ok := w.(blobstore.Aborter); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("persistence: publish %s: %w", name, err)
	}
	return info, nil
}

// LoadBlob reads the named snapshot blob into dst.
func LoadBlob(ctx context.Context, store blobstore.BlobStore, name string, dst index.Index, optFns ...Option) (info *Info, err error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", name, err)
	}
	defer func() {
		err = errors.Join(err, b.Close())
	}()

	return Load(ctx, blobstore.NewReader(ctx, b), dst, optFns...)
}
