package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zspatial/blobstore"
)

func TestStore_Names(t *testing.T) {
	s := NewStore(nil, "bucket", "snapshots/")
	assert.Equal(t, "snapshots/a.zsp", s.key("a.zsp"))
	assert.Equal(t, "a.zsp", s.name("snapshots/a.zsp"))
	assert.Equal(t, "dir/b.zsp", s.name("snapshots/dir/b.zsp"))

	bare := NewStore(nil, "bucket", "")
	assert.Equal(t, "a.zsp", bare.key("a.zsp"))
	assert.Equal(t, "a.zsp", bare.name("a.zsp"))
}

func TestStore_PutOptions(t *testing.T) {
	s := NewStore(nil, "bucket", "", WithPartSize(16<<20))
	opts := s.putOptions()
	assert.Equal(t, ContentType, opts.ContentType)
	assert.Equal(t, uint64(16<<20), opts.PartSize)
}

func notFoundClient(t *testing.T) *minio.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:        credentials.NewStaticV4("key", "secret", ""),
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	require.NoError(t, err)
	return client
}

func TestStore_OpenNotFound(t *testing.T) {
	store := NewStore(notFoundClient(t), "bucket", "snapshots")
	_, err := store.Open(context.Background(), "missing.zsp")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_CreateAbort(t *testing.T) {
	store := NewStore(notFoundClient(t), "bucket", "snapshots")
	w, err := store.Create(context.Background(), "partial.zsp")
	require.NoError(t, err)

	a, ok := w.(blobstore.Aborter)
	require.True(t, ok)
	require.NoError(t, a.Abort())
	require.NoError(t, a.Abort())
	assert.NoError(t, w.Close())
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "test-zspatial"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.zsp", data))

	blob, err := store.Open(ctx, "test.zsp")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	all, err := io.ReadAll(blobstore.NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, data, all)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.zsp")

	require.NoError(t, store.Delete(ctx, "test.zsp"))
	_, err = store.Open(ctx, "test.zsp")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.zsp")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	blob, err = store.Open(ctx, "stream.zsp")
	require.NoError(t, err)
	assert.Equal(t, int64(13), blob.Size())
	require.NoError(t, blob.Close())

	_ = store.Delete(ctx, "stream.zsp")
}
