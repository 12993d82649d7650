package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/zspatial/blobstore"
)

// ContentType is attached to every uploaded snapshot.
const ContentType = "application/vnd.zspatial.snapshot"

// Store implements blobstore.BlobStore on MinIO or any S3-compatible server.
type Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	partSize uint64
}

// Option configures a Store.
type Option func(*Store)

// WithPartSize sets the multipart part size used by streaming uploads.
// Zero lets minio-go pick one.
func WithPartSize(n uint64) Option {
	return func(s *Store) {
		s.partSize = n
	}
}

// NewStore creates a Store. rootPrefix is prepended to every blob name.
func NewStore(client *minio.Client, bucket, rootPrefix string, optFns ...Option) *Store {
	s := &Store{client: client, bucket: bucket, prefix: rootPrefix}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// name maps an object key back to a blob name.
func (s *Store) name(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{ContentType: ContentType, PartSize: s.partSize}
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Open stats the object and returns a range-reading blob.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if isNotFound(err) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &object{store: s, key: key, size: info.Size}, nil
}

// Put uploads data in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), s.putOptions())
	return err
}

// Create starts a streaming upload of unknown size. The object is published
// when Close completes the upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	u := &upload{pw: pw, cancel: cancel, result: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions())
		_ = pr.CloseWithError(err)
		u.result <- err
	}()
	return u, nil
}

// Delete removes a blob. Missing blobs are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted blob names starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := s.name(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type object struct {
	store *Store
	key   string
	size  int64
}

func (o *object) Size() int64  { return o.size }
func (o *object) Close() error { return nil }

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	rc, err := o.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= o.size {
		return nil, io.EOF
	}
	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, min(off+length, o.size)-1); err != nil {
		return nil, err
	}
	return o.store.client.GetObject(ctx, o.store.bucket, o.key, opts)
}

// upload feeds a PutObject call running in its own goroutine.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	result chan error
	done   bool
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *upload) Sync() error { return nil }

// Close finishes the upload and waits for the server to commit it.
func (u *upload) Close() error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.cancel()
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.result
}

// Abort cancels the upload; no object is published.
func (u *upload) Abort() error {
	if u.done {
		return nil
	}
	u.done = true
	u.cancel()
	_ = u.pw.CloseWithError(context.Canceled)
	<-u.result
	return nil
}
