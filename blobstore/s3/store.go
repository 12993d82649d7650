package s3

import (
	"context"
	"errors"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hupe1980/zspatial/blobstore"
)

// ContentType is attached to every uploaded snapshot.
const ContentType = "application/vnd.zspatial.snapshot"

// ErrConflict is returned by PutIfAbsent when the blob already exists.
var ErrConflict = errors.New("s3: blob already exists")

// Store implements blobstore.BlobStore for S3.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	cfg      UploadConfig
	uploader *manager.Uploader
}

// Option configures a Store.
type Option func(*Store)

// WithUploadConfig replaces DefaultUploadConfig.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(s *Store) {
		s.cfg = cfg
	}
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all keys (e.g. "snapshots/").
func NewStore(client Client, bucket, rootPrefix string, optFns ...Option) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
		cfg:    DefaultUploadConfig(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	s.uploader = newUploader(client, s.cfg)
	return s
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens a blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create starts a streaming upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newStreamingWritableBlob(ctx, s.uploader, s.bucket, s.key(name), s.cfg.EnableChecksum), nil
}

// Put writes a small blob with one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, putObjectInput(s.bucket, s.key(name), data, s.cfg.EnableChecksum))
	return err
}

// PutIfAbsent writes a blob unless one with that name exists. It returns
// ErrConflict if it does.
func (s *Store) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	input := putObjectInput(s.bucket, s.key(name), data, s.cfg.EnableChecksum)
	input.IfNoneMatch = aws.String("*")
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isConflict(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted names of all blobs with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name = strings.TrimPrefix(name, "/"); name != "" {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}
