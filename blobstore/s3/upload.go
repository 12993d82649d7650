package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/zspatial/internal/hash"
)

var errAborted = errors.New("s3: upload aborted")

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool

	// LeavePartsOnError keeps uploaded parts of a failed multipart upload
	// instead of aborting it.
	// Default: false
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:          8 * 1024 * 1024,
		Concurrency:       5,
		EnableChecksum:    true,
		LeavePartsOnError: false,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// computeCRC32C returns the CRC32C checksum in S3's format: base64 of the
// big-endian bytes.
func computeCRC32C(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

// streamingWritableBlob pipes writes into a background upload.
type streamingWritableBlob struct {
	pw   *io.PipeWriter
	pr   *io.PipeReader
	done chan error

	mu       sync.Mutex
	closed   bool
	closeErr error
}

func newStreamingWritableBlob(ctx context.Context, uploader *manager.Uploader, bucket, key string, enableChecksum bool) *streamingWritableBlob {
	pr, pw := io.Pipe()
	b := &streamingWritableBlob{
		pw:   pw,
		pr:   pr,
		done: make(chan error, 1),
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        pr,
		ContentType: aws.String(ContentType),
	}
	if enableChecksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := uploader.Upload(ctx, input)
		_ = pr.CloseWithError(err)
		b.done <- err
	}()
	return b
}

func (b *streamingWritableBlob) Write(p []byte) (int, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	return b.pw.Write(p)
}

// Close completes the upload and publishes the object.
func (b *streamingWritableBlob) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return b.closeErr
	}
	b.closed = true

	if err := b.pw.Close(); err != nil {
		b.closeErr = err
		return err
	}
	b.closeErr = <-b.done
	return b.closeErr
}

// Abort stops the upload. The upload manager aborts a started multipart
// upload unless LeavePartsOnError is set.
func (b *streamingWritableBlob) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.closeErr = errAborted

	_ = b.pw.CloseWithError(errAborted)
	<-b.done
	return nil
}

// Sync is a no-op; data is committed on Close.
func (b *streamingWritableBlob) Sync() error {
	return nil
}

func putObjectInput(bucket, key string, data []byte, enableChecksum bool) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ContentType),
	}
	if enableChecksum {
		input.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}
	return input
}
