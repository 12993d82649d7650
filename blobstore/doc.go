// Package blobstore stores index snapshots as immutable blobs.
//
// A blob is written once through Create (or Put) and becomes visible when
// the writer is closed; a writer that also implements Aborter can be
// abandoned without publishing anything. Readers open a Blob and read it
// with ReadAt, ReadRange or, sequentially, through NewReader.
//
// Implementations:
//
//   - MemoryStore: in-process map, for tests and ephemeral indexes
//   - LocalStore: files under a root directory, read through mmap
//   - minio.Store: any S3-compatible server via minio-go
//   - s3.Store: Amazon S3 via the AWS SDK, with multipart uploads
//
// Missing blobs are reported as ErrNotFound by every implementation.
package blobstore
