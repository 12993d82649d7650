// Package s3 stores snapshot blobs in Amazon S3.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	store := s3blob.NewStore(client, "my-bucket", "snapshots/")
//
//	info, err := persistence.SaveBlob(ctx, store, "parcels.zsp", idx)
//
// Reads use ranged GETs. Streaming writes go through the multipart upload
// manager and are published only when the writer is closed. Small blobs are
// written with a single PutObject carrying a CRC32C checksum.
package s3
