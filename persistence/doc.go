// Package persistence saves and loads snapshots of spatial indexes.
//
// A snapshot is a 32-byte FileHeader followed by a body of compressed blocks
// (none, LZ4 or ZSTD) and a CRC32 trailer over the uncompressed body. The
// body holds the object codec name, optionally the space the index was built
// on, and every record as (z-value, object id) with the encoded object stored
// at its first occurrence.
//
//	info, err := persistence.Save(ctx, f, idx, persistence.WithSpace(s))
//	...
//	info, err = persistence.Load(ctx, f, tree.New())
//
// SaveBlob and LoadBlob do the same through a blobstore.BlobStore.
package persistence
