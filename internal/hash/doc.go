// Package hash provides the CRC32-Castagnoli checksum shared by snapshot
// trailers and S3 upload integrity checks.
//
//	sum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk)
//	sum = h.Sum32()
package hash
