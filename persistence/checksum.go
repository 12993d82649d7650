package persistence

import (
	"errors"
	"fmt"
	"hash"
	"io"

	zhash "github.com/hupe1980/zspatial/internal/hash"
)

// The snapshot trailer is the CRC32-Castagnoli of the uncompressed body. It
// detects accidental corruption only, not tampering.

// crcWriter hashes everything written through it.
type crcWriter struct {
	w io.Writer
	h hash.Hash32
}

func newCRCWriter(w io.Writer) *crcWriter {
	return &crcWriter{w: w, h: zhash.NewCRC32C()}
}

func (c *crcWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.h.Write(p[:n])
	return n, err
}

func (c *crcWriter) Sum32() uint32 { return c.h.Sum32() }

// crcReader hashes everything read through it. It is an io.ByteReader so
// varints can be decoded directly from it.
type crcReader struct {
	r   io.Reader
	h   hash.Hash32
	one [1]byte
}

func newCRCReader(r io.Reader) *crcReader {
	return &crcReader{r: r, h: zhash.NewCRC32C()}
}

func (c *crcReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.h.Write(p[:n])
	return n, err
}

func (c *crcReader) ReadByte() (byte, error) {
	if br, ok := c.r.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		c.one[0] = b
		c.h.Write(c.one[:])
		return b, nil
	}
	if _, err := io.ReadFull(c, c.one[:]); err != nil {
		return 0, err
	}
	return c.one[0], nil
}

func (c *crcReader) Sum32() uint32 { return c.h.Sum32() }

// ChecksumMismatchError reports a snapshot whose trailer does not match its
// body. It matches ErrCorrupt under errors.Is.
type ChecksumMismatchError struct {
	Stored   uint32
	Computed uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("persistence: checksum mismatch: stored 0x%08x, computed 0x%08x", e.Stored, e.Computed)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

// IsChecksumMismatch reports whether err is or wraps a ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	var target *ChecksumMismatchError
	return errors.As(err, &target)
}
