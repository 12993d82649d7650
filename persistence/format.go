package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MagicNumber identifies zspatial snapshot files (ASCII: "ZSPI").
	MagicNumber = 0x5A535049
	// Version is the current snapshot format version.
	Version = 1

	headerSize = 32

	// DefaultBlockSize is the uncompressed size of a snapshot body block.
	DefaultBlockSize = 64 << 10
	// MaxBlockSize bounds the blocks Load accepts.
	MaxBlockSize = 16 << 20
)

// Flags of FileHeader.
const (
	// FlagSpace marks a body that starts with a space description.
	FlagSpace uint8 = 1 << iota
)

var (
	ErrInvalidMagic       = errors.New("persistence: invalid magic number")
	ErrInvalidVersion     = errors.New("persistence: unsupported version")
	ErrInvalidCompression = errors.New("persistence: unsupported compression")
	ErrCodecMismatch      = errors.New("persistence: snapshot uses a different codec")
	ErrCorrupt            = errors.New("persistence: corrupt snapshot")
	ErrNoSpace            = errors.New("persistence: snapshot carries no space")
)

// FileHeader is the fixed 32-byte header at the start of every snapshot.
// The body that follows is a stream of compressed blocks and ends with the
// CRC32 of the uncompressed body.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	Compression CompressionType
	Flags       uint8
	Dimensions  uint8
	Padding     uint8
	BlockSize   uint32
	ObjectCount uint64
	RecordCount uint64
}

// WriteTo writes the header in little-endian order.
func (h *FileHeader) WriteTo(w io.Writer) (int64, error) {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	buf[8] = byte(h.Compression)
	buf[9] = h.Flags
	buf[10] = h.Dimensions
	buf[11] = h.Padding
	binary.LittleEndian.PutUint32(buf[12:], h.BlockSize)
	binary.LittleEndian.PutUint64(buf[16:], h.ObjectCount)
	binary.LittleEndian.PutUint64(buf[24:], h.RecordCount)
	n, err := w.Write(buf[:])
	return int64(n), err
}

// ReadFrom reads and validates a header.
func (h *FileHeader) ReadFrom(r io.Reader) (int64, error) {
	var buf [headerSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return int64(n), unexpected(err)
	}
	h.Magic = binary.LittleEndian.Uint32(buf[0:])
	h.Version = binary.LittleEndian.Uint32(buf[4:])
	h.Compression = CompressionType(buf[8])
	h.Flags = buf[9]
	h.Dimensions = buf[10]
	h.Padding = buf[11]
	h.BlockSize = binary.LittleEndian.Uint32(buf[12:])
	h.ObjectCount = binary.LittleEndian.Uint64(buf[16:])
	h.RecordCount = binary.LittleEndian.Uint64(buf[24:])
	return int64(n), h.validate()
}

func (h *FileHeader) validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if !h.Compression.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidCompression, h.Compression)
	}
	if h.BlockSize == 0 || h.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: block size %d", ErrCorrupt, h.BlockSize)
	}
	if h.ObjectCount > h.RecordCount {
		return fmt.Errorf("%w: %d objects for %d records", ErrCorrupt, h.ObjectCount, h.RecordCount)
	}
	return nil
}
