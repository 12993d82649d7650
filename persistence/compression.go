package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the block compression of a snapshot body.
type CompressionType uint8

const (
	// CompressionNone stores blocks as is.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c CompressionType) valid() bool {
	return c <= CompressionZSTD
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block layout: [UncompressedSize uint32][StoredSize uint32][Data...].
// StoredSize 0 means Data holds UncompressedSize raw bytes. A block with
// both sizes 0 ends the stream.
const blockHeaderSize = 8

var errCorruptBlock = errors.New("persistence: corrupt block")

// compressBlock returns the compressed form of data, or nil if compression
// does not pay off.
func compressBlock(data []byte, c CompressionType) ([]byte, error) {
	var (
		compressed []byte
		err        error
	)
	switch c {
	case CompressionLZ4:
		compressed = make([]byte, lz4.CompressBlockBound(len(data)))
		var n int
		n, err = lz4.CompressBlock(data, compressed, nil)
		compressed = compressed[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Store uncompressed when the ratio exceeds 0.9.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return compressed, nil
}

func decompressBlock(stored []byte, size int, c CompressionType) ([]byte, error) {
	switch c {
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errCorruptBlock, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: lz4 size %d, want %d", errCorruptBlock, n, size)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errCorruptBlock, err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("%w: zstd size %d, want %d", errCorruptBlock, len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed block in uncompressed stream", errCorruptBlock)
	}
}

// blockWriter buffers writes and emits them as compressed blocks.
type blockWriter struct {
	w           io.Writer
	compression CompressionType
	blockSize   int
	buf         bytes.Buffer
	header      [blockHeaderSize]byte
	closed      bool
}

func newBlockWriter(w io.Writer, c CompressionType, blockSize int) *blockWriter {
	bw := &blockWriter{w: w, compression: c, blockSize: blockSize}
	bw.buf.Grow(blockSize)
	return bw
}

func (bw *blockWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		room := bw.blockSize - bw.buf.Len()
		if room > len(p) {
			room = len(p)
		}
		bw.buf.Write(p[:room])
		p = p[room:]
		if bw.buf.Len() >= bw.blockSize {
			if err := bw.flush(); err != nil {
				return n - len(p), err
			}
		}
	}
	return n, nil
}

func (bw *blockWriter) WriteByte(c byte) error {
	_, err := bw.Write([]byte{c})
	return err
}

func (bw *blockWriter) flush() error {
	if bw.buf.Len() == 0 {
		return nil
	}
	data := bw.buf.Bytes()
	compressed, err := compressBlock(data, bw.compression)
	if err != nil {
		return err
	}
	payload := data
	binary.LittleEndian.PutUint32(bw.header[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(bw.header[4:], 0)
	if compressed != nil {
		payload = compressed
		binary.LittleEndian.PutUint32(bw.header[4:], uint32(len(compressed)))
	}
	if _, err := bw.w.Write(bw.header[:]); err != nil {
		return err
	}
	if _, err := bw.w.Write(payload); err != nil {
		return err
	}
	bw.buf.Reset()
	return nil
}

// Close flushes pending data and writes the end-of-stream block. It does
// not close the underlying writer.
func (bw *blockWriter) Close() error {
	if bw.closed {
		return nil
	}
	bw.closed = true
	if err := bw.flush(); err != nil {
		return err
	}
	clear(bw.header[:])
	_, err := bw.w.Write(bw.header[:])
	return err
}

// blockReader reads the stream written by blockWriter.
type blockReader struct {
	r           io.Reader
	compression CompressionType
	maxBlock    int
	block       []byte
	pos         int
	eof         bool
	header      [blockHeaderSize]byte
}

func newBlockReader(r io.Reader, c CompressionType, maxBlock int) *blockReader {
	return &blockReader{r: r, compression: c, maxBlock: maxBlock}
}

func (br *blockReader) next() error {
	if _, err := io.ReadFull(br.r, br.header[:]); err != nil {
		return unexpected(err)
	}
	size := int(binary.LittleEndian.Uint32(br.header[0:]))
	stored := int(binary.LittleEndian.Uint32(br.header[4:]))
	if size == 0 && stored == 0 {
		br.eof = true
		return io.EOF
	}
	if size > br.maxBlock || stored > br.maxBlock {
		return fmt.Errorf("%w: block of %d bytes exceeds limit %d", errCorruptBlock, max(size, stored), br.maxBlock)
	}
	n := size
	if stored != 0 {
		n = stored
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(br.r, payload); err != nil {
		return unexpected(err)
	}
	if stored != 0 {
		data, err := decompressBlock(payload, size, br.compression)
		if err != nil {
			return err
		}
		payload = data
	}
	br.block = payload
	br.pos = 0
	return nil
}

func (br *blockReader) Read(p []byte) (int, error) {
	for br.pos >= len(br.block) {
		if br.eof {
			return 0, io.EOF
		}
		if err := br.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, br.block[br.pos:])
	br.pos += n
	return n, nil
}

func (br *blockReader) ReadByte() (byte, error) {
	for br.pos >= len(br.block) {
		if br.eof {
			return 0, io.EOF
		}
		if err := br.next(); err != nil {
			return 0, err
		}
	}
	b := br.block[br.pos]
	br.pos++
	return b, nil
}

// finish reads up to the end-of-stream block and fails if data remains.
func (br *blockReader) finish() error {
	if br.pos < len(br.block) {
		return fmt.Errorf("%w: trailing data", errCorruptBlock)
	}
	for !br.eof {
		if err := br.next(); err != nil && err != io.EOF {
			return err
		}
		if len(br.block) > 0 && !br.eof {
			return fmt.Errorf("%w: trailing data", errCorruptBlock)
		}
	}
	return nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
