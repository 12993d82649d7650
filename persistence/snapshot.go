package persistence

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
)

// ErrMissingObject is returned by Save for a record without an object.
var ErrMissingObject = errors.New("persistence: record has no object")

// maxStringLen bounds strings and encoded objects read from a body.
const maxStringLen = MaxBlockSize

// checkEvery is how many records pass between context checks.
const checkEvery = 1024

// Info describes a snapshot.
type Info struct {
	// Space is the recorded space, or nil.
	Space       *space.Space
	Compression CompressionType
	Codec       string
	// Objects is the number of distinct spatial objects.
	Objects int
	Records int
	// Bytes is the size of the snapshot including header and trailer.
	Bytes int64
}

// Save writes a snapshot of idx to w.
//
// Records are read through one cursor, so with a stable index the snapshot
// is consistent even while writers continue. Objects decomposed into several
// records are stored once.
func Save(ctx context.Context, w io.Writer, idx index.Index, optFns ...Option) (*Info, error) {
	o := applyOptions(optFns)
	if !o.compression.valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCompression, o.compression)
	}

	recs, objects, err := collect(ctx, idx)
	if err != nil {
		return nil, err
	}

	if o.rc != nil {
		w = resource.NewRateLimitedWriter(ctx, w, o.rc)
	}
	cw := &countingWriter{w: w}

	h := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Compression: o.compression,
		BlockSize:   uint32(o.blockSize),
		ObjectCount: uint64(objects),
		RecordCount: uint64(len(recs)),
	}
	if o.space != nil {
		h.Flags |= FlagSpace
		h.Dimensions = uint8(o.space.Dimensions())
	}
	if _, err := h.WriteTo(cw); err != nil {
		return nil, err
	}

	bw := newBlockWriter(cw, o.compression, o.blockSize)
	sum := newCRCWriter(bw)

	buf := appendString(nil, o.codec.Name())
	if o.space != nil {
		buf = appendSpace(buf, o.space)
	}

	var obj []byte
	written := make(map[int64]struct{}, objects)
	for i, rec := range recs {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		buf = binary.AppendUvarint(buf, uint64(rec.Key.Z.Length()))
		buf = binary.AppendUvarint(buf, rec.Key.Z.Prefix())
		buf = binary.AppendVarint(buf, rec.Key.SOID)
		if _, ok := written[rec.Key.SOID]; ok {
			buf = append(buf, 0)
		} else {
			written[rec.Key.SOID] = struct{}{}
			obj, err = o.codec.Append(obj[:0], rec.Object)
			if err != nil {
				return nil, fmt.Errorf("persistence: encode %s: %w", rec.Key, err)
			}
			buf = append(buf, 1)
			buf = binary.AppendUvarint(buf, uint64(len(obj)))
			buf = append(buf, obj...)
		}
		if len(buf) >= o.blockSize {
			if _, err := sum.Write(buf); err != nil {
				return nil, err
			}
			buf = buf[:0]
		}
	}
	if _, err := sum.Write(buf); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], sum.Sum32())
	if _, err := cw.Write(trailer[:]); err != nil {
		return nil, err
	}

	return &Info{
		Space:       o.space,
		Compression: o.compression,
		Codec:       o.codec.Name(),
		Objects:     objects,
		Records:     len(recs),
		Bytes:       cw.n,
	}, nil
}

func collect(ctx context.Context, idx index.Index) ([]index.Record, int, error) {
	c, err := idx.Cursor(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer c.Close()

	recs := make([]index.Record, 0, idx.Len())
	seen := make(map[int64]struct{})
	for {
		rec, ok, err := c.Next(ctx)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return recs, len(seen), nil
		}
		if rec.Object == nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingObject, rec.Key)
		}
		seen[rec.Key.SOID] = struct{}{}
		recs = append(recs, rec)
	}
}

// Load reads a snapshot from r and adds its records to dst.
//
// The whole snapshot is decoded and verified before the first Add, so a
// corrupt snapshot leaves dst untouched.
func Load(ctx context.Context, r io.Reader, dst index.Index, optFns ...Option) (*Info, error) {
	o := applyOptions(optFns)
	if o.rc != nil {
		r = resource.NewRateLimitedReader(ctx, r, o.rc)
	}
	cr := &countingReader{r: r}

	var h FileHeader
	if _, err := h.ReadFrom(cr); err != nil {
		return nil, err
	}

	br := newBlockReader(cr, h.Compression, int(h.BlockSize))
	sum := newCRCReader(br)

	codec, err := readString(sum)
	if err != nil {
		return nil, corrupt(err)
	}
	if codec != o.codec.Name() {
		return nil, fmt.Errorf("%w: %q, have %q", ErrCodecMismatch, codec, o.codec.Name())
	}

	info := &Info{Compression: h.Compression, Codec: codec}
	if h.Flags&FlagSpace == 0 && o.requireSpace {
		return nil, ErrNoSpace
	}
	if h.Flags&FlagSpace != 0 {
		if info.Space, err = readSpace(sum, int(h.Dimensions)); err != nil {
			return nil, corrupt(err)
		}
	}

	recs, objects, err := decodeRecords(ctx, sum, &h, o.codec)
	if err != nil {
		return nil, err
	}
	expected := sum.Sum32()
	if err := br.finish(); err != nil {
		return nil, corrupt(err)
	}
	var trailer [4]byte
	if _, err := io.ReadFull(cr, trailer[:]); err != nil {
		return nil, corrupt(unexpected(err))
	}
	if got := binary.LittleEndian.Uint32(trailer[:]); got != expected {
		return nil, &ChecksumMismatchError{Stored: got, Computed: expected}
	}

	for _, rec := range recs {
		if err := dst.Add(ctx, rec); err != nil {
			return nil, fmt.Errorf("persistence: add %s: %w", rec.Key, err)
		}
	}

	info.Objects = objects
	info.Records = len(recs)
	info.Bytes = cr.n
	return info, nil
}

func decodeRecords(ctx context.Context, r *crcReader, h *FileHeader, codec spatialobject.Codec) ([]index.Record, int, error) {
	n := h.RecordCount
	if n > math.MaxInt32 {
		return nil, 0, fmt.Errorf("%w: %d records", ErrCorrupt, n)
	}
	recs := make([]index.Record, 0, min(n, 1<<16))
	objects := make(map[int64]spatialobject.SpatialObject, min(h.ObjectCount, 1<<16))
	var obj []byte
	for i := range n {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		length, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, 0, corrupt(err)
		}
		prefix, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, 0, corrupt(err)
		}
		if length > space.MaxZBits {
			return nil, 0, fmt.Errorf("%w: z-value length %d", ErrCorrupt, length)
		}
		z, err := space.NewZ(prefix, int(length))
		if err != nil {
			return nil, 0, corrupt(err)
		}
		soid, err := binary.ReadVarint(r)
		if err != nil {
			return nil, 0, corrupt(err)
		}
		flag, err := r.ReadByte()
		if err != nil {
			return nil, 0, corrupt(err)
		}

		key := index.Key{Z: z, SOID: soid}
		switch flag {
		case 0:
			if _, ok := objects[soid]; !ok {
				return nil, 0, fmt.Errorf("%w: %s refers to an unknown object", ErrCorrupt, key)
			}
		case 1:
			if _, ok := objects[soid]; ok {
				return nil, 0, fmt.Errorf("%w: object %d stored twice", ErrCorrupt, soid)
			}
			size, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, 0, corrupt(err)
			}
			if size > maxStringLen {
				return nil, 0, fmt.Errorf("%w: object of %d bytes", ErrCorrupt, size)
			}
			if uint64(cap(obj)) < size {
				obj = make([]byte, size)
			}
			obj = obj[:size]
			if _, err := io.ReadFull(r, obj); err != nil {
				return nil, 0, corrupt(err)
			}
			so, err := codec.Unmarshal(obj)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, key, err)
			}
			objects[soid] = so
		default:
			return nil, 0, fmt.Errorf("%w: record flag %d", ErrCorrupt, flag)
		}
		recs = append(recs, index.Record{Key: key, Object: objects[soid]})
	}
	if uint64(len(objects)) != h.ObjectCount {
		return nil, 0, fmt.Errorf("%w: %d objects, header says %d", ErrCorrupt, len(objects), h.ObjectCount)
	}
	return recs, len(objects), nil
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func readString(r *crcReader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string of %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func appendSpace(dst []byte, s *space.Space) []byte {
	for d := range s.Dimensions() {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(s.Lo(d)))
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(s.Hi(d)))
		dst = binary.AppendUvarint(dst, uint64(s.Bits(d)))
	}
	for _, d := range s.Interleave() {
		dst = binary.AppendUvarint(dst, uint64(d))
	}
	return dst
}

func readSpace(r *crcReader, dims int) (*space.Space, error) {
	if dims == 0 || dims > space.MaxDimensions {
		return nil, fmt.Errorf("%d dimensions", dims)
	}
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	bits := make([]int, dims)
	var buf [16]byte
	total := 0
	for d := range dims {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		lo[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[0:]))
		hi[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
		b, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		if b > space.MaxZBits {
			return nil, fmt.Errorf("%d bits in dimension %d", b, d)
		}
		bits[d] = int(b)
		total += int(b)
	}
	if total > space.MaxZBits {
		return nil, fmt.Errorf("%d total bits", total)
	}
	interleave := make([]int, total)
	for i := range interleave {
		d, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		if d >= uint64(dims) {
			return nil, fmt.Errorf("interleave names dimension %d", d)
		}
		interleave[i] = int(d)
	}
	return space.New(lo, hi, bits, space.WithInterleave(interleave))
}

func corrupt(err error) error {
	if errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCorrupt, unexpected(err))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
