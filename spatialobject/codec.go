package spatialobject

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Codec encodes spatial objects for persistence.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Append encodes obj and appends it to dst.
	Append(dst []byte, obj SpatialObject) ([]byte, error)
	// Unmarshal decodes one object.
	Unmarshal(data []byte) (SpatialObject, error)
	// Name identifies the codec in persisted headers.
	Name() string
}

// Type tags of the binary codec. Persisted bytes depend on them.
const (
	tagBox        byte = 1
	tagPoint      byte = 2
	tagLineString byte = 3
)

var errTruncated = errors.New("spatialobject: truncated encoding")

// Binary is the compact binary codec for Box, Point and LineString.
//
// Layout: tag byte, zig-zag varint id, uvarint coordinate count, then
// little-endian float64 coordinates.
var Binary Codec = binaryCodec{}

type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

func (binaryCodec) Append(dst []byte, obj SpatialObject) ([]byte, error) {
	switch o := obj.(type) {
	case *Box:
		dst = appendHeader(dst, tagBox, o.id, 2*len(o.lo))
		dst = appendFloats(dst, o.lo)
		return appendFloats(dst, o.hi), nil
	case *Point:
		dst = appendHeader(dst, tagPoint, o.id, len(o.coords))
		return appendFloats(dst, o.coords), nil
	case *LineString:
		dst = appendHeader(dst, tagLineString, o.id, 2*len(o.points))
		for _, p := range o.points {
			dst = appendFloats(dst, p[:])
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, obj)
	}
}

func (binaryCodec) Unmarshal(data []byte) (SpatialObject, error) {
	if len(data) == 0 {
		return nil, errTruncated
	}
	tag := data[0]
	data = data[1:]
	id, n := binary.Varint(data)
	if n <= 0 {
		return nil, errTruncated
	}
	data = data[n:]
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, errTruncated
	}
	data = data[n:]
	if count > uint64(len(data)/8) {
		return nil, errTruncated
	}
	coords := make([]float64, count)
	for i := range coords {
		coords[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}

	switch tag {
	case tagBox:
		if count%2 != 0 {
			return nil, fmt.Errorf("%w: box with %d coordinates", ErrInvalidGeometry, count)
		}
		half := count / 2
		b, err := NewBox(id, coords[:half], coords[half:])
		if err != nil {
			return nil, err
		}
		return b, nil
	case tagPoint:
		p, err := NewPoint(id, coords...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case tagLineString:
		if count%2 != 0 {
			return nil, fmt.Errorf("%w: line string with %d coordinates", ErrInvalidGeometry, count)
		}
		points := make([][2]float64, count/2)
		for i := range points {
			points[i] = [2]float64{coords[2*i], coords[2*i+1]}
		}
		l, err := NewLineString(id, points)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownType, tag)
	}
}

func appendHeader(dst []byte, tag byte, id int64, count int) []byte {
	dst = append(dst, tag)
	dst = binary.AppendVarint(dst, id)
	return binary.AppendUvarint(dst, uint64(count))
}

func appendFloats(dst []byte, fs []float64) []byte {
	for _, f := range fs {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	}
	return dst
}
