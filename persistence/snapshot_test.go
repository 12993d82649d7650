package persistence

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/zspatial/index"
	"github.com/hupe1980/zspatial/index/sortedarray"
	"github.com/hupe1980/zspatial/index/tree"
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
	"github.com/hupe1980/zspatial/testutil"
)

func records(t *testing.T, idx index.Index) []index.Record {
	t.Helper()
	ctx := context.Background()
	c, err := idx.Cursor(ctx)
	require.NoError(t, err)
	defer c.Close()

	var recs []index.Record
	for {
		rec, ok, err := c.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return recs
		}
		recs = append(recs, rec)
	}
}

func newFilledIndex(t *testing.T) (*space.Space, *tree.Index) {
	t.Helper()
	s := testutil.Space2D(1024, 10)
	rng := testutil.NewRNG(3)
	objs := rng.Boxes(200, 1, 0, 1024, 120)
	objs = append(objs, rng.Points(50, 1000, 0, 1024)...)

	idx := tree.New()
	require.NoError(t, testutil.Fill(context.Background(), s, idx, 4, objs...))
	return s, idx
}

func snapshot(t *testing.T, idx index.Index, optFns ...Option) ([]byte, *Info) {
	t.Helper()
	var buf bytes.Buffer
	info, err := Save(context.Background(), &buf, idx, optFns...)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), info.Bytes)
	return buf.Bytes(), info
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, idx := newFilledIndex(t)
	want := records(t, idx)

	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			data, saved := snapshot(t, idx, WithCompression(c), WithBlockSize(256), WithSpace(s))
			assert.Equal(t, len(want), saved.Records)
			assert.Equal(t, 250, saved.Objects)
			assert.Equal(t, c, saved.Compression)
			assert.Equal(t, "binary", saved.Codec)

			dst := sortedarray.New()
			loaded, err := Load(context.Background(), bytes.NewReader(data), dst)
			require.NoError(t, err)

			assert.Equal(t, saved.Records, loaded.Records)
			assert.Equal(t, saved.Objects, loaded.Objects)
			assert.Equal(t, saved.Bytes, loaded.Bytes)
			assert.Equal(t, c, loaded.Compression)
			require.NotNil(t, loaded.Space)
			assert.True(t, s.Equal(loaded.Space))
			assert.Equal(t, want, records(t, dst))
		})
	}
}

func TestSaveLoad_SharedObjects(t *testing.T) {
	_, idx := newFilledIndex(t)
	data, _ := snapshot(t, idx)

	dst := tree.New()
	_, err := Load(context.Background(), bytes.NewReader(data), dst)
	require.NoError(t, err)

	// Records of one object share the decoded instance.
	byID := make(map[int64]spatialobject.SpatialObject)
	for _, rec := range records(t, dst) {
		if obj, ok := byID[rec.Key.SOID]; ok {
			assert.Same(t, obj, rec.Object)
			continue
		}
		byID[rec.Key.SOID] = rec.Object
		assert.Equal(t, rec.Key.SOID, rec.Object.ID())
	}
}

func TestSaveLoad_Empty(t *testing.T) {
	data, info := snapshot(t, tree.New())
	assert.Equal(t, 0, info.Records)
	assert.Nil(t, info.Space)

	dst := tree.New()
	loaded, err := Load(context.Background(), bytes.NewReader(data), dst)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Records)
	assert.Nil(t, loaded.Space)
	assert.Equal(t, 0, dst.Len())
}

func TestSaveLoad_RateLimited(t *testing.T) {
	_, idx := newFilledIndex(t)
	rc := resource.NewController(resource.Config{BytesPerSecond: 64 << 20})

	var buf bytes.Buffer
	info, err := Save(context.Background(), &buf, idx, WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, info.Bytes, rc.Stats().Bytes)

	dst := tree.New()
	_, err = Load(context.Background(), &buf, dst, WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, 2*info.Bytes, rc.Stats().Bytes)
	assert.Equal(t, idx.Len(), dst.Len())
}

func TestLoad_Corruption(t *testing.T) {
	_, idx := newFilledIndex(t)
	data, _ := snapshot(t, idx, WithCompression(CompressionNone))

	load := func(data []byte) (*tree.Index, error) {
		dst := tree.New()
		_, err := Load(context.Background(), bytes.NewReader(data), dst)
		return dst, err
	}

	t.Run("Body", func(t *testing.T) {
		bad := bytes.Clone(data)
		// Last body byte: before the end-of-stream block and the trailer.
		bad[len(bad)-4-blockHeaderSize-1] ^= 0xFF
		dst, err := load(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Equal(t, 0, dst.Len())
	})

	t.Run("Trailer", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xFF
		dst, err := load(bad)
		assert.True(t, IsChecksumMismatch(err))
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Equal(t, 0, dst.Len())
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := load(data[:len(data)-10])
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("Magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		copy(bad, "VEC0")
		_, err := load(bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("Version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint32(bad[4:], Version+1)
		_, err := load(bad)
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("Compression", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[8] = 9
		_, err := load(bad)
		assert.ErrorIs(t, err, ErrInvalidCompression)
	})

	t.Run("Header", func(t *testing.T) {
		_, err := load(data[:10])
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

type renamedCodec struct {
	spatialobject.Codec
}

func (renamedCodec) Name() string { return "renamed" }

func TestLoad_CodecMismatch(t *testing.T) {
	_, idx := newFilledIndex(t)
	data, info := snapshot(t, idx, WithCodec(renamedCodec{spatialobject.Binary}))
	assert.Equal(t, "renamed", info.Codec)

	_, err := Load(context.Background(), bytes.NewReader(data), tree.New())
	assert.ErrorIs(t, err, ErrCodecMismatch)

	dst := tree.New()
	_, err = Load(context.Background(), bytes.NewReader(data), dst, WithCodec(renamedCodec{spatialobject.Binary}))
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), dst.Len())
}

func TestLoad_DuplicateKey(t *testing.T) {
	_, idx := newFilledIndex(t)
	data, _ := snapshot(t, idx)

	dst := tree.New()
	_, err := Load(context.Background(), bytes.NewReader(data), dst)
	require.NoError(t, err)

	_, err = Load(context.Background(), bytes.NewReader(data), dst)
	assert.ErrorIs(t, err, index.ErrDuplicateKey)
}

func TestSave_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Compression", func(t *testing.T) {
		_, err := Save(ctx, io.Discard, tree.New(), WithCompression(CompressionType(7)))
		assert.ErrorIs(t, err, ErrInvalidCompression)
	})

	t.Run("MissingObject", func(t *testing.T) {
		idx := sortedarray.New()
		require.NoError(t, idx.Add(ctx, index.Record{Key: index.Key{Z: space.MustZ(1, 1), SOID: 1}}))
		_, err := Save(ctx, io.Discard, idx)
		assert.ErrorIs(t, err, ErrMissingObject)
	})

	t.Run("Store", func(t *testing.T) {
		_, idx := newFilledIndex(t)
		_, err := Save(ctx, io.Discard, testutil.NewFaultyIndex(idx, 10))
		assert.ErrorIs(t, err, testutil.ErrInjected)
	})

	t.Run("Canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, idx := newFilledIndex(t)
		_, err := Save(canceled, io.Discard, idx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
