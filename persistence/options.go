package persistence

import (
	"github.com/hupe1980/zspatial/resource"
	"github.com/hupe1980/zspatial/space"
	"github.com/hupe1980/zspatial/spatialobject"
)

type options struct {
	compression  CompressionType
	blockSize    int
	codec        spatialobject.Codec
	space        *space.Space
	requireSpace bool
	rc           *resource.Controller
}

// Option configures Save and Load.
type Option func(*options)

// WithCompression sets the block compression used by Save. Load reads it
// from the header.
func WithCompression(c CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithBlockSize sets the uncompressed block size used by Save.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

// WithCodec sets the object codec. Save and Load must use the same one.
func WithCodec(c spatialobject.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithSpace records the space of the index in the snapshot.
func WithSpace(s *space.Space) Option {
	return func(o *options) {
		o.space = s
	}
}

// RequireSpace makes Load fail with ErrNoSpace, before adding any record,
// if the snapshot carries no space.
func RequireSpace() Option {
	return func(o *options) {
		o.requireSpace = true
	}
}

// WithResourceController throttles snapshot I/O by the controller's byte
// budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compression: CompressionZSTD,
		blockSize:   DefaultBlockSize,
		codec:       spatialobject.Binary,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.blockSize <= 0 {
		o.blockSize = DefaultBlockSize
	}
	o.blockSize = min(o.blockSize, MaxBlockSize)
	if o.codec == nil {
		o.codec = spatialobject.Binary
	}
	return o
}
