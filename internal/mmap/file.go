package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned by a File used after Close.
	ErrClosed = errors.New("mmap: file is closed")
	// ErrTooLarge is returned for files that do not fit the address space.
	ErrTooLarge = errors.New("mmap: file too large")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// Advice tells the kernel how a File will be read.
type Advice uint8

const (
	AdviseNormal Advice = iota
	AdviseSequential
	AdviseRandom
	AdviseWillNeed
)

// File is a read-only memory-mapped file.
type File struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path. The descriptor is closed before Open returns;
// the mapping stays valid until Close. Empty files map to an empty File.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if int64(int(size)) != size {
		return nil, ErrTooLarge
	}
	if size == 0 {
		return &File{}, nil
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	return &File{data: data, unmap: unmap}, nil
}

// Close unmaps the file. Calling Close again is a no-op.
func (m *File) Close() error {
	if m.closed.Swap(true) || m.unmap == nil {
		return nil
	}
	return m.unmap(m.data)
}

// Bytes returns the mapped bytes, or nil after Close.
func (m *File) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Len returns the mapped size in bytes.
func (m *File) Len() int {
	return len(m.data)
}

// Advise passes an access hint to the kernel.
func (m *File) Advise(a Advice) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, a)
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case m.closed.Load():
		return 0, ErrClosed
	case off < 0:
		return 0, ErrInvalidOffset
	case off >= int64(len(m.data)):
		return 0, io.EOF
	}
	if n := copy(p, m.data[off:]); n < len(p) {
		return n, io.EOF
	}
	return len(p), nil
}
