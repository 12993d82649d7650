package blobstore

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-memory BlobStore, mainly for tests.
// Stored blobs are immutable; Open hands out the stored slice without
// copying.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) publish(name string, data []byte) {
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
}

// Open opens a blob for reading.
func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return memoryBlob(data), nil
}

// Create returns a writer that publishes the blob on Close.
func (m *MemoryStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{store: m, name: name}, nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.publish(name, bytes.Clone(data))
	return nil
}

// Delete removes a blob.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// List returns the sorted names starting with prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type memoryBlob []byte

func (b memoryBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	if n := copy(p, b[off:]); n < len(p) {
		return n, io.EOF
	}
	return len(p), nil
}

func (b memoryBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off < 0 || off >= int64(len(b)) {
		return nil, io.EOF
	}
	end := min(off+length, int64(len(b)))
	return io.NopCloser(bytes.NewReader(b[off:end])), nil
}

func (b memoryBlob) Size() int64            { return int64(len(b)) }
func (b memoryBlob) Bytes() ([]byte, error) { return b, nil }
func (memoryBlob) Close() error             { return nil }

type memoryWriter struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Sync() error { return nil }

// Close publishes the written bytes.
func (w *memoryWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.store.publish(w.name, w.buf.Bytes())
	return nil
}

// Abort discards the written bytes.
func (w *memoryWriter) Abort() error {
	w.done = true
	w.buf = bytes.Buffer{}
	return nil
}
