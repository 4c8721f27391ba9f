package blobstore

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps every blob in a map. It backs MemWriter and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memBlob)}
}

func (m *MemoryStore) set(name string, data []byte) {
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
}

// Open returns a handle sharing the stored bytes. Stored bytes are never
// modified in place.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	b, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Create buffers writes and stores them on Close.
func (m *MemoryStore) Create(_ context.Context, name string) (WritableBlob, error) {
	return &memWriter{commit: func(data []byte) { m.set(name, data) }}, nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.set(name, bytes.Clone(data))
	return nil
}

// Delete removes name if present.
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

	names := slices.Sorted(maps.Keys(m.blobs))
	return slices.DeleteFunc(names, func(n string) bool { return !strings.HasPrefix(n, prefix) }), nil
}

// Mutate replaces the bytes of name with fn applied to a private copy.
// Corruption tests use it to damage a finished store.
func (m *MemoryStore) Mutate(name string, fn func([]byte) []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[name]
	if ok {
		m.blobs[name] = fn(bytes.Clone(b))
	}
	return ok
}

type memBlob []byte

func (b memBlob) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 && off >= 0 {
		return 0, nil
	}
	return bytes.NewReader(b).ReadAt(p, off)
}

func (memBlob) Close() error             { return nil }
func (b memBlob) Size() int64            { return int64(len(b)) }
func (b memBlob) Bytes() ([]byte, error) { return b, nil }

func (b memBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return sectionRange(b, b.Size(), off, length), nil
}

type memWriter struct {
	buf    bytes.Buffer
	commit func([]byte)
	closed bool
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Sync() error { return nil }

func (w *memWriter) Abort() error {
	w.closed = true
	return nil
}

func (w *memWriter) Close() error {
	if !w.closed {
		w.closed = true
		w.commit(bytes.Clone(w.buf.Bytes()))
	}
	return nil
}
