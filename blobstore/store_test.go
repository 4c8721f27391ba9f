package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/seqstore/internal/cache"
	"github.com/hupe1980/seqstore/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]BlobStore {
	return map[string]BlobStore{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	}
}

func TestBlobStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Open(ctx, "INDEX")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "INDEX", []byte("header")))

			w, err := store.Create(ctx, "left/data-000000.bin")
			require.NoError(t, err)
			_, err = w.Write([]byte{0x01, 0x02})
			require.NoError(t, err)
			_, err = w.Write([]byte{0x03, 0x04, 0x05})
			require.NoError(t, err)
			require.NoError(t, w.Sync())
			require.NoError(t, w.Close())

			b, err := store.Open(ctx, "left/data-000000.bin")
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, int64(5), b.Size())

			buf := make([]byte, 2)
			n, err := b.ReadAt(buf, 3)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, []byte{0x04, 0x05}, buf)

			rc, err := b.ReadRange(ctx, 1, 10)
			require.NoError(t, err)
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, []byte{0x02, 0x03, 0x04, 0x05}, got)

			all, err := ReadAll(b)
			require.NoError(t, err)
			assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05}, all)

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"INDEX", "left/data-000000.bin"}, names)

			names, err = store.List(ctx, "left/")
			require.NoError(t, err)
			assert.Equal(t, []string{"left/data-000000.bin"}, names)

			require.NoError(t, store.Delete(ctx, "INDEX"))
			require.NoError(t, store.Delete(ctx, "INDEX"))
			_, err = store.Open(ctx, "INDEX")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLocalStore_MappableAndAdvise(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	require.NoError(t, s.Put(ctx, "ptr-000000.bin", []byte("SPTR")))

	b, err := s.Open(ctx, "ptr-000000.bin")
	require.NoError(t, err)
	defer b.Close()

	m, ok := b.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("SPTR"), data)

	a, ok := b.(Advisable)
	require.True(t, ok)
	assert.NoError(t, a.Advise(AccessRandom))
}

func TestLocalStore_PutFailureLeavesNoBlob(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("INDEX", fs.Fault{FailAfterBytes: -1, FailOnRename: true})
	s := NewLocalStore(root, WithFileSystem(ffs))

	err := s.Put(ctx, "INDEX", []byte("header"))
	assert.ErrorIs(t, err, fs.ErrInjected)

	_, err = os.Stat(filepath.Join(root, "INDEX"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names, "temporary files are not listed")
}

func TestBlobStore_Abort(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			w, err := store.Create(ctx, "qual-000003.bin")
			require.NoError(t, err)
			_, err = w.Write([]byte{0x3f, 0x00})
			require.NoError(t, err)
			require.NoError(t, Abort(w))

			_, err = store.Open(ctx, "qual-000003.bin")
			assert.ErrorIs(t, err, ErrNotFound)
			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestMemoryStore_Mutate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "data-000000.bin", []byte{0x00}))

	assert.True(t, s.Mutate("data-000000.bin", func(b []byte) []byte {
		b[0] ^= 0xFF
		return b
	}))
	assert.False(t, s.Mutate("missing", func(b []byte) []byte { return b }))

	b, err := s.Open(ctx, "data-000000.bin")
	require.NoError(t, err)
	all, err := ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, all)
}

// countingStore counts ReadRange calls reaching the inner store.
type countingStore struct {
	BlobStore
	reads atomic.Int64
}

type countingBlob struct {
	Blob
	reads *atomic.Int64
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, reads: &s.reads}, nil
}

func (b *countingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	b.reads.Add(1)
	return b.Blob.ReadRange(ctx, off, length)
}

func TestCachingStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{BlobStore: NewMemoryStore()}
	payload := bytes.Repeat([]byte("ACGTN"), 100) // 500 bytes
	require.NoError(t, inner.Put(ctx, "data-000000.bin", payload))

	s := NewCachingStore(inner, cache.NewLRU(1<<20, nil), 64)
	b, err := s.Open(ctx, "data-000000.bin")
	require.NoError(t, err)
	defer b.Close()

	buf := make([]byte, 100)
	n, err := b.ReadAt(buf, 30)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, payload[30:130], buf)
	assert.Equal(t, int64(1), inner.reads.Load(), "one coalesced run")

	// Fully cached now.
	n, err = b.ReadAt(buf[:50], 64)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, payload[64:114], buf[:50])
	assert.Equal(t, int64(1), inner.reads.Load())

	// Tail read past the end.
	n, err = b.ReadAt(buf, 450)
	assert.Equal(t, 50, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, payload[450:], buf[:50])

	all, err := ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, payload, all)

	// Put invalidates.
	require.NoError(t, s.Put(ctx, "data-000000.bin", []byte("TTTT")))
	b2, err := s.Open(ctx, "data-000000.bin")
	require.NoError(t, err)
	all, err = ReadAll(b2)
	require.NoError(t, err)
	assert.Equal(t, []byte("TTTT"), all)
}
