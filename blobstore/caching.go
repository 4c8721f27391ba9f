package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/seqstore/internal/cache"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the CachingStore block size when none is given.
const DefaultBlockSize = 64 << 10

// CachingStore adds a block cache in front of a slow store. Random access
// into a remote chunk fetches whole blocks, and runs of missing blocks are
// fetched concurrently.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a new CachingStore. blockSize defaults to
// DefaultBlockSize if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{inner: inner, cache: c, blockSize: blockSize}
}

// Open opens a blob whose reads go through the cache. ReadAt uses ctx.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		ctx:       ctx,
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.Key) bool {
		return key.Kind == cache.KindBlock && key.Path == name
	})
}

type cachingBlob struct {
	ctx       context.Context
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error { return b.inner.Close() }

func (b *cachingBlob) Size() int64 { return b.inner.Size() }

func (b *cachingBlob) key(blk int64) cache.Key {
	return cache.Key{Kind: cache.KindBlock, Path: b.name, Offset: uint64(blk)}
}

func (b *cachingBlob) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}
	want := p
	if rem := size - off; int64(len(want)) > rem {
		want = want[:rem]
	}

	first := off / b.blockSize
	last := (off + int64(len(want)) - 1) / b.blockSize
	blocks, err := b.blocks(first, last)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, data := range blocks {
		blkStart := (first + int64(i)) * b.blockSize
		from := max(blkStart, off)
		to := min(blkStart+int64(len(data)), off+int64(len(want)))
		if to <= from {
			break
		}
		n += copy(want[from-off:to-off], data[from-blkStart:])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// blocks returns blocks [first, last], fetching missing runs concurrently.
func (b *cachingBlob) blocks(first, last int64) ([][]byte, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]byte, last-first+1)
	type run struct{ start, count int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		if data, ok := b.cache.Get(b.key(blk)); ok {
			out[blk-first] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}

	g, ctx := errgroup.WithContext(b.ctx)
	g.SetLimit(16)
	for _, r := range missing {
		g.Go(func() error {
			start := r.start * b.blockSize
			length := min(r.count*b.blockSize, b.Size()-start)
			if length <= 0 {
				return nil
			}
			rc, err := b.inner.ReadRange(ctx, start, length)
			if err != nil {
				return err
			}
			defer rc.Close()
			buf := make([]byte, length)
			if _, err := io.ReadFull(rc, buf); err != nil {
				return err
			}
			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= length {
					break
				}
				hi := min(lo+b.blockSize, length)
				// Copy so a cached block does not pin the whole run.
				blk := append([]byte(nil), buf[lo:hi]...)
				b.cache.Set(b.key(r.start+i), blk)
				out[r.start+i-first] = blk
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *cachingBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return sectionRange(b, b.Size(), off, length), nil
}
