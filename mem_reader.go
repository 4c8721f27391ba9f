package seqstore

import (
	"context"
	"time"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
)

// MemReader is a random-access reader over a store held entirely in memory.
// It is produced by MemWriter and uses the same packing and checksums as a
// store on disk.
type MemReader struct {
	*randomReader
	store *blobstore.MemoryStore
}

// Copy returns an independent reader sharing the in-memory buffers.
func (r *MemReader) Copy() *MemReader {
	return &MemReader{randomReader: r.copyReader(), store: r.store}
}

func (r *MemReader) fork() Source { return r.Copy() }

// Store returns the blobs backing the reader, e.g. to persist them with
// CopyStore.
func (r *MemReader) Store() blobstore.BlobStore { return r.store }

// MemWriter writes a store into memory and returns a reader over it.
type MemWriter struct {
	opts options
}

// NewMemWriter returns a MemWriter. It accepts the writer options.
func NewMemWriter(optFns ...Option) *MemWriter {
	return &MemWriter{opts: applyOptions(optFns)}
}

// Write consumes f and returns a reader over the result.
func (w *MemWriter) Write(ctx context.Context, f feed.Feed) (*MemReader, error) {
	store := blobstore.NewMemoryStore()
	start := time.Now()
	s, err := writeFeed(ctx, store, "", f, &w.opts)
	if err != nil {
		w.opts.metricsCollector.RecordWrite(0, 0, time.Since(start), err)
		return nil, err
	}
	w.opts.metricsCollector.RecordWrite(s.Count, s.TotalLength, s.Duration, nil)

	files, err := openFiles(ctx, store, "", &w.opts, true)
	if err != nil {
		return nil, err
	}
	r, err := newRandomReader(files, &w.opts)
	if err != nil {
		_ = files.release()
		return nil, err
	}
	return &MemReader{randomReader: r, store: store}, nil
}
