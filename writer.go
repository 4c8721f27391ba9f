package seqstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
)

// Writer writes one store in a single forward pass over a feed.
//
// The write order is data, pointer tables, names and quality, LOOKUP,
// NOTES.json and finally INDEX. A store without INDEX is incomplete and is
// rejected by readers and the verifier with ErrNotStore.
//
// A Writer is not reentrant; only one writer may target a location.
type Writer struct {
	store blobstore.BlobStore
	opts  options
}

// NewWriter returns a writer targeting the root of store.
func NewWriter(store blobstore.BlobStore, optFns ...Option) *Writer {
	return &Writer{store: store, opts: applyOptions(optFns)}
}

// Write consumes f and finishes the store. The caller closes f.
func (w *Writer) Write(ctx context.Context, f feed.Feed) (*Summary, error) {
	start := time.Now()
	s, err := writeFeed(ctx, w.store, "", f, &w.opts)
	if err != nil {
		w.opts.metricsCollector.RecordWrite(0, 0, time.Since(start), err)
		w.opts.logger.LogWrite(ctx, nil, err)
		return nil, err
	}
	w.opts.metricsCollector.RecordWrite(s.Count, s.TotalLength, s.Duration, nil)
	w.opts.logger.WithStore("").LogWrite(ctx, s, nil)
	return s, nil
}

func writeFeed(ctx context.Context, store blobstore.BlobStore, prefix string, f feed.Feed, o *options) (*Summary, error) {
	b, err := newBuilder(ctx, store, prefix, f.Type(), f.HasQualityData(), o)
	if err != nil {
		return nil, err
	}
	for f.Advance() {
		if err := b.add(f.Name(), f.SequenceData(), f.QualityData()); err != nil {
			b.abort()
			return nil, err
		}
	}
	if err := f.Err(); err != nil {
		b.abort()
		return nil, fmt.Errorf("feed: %w", err)
	}
	if _, err := b.finish(); err != nil {
		return nil, err
	}
	return b.summary(), nil
}
