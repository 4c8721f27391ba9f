package seqstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/layout"
	"github.com/hupe1980/seqstore/internal/resource"
)

// CopyStore mirrors the finished store (plain or paired) at the root of src
// into dst and returns the number of bytes copied. Blobs are streamed in
// parallel, throttled by the resource limits; INDEX blobs are written only
// after everything else, so an interrupted copy is not a store.
//
// A location without INDEX is not copied and fails with ErrNotStore.
func CopyStore(ctx context.Context, src, dst blobstore.BlobStore, optFns ...Option) (int64, error) {
	o := applyOptions(optFns)
	log := o.logger.WithStore("")
	start := time.Now()

	names, err := src.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list source: %w", err)
	}
	var indexes, rest []string
	for _, name := range names {
		if path.Base(name) == layout.IndexFile {
			indexes = append(indexes, name)
		} else {
			rest = append(rest, name)
		}
	}
	if len(indexes) == 0 {
		return 0, fmt.Errorf("%w: no %s in source", ErrNotStore, layout.IndexFile)
	}

	rc := o.controller()
	var copied atomic.Int64
	g, gctx := rc.Group(ctx)
	for _, name := range rest {
		g.Go(func() error {
			n, err := copyBlob(gctx, src, dst, name, rc)
			copied.Add(n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return copied.Load(), err
	}

	for _, name := range indexes {
		data, err := readBlob(ctx, src, name)
		if err != nil {
			return copied.Load(), err
		}
		if err := dst.Put(ctx, name, data); err != nil {
			return copied.Load(), fmt.Errorf("put %s: %w", name, err)
		}
		copied.Add(int64(len(data)))
	}

	log.InfoContext(ctx, "store copied",
		"blobs", len(names),
		"bytes", copied.Load(),
		"paired", slicesHasPrefix(indexes, layout.LeftArm+"/"),
		"duration", time.Since(start),
	)
	return copied.Load(), nil
}

func copyBlob(ctx context.Context, src, dst blobstore.BlobStore, name string, rc *resource.Controller) (int64, error) {
	b, err := src.Open(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", name, err)
	}
	defer b.Close()
	if a, ok := b.(blobstore.Advisable); ok {
		_ = a.Advise(blobstore.AccessSequential)
	}
	r, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	defer r.Close()

	w, err := dst.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(w, resource.ThrottleReader(ctx, r, rc))
	if err == nil {
		err = w.Sync()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", name, err)
	}
	return n, nil
}

func slicesHasPrefix(names []string, prefix string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}
