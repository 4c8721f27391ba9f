package header

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/errs"
)

// Save writes h to name. Stores make Put atomic, so a reader never observes
// a partially written header.
func Save(ctx context.Context, store blobstore.BlobStore, name string, h *Header) error {
	data, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Load reads the header stored at name.
//
// A missing header yields errs.ErrNotStore: the location either never held a
// store or its write was interrupted before the header was written.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (*Header, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s is missing", errs.ErrNotStore, name)
		}
		return nil, err
	}
	defer b.Close()

	data := make([]byte, b.Size())
	if _, err := b.ReadAt(data, 0); err != nil && !(errors.Is(err, io.EOF) && len(data) == 0) {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Decode(name, data)
}
