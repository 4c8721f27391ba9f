package seqstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/codec"
	"github.com/hupe1980/seqstore/internal/compress"
	"github.com/hupe1980/seqstore/internal/header"
	"github.com/hupe1980/seqstore/internal/layout"
)

// StoreInfo summarizes a store from its index header and notes.
type StoreInfo struct {
	Version         uint32            `json:"version"`
	StoreID         StoreID           `json:"store_id"`
	Arm             string            `json:"arm,omitempty"`
	Type            string            `json:"type"`
	Quality         bool              `json:"quality"`
	Names           bool              `json:"names"`
	NameCompression string            `json:"name_compression,omitempty"`
	Count           uint64            `json:"count"`
	TotalLength     uint64            `json:"total_length"`
	MinLength       uint64            `json:"min_length"`
	MaxLength       uint64            `json:"max_length"`
	Chunks          uint32            `json:"chunks"`
	NameChunks      uint32            `json:"name_chunks"`
	MaxChunkBytes   uint64            `json:"max_chunk_bytes"`
	CreatedAt       time.Time         `json:"created_at"`
	Notes           string            `json:"notes,omitempty"`
	Provenance      map[string]string `json:"provenance,omitempty"`
	ResidueCounts   map[string]uint64 `json:"residue_counts,omitempty"`

	// Arms is set for a paired store; the other fields are then zero.
	Arms []*StoreInfo `json:"arms,omitempty"`
}

// Info reads the index header (and NOTES.json, if present) of the store at
// the root of store. For a paired store the arms are reported in Arms.
func Info(ctx context.Context, store blobstore.BlobStore) (*StoreInfo, error) {
	info, err := storeInfo(ctx, store, "")
	if !errors.Is(err, ErrNotStore) {
		return info, err
	}
	left, lerr := storeInfo(ctx, store, layout.LeftArm)
	if lerr != nil {
		return nil, err
	}
	right, rerr := storeInfo(ctx, store, layout.RightArm)
	if rerr != nil {
		return nil, rerr
	}
	return &StoreInfo{Arms: []*StoreInfo{left, right}}, nil
}

func storeInfo(ctx context.Context, store blobstore.BlobStore, prefix string) (*StoreInfo, error) {
	indexPath := layout.Join(prefix, layout.IndexFile)
	h, err := header.Load(ctx, store, indexPath)
	if err != nil {
		return nil, err
	}
	typ, err := checkHeader(indexPath, h)
	if err != nil {
		return nil, err
	}
	info := &StoreInfo{
		Version:       h.Version,
		StoreID:       StoreID(h.StoreID),
		Type:          typ.String(),
		Quality:       h.HasQuality(),
		Names:         h.HasNames(),
		Count:         h.Count,
		TotalLength:   h.TotalLength,
		MinLength:     h.MinLength,
		MaxLength:     h.MaxLength,
		Chunks:        h.Chunks,
		NameChunks:    h.NameChunks,
		MaxChunkBytes: h.MaxChunkBytes,
		CreatedAt:     h.CreatedAt,
		Notes:         h.Notes,
		ResidueCounts: residueMap(typ, h.ResidueCounts),
	}
	if arm := Arm(h.Arm); arm != ArmNone {
		info.Arm = arm.String()
	}
	if h.HasNames() {
		info.NameCompression = compress.Type(h.NameCompression).String()
	}

	data, err := readBlob(ctx, store, layout.Join(prefix, layout.NotesFile))
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		var doc notes
		if err := codec.Default.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", layout.Join(prefix, layout.NotesFile), err)
		}
		info.Provenance = doc.Provenance
	}
	return info, nil
}

func residueMap(typ alphabet.Type, counts []uint64) map[string]uint64 {
	letters := typ.Letters()
	m := make(map[string]uint64, len(counts))
	for code, n := range counts {
		if n > 0 && code < len(letters) {
			m[string(letters[code])] = n
		}
	}
	return m
}
