package seqstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/hupe1980/seqstore/internal/compress"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/hash"
	"github.com/hupe1980/seqstore/internal/header"
	"github.com/hupe1980/seqstore/internal/layout"
	"github.com/hupe1980/seqstore/internal/resource"
	"github.com/hupe1980/seqstore/internal/stream"
)

// VerifyReport is the outcome of a verification that could read the index
// header.
type VerifyReport struct {
	// Valid is true when no mismatch was found.
	Valid bool
	// Mismatches lists every discrepancy found.
	Mismatches []*CorruptError
	Count      uint64
	Chunks     int
	Duration   time.Duration
}

// Err returns nil for a valid report and otherwise an error matching
// ErrCorrupt that joins all mismatches.
func (r *VerifyReport) Err() error {
	if r.Valid {
		return nil
	}
	errList := make([]error, len(r.Mismatches))
	for i, m := range r.Mismatches {
		errList[i] = m
	}
	return errors.Join(errList...)
}

// Verify scans the store at the root of store once, recomputing checksums,
// byte and sequence counts, lengths and histograms, and compares them with
// the index header. Pointer tables and LOOKUP are validated structurally.
//
// A missing or unparsable header yields an error matching ErrNotStore, a
// header of a newer format ErrNewerVersion. Corruption is reported through
// the returned report. Any other error is an I/O failure.
//
// NOTES.json is not covered by any checksum.
func Verify(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*VerifyReport, error) {
	o := applyOptions(optFns)
	return verifyLogged(ctx, store, "", &o)
}

// VerifyPair verifies both arms of a paired store and their compatibility.
// The reports of both arms are merged.
func VerifyPair(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*VerifyReport, error) {
	o := applyOptions(optFns)
	left, err := verifyLogged(ctx, store, layout.LeftArm, &o)
	if err != nil {
		return nil, err
	}
	right, err := verifyLogged(ctx, store, layout.RightArm, &o)
	if err != nil {
		return nil, err
	}
	merged := &VerifyReport{
		Mismatches: append(left.Mismatches, right.Mismatches...),
		Count:      left.Count,
		Chunks:     left.Chunks + right.Chunks,
		Duration:   left.Duration + right.Duration,
	}
	merged.Valid = len(merged.Mismatches) == 0
	if merged.Valid {
		lh, _ := header.Load(ctx, store, layout.Join(layout.LeftArm, layout.IndexFile))
		rh, _ := header.Load(ctx, store, layout.Join(layout.RightArm, layout.IndexFile))
		if lh != nil && rh != nil {
			if !StoreID(lh.StoreID).Compatible(StoreID(rh.StoreID)) || lh.Count != rh.Count {
				return merged, fmt.Errorf("%w: left %s with %d sequences, right %s with %d", ErrIncompatiblePair,
					StoreID(lh.StoreID), lh.Count, StoreID(rh.StoreID), rh.Count)
			}
		}
	}
	return merged, nil
}

func verifyLogged(ctx context.Context, store blobstore.BlobStore, prefix string, o *options) (*VerifyReport, error) {
	start := time.Now()
	r, err := verify(ctx, store, prefix, o)
	if r != nil {
		r.Duration = time.Since(start)
	}
	o.metricsCollector.RecordVerify(time.Since(start), r != nil && r.Valid, err)
	o.logger.WithStore(prefix).LogVerify(ctx, r, err)
	return r, err
}

// mismatches collects corruption findings from concurrent checks.
type mismatches struct {
	mu   sync.Mutex
	list []*CorruptError
}

// add records err if it describes corruption and returns it otherwise.
func (m *mismatches) add(err error) error {
	var ce *CorruptError
	if !errors.As(err, &ce) {
		return err
	}
	m.mu.Lock()
	m.list = append(m.list, ce)
	m.mu.Unlock()
	return nil
}

func (m *mismatches) addf(path, format string, args ...any) {
	_ = m.add(errs.Corruptf(path, format, args...))
}

func verify(ctx context.Context, store blobstore.BlobStore, prefix string, o *options) (*VerifyReport, error) {
	indexPath := layout.Join(prefix, layout.IndexFile)
	hdr, err := header.Load(ctx, store, indexPath)
	if err == nil {
		_, err = checkHeader(indexPath, hdr)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrCorrupt):
		return nil, fmt.Errorf("%w: %w", ErrNotStore, err)
	default:
		return nil, err
	}

	v := &verifier{
		ctx:    ctx,
		store:  store,
		prefix: prefix,
		hdr:    hdr,
		typ:    alphabet.Type(hdr.SequenceType),
		rc:     o.controller(),
	}
	if err := v.structure(); err != nil {
		return nil, err
	}
	if err := v.scan(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(v.found.list, func(a, b *CorruptError) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return &VerifyReport{
		Valid:      len(v.found.list) == 0,
		Mismatches: v.found.list,
		Count:      hdr.Count,
		Chunks:     int(hdr.Chunks),
	}, nil
}

type verifier struct {
	ctx    context.Context
	store  blobstore.BlobStore
	prefix string
	hdr    *header.Header
	typ    alphabet.Type
	rc     *resource.Controller

	lookup *layout.Lookup // nil when the pointer tables are inconsistent
	names  *layout.Lookup
	found  mismatches
}

func (v *verifier) path(name string) string { return layout.Join(v.prefix, name) }

// tables decodes n pointer tables in parallel. Missing or undecodable tables
// are recorded and leave a nil entry.
func (v *verifier) tables(n int, name func(int) string) ([]*layout.PointerTable, bool, error) {
	tables := make([]*layout.PointerTable, n)
	g, gctx := v.rc.Group(v.ctx)
	for c := range tables {
		g.Go(func() error {
			path := v.path(name(c))
			data, err := readBlob(gctx, v.store, path)
			if errors.Is(err, blobstore.ErrNotFound) {
				v.found.addf(path, "pointer table is missing")
				return nil
			}
			if err != nil {
				return err
			}
			t, err := layout.DecodeTable(path, data)
			if err != nil {
				return v.found.add(err)
			}
			tables[c] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return tables, !slices.Contains(tables, nil), nil
}

// structure validates pointer tables, their lookups and LOOKUP.
func (v *verifier) structure() error {
	where := displayPath(v.prefix)
	tables, ok, err := v.tables(int(v.hdr.Chunks), layout.PointerFile)
	if err != nil {
		return err
	}
	if ok {
		l, err := layout.NewLookup(where, tables)
		if err == nil {
			err = checkCounts(where, v.hdr, l)
		}
		if err != nil {
			if err := v.found.add(err); err != nil {
				return err
			}
		} else {
			v.lookup = l
			v.lengths()
		}
	}

	summary, err := readBlob(v.ctx, v.store, v.path(layout.LookupFile))
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
	case err != nil:
		return err
	case v.lookup != nil:
		if err := v.found.add(v.lookup.CheckSummary(v.path(layout.LookupFile), summary)); err != nil {
			return err
		}
	}

	if !v.hdr.HasNames() {
		return nil
	}
	tables, ok, err = v.tables(int(v.hdr.NameChunks), layout.NamePointerFile)
	if err != nil || !ok {
		return err
	}
	l, err := layout.NewNameLookup(where, tables)
	if err == nil && uint64(l.Count()) != v.hdr.Count {
		err = errs.Corruptf(where, "name tables hold %d names for %d sequences", l.Count(), v.hdr.Count)
	}
	if err != nil {
		return v.found.add(err)
	}
	v.names = l
	return nil
}

// lengths compares the minimum and maximum sequence length.
func (v *verifier) lengths() {
	count := v.lookup.Count()
	var lo, hi uint64
	for id := int64(0); id < count; id++ {
		n := v.lookup.Length(id)
		if id == 0 || n < lo {
			lo = n
		}
		hi = max(hi, n)
	}
	if lo != v.hdr.MinLength || hi != v.hdr.MaxLength {
		v.found.addf(v.path(layout.IndexFile), "lengths span [%d,%d], header declares [%d,%d]", lo, hi, v.hdr.MinLength, v.hdr.MaxLength)
	}
}

// scan reads data, quality and names once, in parallel per kind.
func (v *verifier) scan() error {
	g, gctx := errgroup.WithContext(v.ctx)
	g.SetLimit(max(v.rc.Workers(), 3))
	g.Go(func() error {
		return v.scanPacked(gctx, "data", layout.DataFile, v.hdr.DataWidth, v.hdr.Data, v.hdr.ResidueCounts, v.typ.Size())
	})
	if v.hdr.HasQuality() {
		g.Go(func() error {
			return v.scanPacked(gctx, "quality", layout.QualityFile, v.hdr.QualityWidth, v.hdr.Quality, v.hdr.QualityCounts, alphabet.QualitySize)
		})
	}
	if v.hdr.HasNames() {
		g.Go(func() error { return v.scanNames(gctx) })
	}
	return g.Wait()
}

// accumulator adapts a checksum accumulator to io.Writer.
type accumulator struct{ acc hash.Accumulator }

func (a *accumulator) Write(p []byte) (int, error) {
	a.acc = a.acc.Add(p)
	return len(p), nil
}

func (v *verifier) open(ctx context.Context, path string) (blobstore.Blob, io.ReadCloser, error) {
	b, err := v.store.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if a, ok := b.(blobstore.Advisable); ok {
		_ = a.Advise(blobstore.AccessSequential)
	}
	r, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, r, nil
}

func (v *verifier) scanPacked(ctx context.Context, kind string, file func(int) string, width uint8, want header.Checksum, counts []uint64, size int) error {
	var sum accumulator
	hist := make([]uint64, size)
	buf := make([]byte, 64*1024)
	for c := 0; c < int(v.hdr.Chunks); c++ {
		path := v.path(file(c))
		b, rd, err := v.open(ctx, path)
		if errors.Is(err, blobstore.ErrNotFound) {
			v.found.addf(path, "%s chunk is missing", kind)
			continue
		}
		if err != nil {
			return err
		}
		tee := io.TeeReader(resource.ThrottleReader(ctx, rd, v.rc), &sum)
		err = v.decodeChunk(path, b.Size(), tee, width, hist, buf, c)
		if err == nil {
			// Bytes beyond the decoded elements still count.
			_, err = io.Copy(io.Discard, tee)
		}
		_ = rd.Close()
		_ = b.Close()
		if err != nil {
			return err
		}
	}

	if !sum.acc.Equal(want.Sum, want.Bytes) {
		v.found.addf(v.path(layout.IndexFile), "%s checksum %08x over %d bytes, header declares %08x over %d bytes",
			kind, sum.acc.Sum(), sum.acc.Bytes(), want.Sum, want.Bytes)
	}
	if v.lookup != nil && !slices.Equal(hist, counts) {
		v.found.addf(v.path(layout.IndexFile), "%s histogram does not match the header", kind)
	}
	return nil
}

// decodeChunk decodes chunk c from r, counting values into hist. Without a
// consistent lookup the element count is unknown and only the checksum is
// computed by the caller.
func (v *verifier) decodeChunk(path string, size int64, r io.Reader, width uint8, hist []uint64, buf []byte, c int) error {
	if v.lookup == nil {
		return nil
	}
	elements := v.lookup.Table(c).Elements
	if want := int64(bitpack.PackedLen(elements, width)); size != want {
		v.found.addf(path, "chunk is %d bytes, pointer table implies %d", size, want)
	}
	sr, err := stream.NewReader(r, elements, width)
	if err != nil {
		return err
	}
	invalid := false
	for left := elements; left > 0; {
		n := int(min(left, uint64(len(buf))))
		if _, err := sr.ReadInto(buf, 0, n); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				v.found.addf(path, "chunk truncated after %d of %d elements", elements-left, elements)
				return nil
			}
			return err
		}
		for _, x := range buf[:n] {
			if int(x) >= len(hist) {
				invalid = true
				continue
			}
			hist[x]++
		}
		left -= uint64(n)
	}
	if invalid {
		v.found.addf(path, "chunk holds values outside the alphabet")
	}
	return nil
}

func (v *verifier) scanNames(ctx context.Context) error {
	var sum hash.Accumulator
	for c := 0; c < int(v.hdr.NameChunks); c++ {
		path := v.path(layout.NameFile(c))
		stored, err := readBlob(ctx, v.store, path)
		if errors.Is(err, blobstore.ErrNotFound) {
			v.found.addf(path, "name chunk is missing")
			continue
		}
		if err != nil {
			return err
		}
		if err := v.rc.WaitIO(ctx, len(stored)); err != nil {
			return err
		}
		sum = sum.Add(stored)
		if v.names == nil {
			continue
		}
		if _, err := compress.Decompress(stored, compress.Type(v.hdr.NameCompression), v.names.Table(c).Elements); err != nil {
			v.found.add(errs.Corrupt(path, "undecodable name chunk", err))
		}
	}
	if !sum.Equal(v.hdr.Names.Sum, v.hdr.Names.Bytes) {
		v.found.addf(v.path(layout.IndexFile), "names checksum %08x over %d bytes, header declares %08x over %d bytes",
			sum.Sum(), sum.Bytes(), v.hdr.Names.Sum, v.hdr.Names.Bytes)
	}
	return nil
}
