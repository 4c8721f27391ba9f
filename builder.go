package seqstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/codec"
	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/hupe1980/seqstore/internal/compress"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/hash"
	"github.com/hupe1980/seqstore/internal/header"
	"github.com/hupe1980/seqstore/internal/layout"
	"github.com/hupe1980/seqstore/internal/stream"
)

// builder performs the single forward write pass of one store.
//
// Chunk, pointer and checksum state is updated as records arrive; nothing
// written is read back. The index header is written last, so an interrupted
// pass leaves a location without INDEX.
type builder struct {
	ctx    context.Context
	store  blobstore.BlobStore
	prefix string
	opts   *options
	log    *Logger

	typ       alphabet.Type
	id        StoreID
	dataWidth uint8
	withQual  bool
	withNames bool

	chunker *layout.Chunker
	tables  []*layout.PointerTable

	data    chunkFile
	qual    chunkFile
	dataSum hash.Accumulator
	qualSum hash.Accumulator

	names      bytes.Buffer
	nameTable  layout.PointerTable
	nameSum    hash.Accumulator
	nameChunks int

	count    uint64
	total    uint64
	minLen   uint64
	maxLen   uint64
	residues []uint64
	quals    []uint64

	started time.Time
	done    bool
	err     error
}

// chunkFile is one open data or quality chunk.
type chunkFile struct {
	blob blobstore.WritableBlob
	w    *stream.Writer
}

func (f *chunkFile) close() error {
	if f.blob == nil {
		return nil
	}
	err := f.w.Close()
	if err == nil {
		err = f.blob.Sync()
	}
	if cerr := f.blob.Close(); err == nil {
		err = cerr
	}
	f.blob, f.w = nil, nil
	return err
}

// abort discards a chunk that is still being written.
func (f *chunkFile) abort() error {
	if f.blob == nil {
		return nil
	}
	err := blobstore.Abort(f.blob)
	f.blob, f.w = nil, nil
	return err
}

func newBuilder(ctx context.Context, store blobstore.BlobStore, prefix string, typ alphabet.Type, quality bool, o *options) (*builder, error) {
	if !typ.Valid() {
		return nil, errs.Invalid("unsupported sequence type %s", typ)
	}
	if !o.nameCompression.Valid() {
		return nil, errs.Invalid("unknown name compression %s", o.nameCompression)
	}
	b := &builder{
		ctx:       ctx,
		store:     store,
		prefix:    prefix,
		opts:      o,
		log:       o.logger.WithStore(prefix),
		typ:       typ,
		id:        o.storeID,
		dataWidth: typ.Width(),
		withQual:  quality && o.quality,
		withNames: o.names,
		minLen:    math.MaxUint64,
		residues:  make([]uint64, typ.Size()),
		started:   time.Now(),
	}
	if b.id.IsZero() {
		b.id = NewStoreID()
	}
	if o.arm != ArmNone {
		b.log = b.log.WithArm(o.arm)
	}
	width := b.dataWidth
	if b.withQual {
		b.quals = make([]uint64, alphabet.QualitySize)
		width = max(width, alphabet.QualityWidth)
	}
	capacity := o.maxChunkBytes * 8 / uint64(width)
	b.chunker = layout.NewChunker(max(capacity, 1))

	if err := b.openChunk(0); err != nil {
		b.abort()
		return nil, err
	}
	return b, nil
}

func (b *builder) path(name string) string {
	return layout.Join(b.prefix, name)
}

func (b *builder) openChunk(n int) error {
	var err error
	if b.data, err = b.createChunk(layout.DataFile(n), b.dataWidth, func(p []byte) {
		b.dataSum = b.dataSum.Add(p)
	}); err != nil {
		return err
	}
	if b.withQual {
		if b.qual, err = b.createChunk(layout.QualityFile(n), alphabet.QualityWidth, func(p []byte) {
			b.qualSum = b.qualSum.Add(p)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) createChunk(name string, width uint8, onEmit func([]byte)) (chunkFile, error) {
	blob, err := b.store.Create(b.ctx, b.path(name))
	if err != nil {
		return chunkFile{}, fmt.Errorf("create %s: %w", b.path(name), err)
	}
	w, err := stream.NewWriter(blob, width, stream.WithOnEmit(onEmit))
	if err != nil {
		_ = blob.Close()
		return chunkFile{}, err
	}
	return chunkFile{blob: blob, w: w}, nil
}

// closeChunk finishes chunk n: data, then its pointer table, then quality.
func (b *builder) closeChunk(n int, t *layout.PointerTable) error {
	if err := b.data.close(); err != nil {
		return fmt.Errorf("close %s: %w", b.path(layout.DataFile(n)), err)
	}
	raw, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	if err := b.store.Put(b.ctx, b.path(layout.PointerFile(n)), raw); err != nil {
		return fmt.Errorf("write %s: %w", b.path(layout.PointerFile(n)), err)
	}
	if err := b.qual.close(); err != nil {
		return fmt.Errorf("close %s: %w", b.path(layout.QualityFile(n)), err)
	}
	b.tables = append(b.tables, t)
	b.opts.metricsCollector.RecordChunk(n, t.Elements)
	b.log.LogChunk(b.ctx, n, t.Elements, t.Starts())
	return nil
}

func (b *builder) roll() error {
	n := b.chunker.Ordinal()
	if err := b.closeChunk(n, b.chunker.Roll()); err != nil {
		return err
	}
	return b.openChunk(n + 1)
}

func (b *builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return b.err
}

// add appends one record. seq holds residue codes, qual phred values.
func (b *builder) add(name string, seq, qual []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.done {
		return ErrClosed
	}
	if err := b.ctx.Err(); err != nil {
		return b.fail(err)
	}
	if err := b.check(seq, qual); err != nil {
		return b.fail(err)
	}

	b.chunker.BeginSequence()
	for rest, restQ := seq, qual; len(rest) > 0; {
		if b.chunker.Room() == 0 {
			if err := b.roll(); err != nil {
				return b.fail(err)
			}
		}
		k := min(b.chunker.Room(), uint64(len(rest)))
		if err := b.data.w.Write(rest[:k]); err != nil {
			return b.fail(fmt.Errorf("write %s: %w", b.path(layout.DataFile(b.chunker.Ordinal())), err))
		}
		if b.withQual {
			if err := b.qual.w.Write(restQ[:k]); err != nil {
				return b.fail(fmt.Errorf("write %s: %w", b.path(layout.QualityFile(b.chunker.Ordinal())), err))
			}
			restQ = restQ[k:]
		}
		b.chunker.Advance(k)
		rest = rest[k:]
	}
	b.chunker.EndSequence()

	for _, c := range seq {
		b.residues[c]++
	}
	if b.withQual {
		for _, q := range qual {
			b.quals[q]++
		}
	}
	return b.complete(name, uint64(len(seq)))
}

// addPacked appends one record whose residues and qualities are already
// packed at the store widths. The packed bytes go to the chunk streams
// without being re-encoded.
func (b *builder) addPacked(name string, seq, qual *bitpack.Array) error {
	if b.err != nil {
		return b.err
	}
	if b.done {
		return ErrClosed
	}
	if err := b.ctx.Err(); err != nil {
		return b.fail(err)
	}
	if err := b.checkPacked(seq, qual); err != nil {
		return b.fail(err)
	}

	n := seq.Len()
	b.chunker.BeginSequence()
	for pos := uint64(0); pos < n; {
		if b.chunker.Room() == 0 {
			if err := b.roll(); err != nil {
				return b.fail(err)
			}
		}
		k := min(b.chunker.Room(), n-pos)
		if err := writeSpan(b.data.w, seq, pos, k); err != nil {
			return b.fail(fmt.Errorf("write %s: %w", b.path(layout.DataFile(b.chunker.Ordinal())), err))
		}
		if b.withQual {
			if err := writeSpan(b.qual.w, qual, pos, k); err != nil {
				return b.fail(fmt.Errorf("write %s: %w", b.path(layout.QualityFile(b.chunker.Ordinal())), err))
			}
		}
		b.chunker.Advance(k)
		pos += k
	}
	b.chunker.EndSequence()

	for i := range n {
		b.residues[seq.Get(i)]++
	}
	if b.withQual {
		for i := range n {
			b.quals[qual.Get(i)]++
		}
	}
	return b.complete(name, n)
}

// writeSpan writes elements [pos, pos+k) of a to w.
func writeSpan(w *stream.Writer, a *bitpack.Array, pos, k uint64) error {
	width := uint64(a.Width())
	bit := pos * width
	src := a.Bytes()[bit>>3:]
	if s := bit & 7; s != 0 {
		src = bitpack.CopyBits(nil, src, s, k*width)
	}
	return w.WritePacked(src, k)
}

// complete records the name and length statistics of a written sequence.
func (b *builder) complete(name string, n uint64) error {
	if b.withNames {
		if err := b.addName(name); err != nil {
			return b.fail(err)
		}
	}
	b.count++
	b.total += n
	b.minLen = min(b.minLen, n)
	b.maxLen = max(b.maxLen, n)
	return nil
}

func (b *builder) check(seq, qual []byte) error {
	size := byte(b.typ.Size())
	for i, c := range seq {
		if c >= size {
			return errs.Invalid("sequence %d: residue code %d at %d outside %s alphabet", b.count, c, i, b.typ)
		}
	}
	if !b.withQual {
		return nil
	}
	if len(qual) != len(seq) {
		return errs.Invalid("sequence %d: %d qualities for %d residues", b.count, len(qual), len(seq))
	}
	for i, q := range qual {
		if q > alphabet.MaxQuality {
			return errs.Invalid("sequence %d: quality %d at %d above %d", b.count, q, i, alphabet.MaxQuality)
		}
	}
	return nil
}

func (b *builder) checkPacked(seq, qual *bitpack.Array) error {
	if seq.Width() != b.dataWidth {
		return errs.Invalid("sequence %d: packed width %d, store width %d", b.count, seq.Width(), b.dataWidth)
	}
	size := byte(b.typ.Size())
	for i := range seq.Len() {
		if c := seq.Get(i); c >= size {
			return errs.Invalid("sequence %d: residue code %d at %d outside %s alphabet", b.count, c, i, b.typ)
		}
	}
	if !b.withQual {
		return nil
	}
	switch {
	case qual == nil:
		return errs.Invalid("sequence %d: no qualities", b.count)
	case qual.Width() != alphabet.QualityWidth:
		return errs.Invalid("sequence %d: packed quality width %d", b.count, qual.Width())
	case qual.Len() != seq.Len():
		return errs.Invalid("sequence %d: %d qualities for %d residues", b.count, qual.Len(), seq.Len())
	}
	for i := range qual.Len() {
		if q := qual.Get(i); q > alphabet.MaxQuality {
			return errs.Invalid("sequence %d: quality %d at %d above %d", b.count, q, i, alphabet.MaxQuality)
		}
	}
	return nil
}

// addName appends a name to the current name chunk. Names never span
// chunks; a chunk is flushed before it would outgrow the bound.
func (b *builder) addName(name string) error {
	if len(b.nameTable.Entries) > 0 && uint64(b.names.Len()+len(name)) > b.opts.maxChunkBytes {
		if err := b.flushNames(); err != nil {
			return err
		}
	}
	b.names.WriteString(name)
	b.nameTable.Elements = uint64(b.names.Len())
	b.nameTable.Entries = append(b.nameTable.Entries, b.nameTable.Elements)
	return nil
}

func (b *builder) flushNames() error {
	n := b.nameChunks
	stored, err := compress.Compress(b.names.Bytes(), b.opts.nameCompression)
	if err != nil {
		return fmt.Errorf("compress %s: %w", b.path(layout.NameFile(n)), err)
	}
	if err := b.store.Put(b.ctx, b.path(layout.NameFile(n)), stored); err != nil {
		return fmt.Errorf("write %s: %w", b.path(layout.NameFile(n)), err)
	}
	b.nameSum = b.nameSum.Add(stored)

	raw, err := b.nameTable.MarshalBinary()
	if err != nil {
		return err
	}
	if err := b.store.Put(b.ctx, b.path(layout.NamePointerFile(n)), raw); err != nil {
		return fmt.Errorf("write %s: %w", b.path(layout.NamePointerFile(n)), err)
	}
	b.nameChunks++
	b.names.Reset()
	b.nameTable = layout.PointerTable{}
	return nil
}

// notes is the layout of NOTES.json.
type notes struct {
	StoreID    string            `json:"store_id"`
	Arm        string            `json:"arm,omitempty"`
	Type       string            `json:"type"`
	Notes      string            `json:"notes,omitempty"`
	Provenance map[string]string `json:"provenance,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// finish closes the last chunks and writes LOOKUP, NOTES.json and INDEX,
// in that order.
func (b *builder) finish() (*header.Header, error) {
	if b.err != nil {
		b.abort()
		return nil, b.err
	}
	if b.done {
		return nil, ErrClosed
	}
	h, err := b.finishFiles()
	if err != nil {
		b.err = err
		b.abort()
		return nil, err
	}
	b.done = true
	return h, nil
}

func (b *builder) finishFiles() (*header.Header, error) {
	n := b.chunker.Ordinal()
	if err := b.closeChunk(n, b.chunker.Finish()); err != nil {
		return nil, err
	}
	if b.withNames && (len(b.nameTable.Entries) > 0 || b.nameChunks == 0) {
		if err := b.flushNames(); err != nil {
			return nil, err
		}
	}

	lookup, err := layout.NewLookup(displayPath(b.prefix), b.tables)
	if err != nil {
		return nil, err
	}
	if uint64(lookup.Count()) != b.count {
		return nil, fmt.Errorf("pointer tables hold %d sequences, %d were written", lookup.Count(), b.count)
	}
	if err := b.store.Put(b.ctx, b.path(layout.LookupFile), lookup.MarshalLookup()); err != nil {
		return nil, fmt.Errorf("write %s: %w", b.path(layout.LookupFile), err)
	}

	now := time.Now().UTC()
	if b.opts.notes != "" || len(b.opts.provenance) > 0 {
		doc := notes{
			StoreID:    b.id.String(),
			Type:       b.typ.String(),
			Notes:      b.opts.notes,
			Provenance: b.opts.provenance,
			CreatedAt:  now,
		}
		if b.opts.arm != ArmNone {
			doc.Arm = b.opts.arm.String()
		}
		data, err := codec.Default.Marshal(doc)
		if err != nil {
			return nil, err
		}
		if err := b.store.Put(b.ctx, b.path(layout.NotesFile), data); err != nil {
			return nil, fmt.Errorf("write %s: %w", b.path(layout.NotesFile), err)
		}
	}

	h := &header.Header{
		Version:         header.CurrentVersion,
		SequenceType:    uint8(b.typ),
		DataWidth:       b.dataWidth,
		NameCompression: uint8(b.opts.nameCompression),
		Arm:             uint8(b.opts.arm),
		Chunks:          uint32(len(b.tables)),
		NameChunks:      uint32(b.nameChunks),
		MaxChunkBytes:   b.opts.maxChunkBytes,
		Count:           b.count,
		TotalLength:     b.total,
		MinLength:       b.minLen,
		MaxLength:       b.maxLen,
		Data:            header.FromAccumulator(b.dataSum),
		Names:           header.FromAccumulator(b.nameSum),
		StoreID:         b.id,
		CreatedAt:       now,
		ResidueCounts:   b.residues,
		Notes:           b.opts.notes,
	}
	if b.count == 0 {
		h.MinLength = 0
	}
	if b.withQual {
		h.Flags |= header.FlagQuality
		h.QualityWidth = alphabet.QualityWidth
		h.Quality = header.FromAccumulator(b.qualSum)
		h.QualityCounts = b.quals
	}
	if b.withNames {
		h.Flags |= header.FlagNames
	}
	if err := header.Save(b.ctx, b.store, b.path(layout.IndexFile), h); err != nil {
		return nil, fmt.Errorf("write %s: %w", b.path(layout.IndexFile), err)
	}
	return h, nil
}

// abort discards the open chunk files. Finished chunks stay behind without
// an index header.
func (b *builder) abort() {
	b.done = true
	err := errors.Join(b.data.abort(), b.qual.abort())
	if err != nil {
		b.log.WarnContext(b.ctx, "closing chunks of an aborted write", "error", err)
	}
}

func (b *builder) summary() *Summary {
	s := &Summary{
		StoreID:     b.id,
		Arm:         b.opts.arm,
		Count:       b.count,
		TotalLength: b.total,
		MaxLength:   b.maxLen,
		Chunks:      len(b.tables),
		NameChunks:  b.nameChunks,
		Duration:    time.Since(b.started),
	}
	if b.count > 0 {
		s.MinLength = b.minLen
	}
	return s
}
