package seqstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/hupe1980/seqstore/internal/cache"
	"github.com/hupe1980/seqstore/internal/compress"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/header"
	"github.com/hupe1980/seqstore/internal/layout"
	"github.com/hupe1980/seqstore/internal/resource"
)

func displayPath(prefix string) string {
	if prefix == "" {
		return "."
	}
	return prefix
}

// storeLayout is the validated metadata of a store: its header and the
// lookups built from its pointer tables.
type storeLayout struct {
	prefix string
	hdr    *header.Header
	typ    alphabet.Type
	lookup *layout.Lookup
	names  *layout.Lookup // nil without names
}

// loadLayout reads and cross-checks INDEX, every pointer table and LOOKUP.
func loadLayout(ctx context.Context, store blobstore.BlobStore, prefix string, rc *resource.Controller) (*storeLayout, error) {
	hdr, err := header.Load(ctx, store, layout.Join(prefix, layout.IndexFile))
	if err != nil {
		return nil, err
	}
	typ, err := checkHeader(layout.Join(prefix, layout.IndexFile), hdr)
	if err != nil {
		return nil, err
	}
	sl := &storeLayout{prefix: prefix, hdr: hdr, typ: typ}

	tables, err := readTables(ctx, store, prefix, int(hdr.Chunks), layout.PointerFile, rc)
	if err != nil {
		return nil, err
	}
	if sl.lookup, err = layout.NewLookup(displayPath(prefix), tables); err != nil {
		return nil, err
	}
	if err := checkCounts(displayPath(prefix), hdr, sl.lookup); err != nil {
		return nil, err
	}

	summary, err := readBlob(ctx, store, layout.Join(prefix, layout.LookupFile))
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if err := sl.lookup.CheckSummary(layout.Join(prefix, layout.LookupFile), summary); err != nil {
			return nil, err
		}
	}

	if hdr.HasNames() {
		tables, err := readTables(ctx, store, prefix, int(hdr.NameChunks), layout.NamePointerFile, rc)
		if err != nil {
			return nil, err
		}
		if sl.names, err = layout.NewNameLookup(displayPath(prefix), tables); err != nil {
			return nil, err
		}
		if got := sl.names.Count(); uint64(got) != hdr.Count {
			return nil, errs.Corruptf(displayPath(prefix), "name tables hold %d names for %d sequences", got, hdr.Count)
		}
	}
	return sl, nil
}

func checkHeader(path string, hdr *header.Header) (alphabet.Type, error) {
	typ := alphabet.Type(hdr.SequenceType)
	switch {
	case !typ.Valid():
		return 0, errs.Corruptf(path, "unknown sequence type %d", hdr.SequenceType)
	case hdr.DataWidth != typ.Width():
		return 0, errs.Corruptf(path, "data width %d does not match %s", hdr.DataWidth, typ)
	case hdr.HasQuality() && hdr.QualityWidth != alphabet.QualityWidth:
		return 0, errs.Corruptf(path, "quality width %d, expected %d", hdr.QualityWidth, alphabet.QualityWidth)
	case !compress.Type(hdr.NameCompression).Valid():
		return 0, errs.Corruptf(path, "unknown name compression %d", hdr.NameCompression)
	case len(hdr.ResidueCounts) != typ.Size():
		return 0, errs.Corruptf(path, "residue histogram has %d bins, expected %d", len(hdr.ResidueCounts), typ.Size())
	case hdr.HasQuality() && len(hdr.QualityCounts) != alphabet.QualitySize:
		return 0, errs.Corruptf(path, "quality histogram has %d bins, expected %d", len(hdr.QualityCounts), alphabet.QualitySize)
	}
	return typ, nil
}

func checkCounts(path string, hdr *header.Header, l *layout.Lookup) error {
	if got := l.Count(); uint64(got) != hdr.Count {
		return errs.Corruptf(path, "pointer tables hold %d sequences, header declares %d", got, hdr.Count)
	}
	if got := l.TotalLength(); got != hdr.TotalLength {
		return errs.Corruptf(path, "pointer tables hold %d elements, header declares %d", got, hdr.TotalLength)
	}
	return nil
}

// readTables reads and decodes n pointer tables in parallel.
func readTables(ctx context.Context, store blobstore.BlobStore, prefix string, n int, name func(int) string, rc *resource.Controller) ([]*layout.PointerTable, error) {
	tables := make([]*layout.PointerTable, n)
	g, gctx := rc.Group(ctx)
	for c := range tables {
		g.Go(func() error {
			path := layout.Join(prefix, name(c))
			data, err := readBlob(gctx, store, path)
			if errors.Is(err, blobstore.ErrNotFound) {
				return errs.Corruptf(path, "pointer table is missing")
			}
			if err != nil {
				return err
			}
			tables[c], err = layout.DecodeTable(path, data)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// readBlob returns a private copy of a whole blob.
func readBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if _, ok := b.(blobstore.Mappable); ok {
		data = bytes.Clone(data)
	}
	return data, nil
}

// storeFiles is the immutable state of an opened store shared by a reader
// and its copies. The last release closes the chunk blobs.
type storeFiles struct {
	*storeLayout

	ctx   context.Context
	store blobstore.BlobStore

	data    []io.ReaderAt // nil for streaming readers
	qual    []io.ReaderAt
	closers []io.Closer

	nameCache cache.BlockCache
	refs      atomic.Int32
}

func openFiles(ctx context.Context, store blobstore.BlobStore, prefix string, o *options, chunks bool) (*storeFiles, error) {
	rc := o.controller()
	sl, err := loadLayout(ctx, store, prefix, rc)
	if err != nil {
		return nil, err
	}
	f := &storeFiles{
		storeLayout: sl,
		ctx:         ctx,
		store:       store,
		nameCache:   o.nameCache(rc),
	}
	f.refs.Store(1)
	if !chunks {
		return f, nil
	}

	n := sl.lookup.Chunks()
	f.data = make([]io.ReaderAt, n)
	dataClosers := make([]io.Closer, n)
	var qualClosers []io.Closer
	if sl.hdr.HasQuality() {
		f.qual = make([]io.ReaderAt, n)
		qualClosers = make([]io.Closer, n)
	}

	// Blobs may keep the context they were opened with for later reads, so
	// they get ctx rather than the group context cancelled by Wait.
	g, _ := rc.Group(ctx)
	for c := 0; c < n; c++ {
		elements := sl.lookup.Table(c).Elements
		g.Go(func() error {
			var err error
			f.data[c], dataClosers[c], err = openChunk(ctx, store, layout.Join(prefix, layout.DataFile(c)), elements, sl.hdr.DataWidth)
			return err
		})
		if f.qual != nil {
			g.Go(func() error {
				var err error
				f.qual[c], qualClosers[c], err = openChunk(ctx, store, layout.Join(prefix, layout.QualityFile(c)), elements, sl.hdr.QualityWidth)
				return err
			})
		}
	}
	err = g.Wait()
	for _, cl := range append(dataClosers, qualClosers...) {
		if cl != nil {
			f.closers = append(f.closers, cl)
		}
	}
	if err != nil {
		_ = f.closeAll()
		return nil, err
	}
	return f, nil
}

// openChunk opens a packed chunk and checks its size against the pointer
// table.
func openChunk(ctx context.Context, store blobstore.BlobStore, path string, elements uint64, width uint8) (io.ReaderAt, io.Closer, error) {
	b, err := store.Open(ctx, path)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, errs.Corruptf(path, "chunk is missing")
	}
	if err != nil {
		return nil, nil, err
	}
	if want := int64(bitpack.PackedLen(elements, width)); b.Size() != want {
		_ = b.Close()
		return nil, nil, errs.Corruptf(path, "chunk is %d bytes, pointer table implies %d", b.Size(), want)
	}
	if a, ok := b.(blobstore.Advisable); ok {
		_ = a.Advise(blobstore.AccessRandom)
	}
	if m, ok := b.(blobstore.Mappable); ok {
		if data, err := m.Bytes(); err == nil {
			return bytes.NewReader(data), b, nil
		}
	}
	return b, b, nil
}

func (f *storeFiles) acquire() *storeFiles {
	f.refs.Add(1)
	return f
}

func (f *storeFiles) release() error {
	if f.refs.Add(-1) != 0 {
		return nil
	}
	return f.closeAll()
}

func (f *storeFiles) closeAll() error {
	var errList []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	f.closers = nil
	if f.nameCache != nil {
		f.nameCache.Purge()
	}
	return errors.Join(errList...)
}

// name returns the name of global sequence id.
func (f *storeFiles) name(id int64) (string, error) {
	if f.names == nil {
		return "", errs.State("store has no names")
	}
	c := f.names.Chunk(id)
	data, err := f.nameChunk(c)
	if err != nil {
		return "", err
	}
	off := f.names.Start(id) - f.names.ChunkBase(c)
	return string(data[off : off+f.names.Length(id)]), nil
}

func (f *storeFiles) nameChunk(c int) ([]byte, error) {
	path := layout.Join(f.prefix, layout.NameFile(c))
	key := cache.Key{Kind: cache.KindNames, Path: path}
	if f.nameCache != nil {
		if data, ok := f.nameCache.Get(key); ok {
			return data, nil
		}
	}
	stored, err := readBlob(f.ctx, f.store, path)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, errs.Corruptf(path, "name chunk is missing")
	}
	if err != nil {
		return nil, err
	}
	data, err := compress.Decompress(stored, compress.Type(f.hdr.NameCompression), f.names.Table(c).Elements)
	if err != nil {
		return nil, errs.Corrupt(path, "undecodable name chunk", err)
	}
	if f.nameCache != nil {
		f.nameCache.Set(key, data)
	}
	return data, nil
}
