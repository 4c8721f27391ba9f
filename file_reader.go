package seqstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/layout"
	"github.com/hupe1980/seqstore/internal/stream"
)

// chunkCursor decodes elements of one kind (data or quality) across chunks.
// It keeps a single stream reader and repoints it when the chunk changes.
type chunkCursor struct {
	srcs   []io.ReaderAt
	width  uint8
	prefix string
	file   func(int) string

	chunk int
	r     *stream.Reader
}

func (c *chunkCursor) use(chunk int, elements uint64) error {
	if c.r == nil {
		r, err := stream.NewSeekableReader(c.srcs[chunk], elements, c.width)
		if err != nil {
			return err
		}
		c.r, c.chunk = r, chunk
		return nil
	}
	if c.chunk != chunk {
		c.r.Reset(c.srcs[chunk], elements)
		c.chunk = chunk
	}
	return nil
}

// read decodes n elements starting at global element offset into dst[:n].
func (c *chunkCursor) read(l *layout.Lookup, dst []byte, offset uint64, n int) error {
	for i := 0; i < n; {
		chunk, local := l.Locate(offset)
		t := l.Table(chunk)
		if err := c.use(chunk, t.Elements); err != nil {
			return err
		}
		if err := c.r.Seek(local); err != nil {
			return err
		}
		k := int(min(uint64(n-i), t.Elements-local))
		if _, err := c.r.ReadInto(dst, i, k); err != nil {
			path := layout.Join(c.prefix, c.file(chunk))
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return errs.Corrupt(path, "chunk shorter than its pointer table", err)
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		i += k
		offset += uint64(k)
	}
	return nil
}

// appendPacked appends n elements starting at global element offset to dst
// as packed bytes, without decoding them.
func (c *chunkCursor) appendPacked(l *layout.Lookup, dst *bitpack.Array, offset, n uint64) error {
	w := uint64(c.width)
	for n > 0 {
		chunk, local := l.Locate(offset)
		k := min(n, l.Table(chunk).Elements-local)
		bit := local * w
		first := bit >> 3
		raw := make([]byte, (bit+k*w+7)>>3-first)
		if got, err := c.srcs[chunk].ReadAt(raw, int64(first)); got < len(raw) {
			path := layout.Join(c.prefix, c.file(chunk))
			if err == nil || errors.Is(err, io.EOF) {
				return errs.Corrupt(path, "chunk shorter than its pointer table", io.ErrUnexpectedEOF)
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if s := bit & 7; s != 0 {
			raw = bitpack.CopyBits(nil, raw, s, k*w)
		}
		if err := dst.AppendPacked(raw, k); err != nil {
			return err
		}
		offset += k
		n -= k
	}
	return nil
}

// randomReader is the random-access reader shared by FileReader and
// MemReader.
type randomReader struct {
	view
	data chunkCursor
	qual chunkCursor
}

func newRandomReader(f *storeFiles, o *options) (*randomReader, error) {
	v, err := newView(f, o)
	if err != nil {
		return nil, err
	}
	return withCursors(v), nil
}

func withCursors(v view) *randomReader {
	f := v.files
	r := &randomReader{
		view: v,
		data: chunkCursor{srcs: f.data, width: f.hdr.DataWidth, prefix: f.prefix, file: layout.DataFile},
	}
	if f.hdr.HasQuality() {
		r.qual = chunkCursor{srcs: f.qual, width: f.hdr.QualityWidth, prefix: f.prefix, file: layout.QualityFile}
	}
	return r
}

func (r *randomReader) copyReader() *randomReader {
	return withCursors(r.view.fork())
}

// readInto decodes [start, start+length) of sequence id through c.
func (r *randomReader) readInto(c *chunkCursor, id int64, dst []byte, start, length int) (int, error) {
	if len(dst) < length {
		return 0, errs.Invalid("destination holds %d elements, %d needed", len(dst), length)
	}
	off := r.files.lookup.Start(r.global(id)) + uint64(start)
	err := c.read(r.files.lookup, dst, off, length)
	r.metrics.RecordRead(length, err)
	if err != nil {
		return 0, err
	}
	return length, nil
}

// appendPacked appends the packed residues of sequence id to seq and, when
// qual is not nil, its packed qualities to qual.
func (r *randomReader) appendPacked(id int64, seq, qual *bitpack.Array) error {
	if err := r.checkID(id); err != nil {
		return err
	}
	off := r.files.lookup.Start(r.global(id))
	n := r.length(id)
	err := r.data.appendPacked(r.files.lookup, seq, off, uint64(n))
	if err == nil && qual != nil {
		if !r.HasQuality() {
			return errs.State("store has no quality data")
		}
		err = r.qual.appendPacked(r.files.lookup, qual, off, uint64(n))
	}
	r.metrics.RecordRead(n, err)
	return err
}

// Seek positions the reader on sequence id.
func (r *randomReader) Seek(id int64) error { return r.seek(id) }

// ReadCurrent decodes the current sequence into dst.
func (r *randomReader) ReadCurrent(dst []byte) (int, error) {
	id, err := r.current()
	if err != nil {
		return 0, err
	}
	return r.readInto(&r.data, id, dst, 0, r.length(id))
}

// Read decodes sequence id into dst.
func (r *randomReader) Read(id int64, dst []byte) (int, error) {
	if err := r.checkID(id); err != nil {
		return 0, err
	}
	return r.readInto(&r.data, id, dst, 0, r.length(id))
}

// ReadRange decodes residues [start, start+length) of sequence id into dst.
func (r *randomReader) ReadRange(id int64, dst []byte, start, length int) (int, error) {
	if err := r.checkID(id); err != nil {
		return 0, err
	}
	if n := r.length(id); start < 0 || length < 0 || start+length > n {
		return 0, errs.Invalid("range [%d,%d) outside sequence %d of length %d", start, start+length, id, n)
	}
	return r.readInto(&r.data, id, dst, start, length)
}

// ReadCurrentQuality decodes the quality values of the current sequence.
func (r *randomReader) ReadCurrentQuality(dst []byte) (int, error) {
	if !r.HasQuality() {
		return 0, errs.State("store has no quality data")
	}
	id, err := r.current()
	if err != nil {
		return 0, err
	}
	return r.readInto(&r.qual, id, dst, 0, r.length(id))
}

// ReadQuality decodes the quality values of sequence id.
func (r *randomReader) ReadQuality(id int64, dst []byte) (int, error) {
	if !r.HasQuality() {
		return 0, errs.State("store has no quality data")
	}
	if err := r.checkID(id); err != nil {
		return 0, err
	}
	return r.readInto(&r.qual, id, dst, 0, r.length(id))
}

// Err always returns nil: random-access readers do no I/O while advancing.
func (r *randomReader) Err() error { return nil }

// Close releases the reader. Chunk files stay open until the last copy is
// closed.
func (r *randomReader) Close() error { return r.close() }

// FileReader reads a finished store from any BlobStore.
//
// Chunk files are opened once and shared by all copies; blobs that expose
// their bytes (memory-mapped local files) are decoded in place.
type FileReader struct {
	*randomReader
}

// Open opens the store at the root of store.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*FileReader, error) {
	o := applyOptions(optFns)
	return openFileReader(ctx, store, "", &o)
}

func openFileReader(ctx context.Context, store blobstore.BlobStore, prefix string, o *options) (*FileReader, error) {
	f, err := openFiles(ctx, store, prefix, o, true)
	if err != nil {
		return nil, err
	}
	r, err := newRandomReader(f, o)
	if err != nil {
		_ = f.release()
		return nil, err
	}
	return &FileReader{randomReader: r}, nil
}

// Copy returns an independent reader with its own cursor over the same
// files. It does not duplicate data.
func (r *FileReader) Copy() *FileReader {
	return &FileReader{randomReader: r.copyReader()}
}

func (r *FileReader) fork() Source { return r.Copy() }
