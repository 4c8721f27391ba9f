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

// seqStream decodes one kind of chunk (data or quality) strictly forward,
// holding at most one chunk open.
type seqStream struct {
	ctx    context.Context
	store  blobstore.BlobStore
	prefix string
	file   func(int) string
	width  uint8
	lookup *layout.Lookup

	chunk int
	blob  blobstore.Blob
	rc    io.ReadCloser
	r     *stream.Reader
}

func (s *seqStream) open(chunk int) error {
	if err := s.close(); err != nil {
		return err
	}
	path := layout.Join(s.prefix, s.file(chunk))
	b, err := s.store.Open(s.ctx, path)
	if errors.Is(err, blobstore.ErrNotFound) {
		return errs.Corruptf(path, "chunk is missing")
	}
	if err != nil {
		return err
	}
	elements := s.lookup.Table(chunk).Elements
	size := int64(bitpack.PackedLen(elements, s.width))
	if b.Size() != size {
		_ = b.Close()
		return errs.Corruptf(path, "chunk is %d bytes, pointer table implies %d", b.Size(), size)
	}
	if a, ok := b.(blobstore.Advisable); ok {
		_ = a.Advise(blobstore.AccessSequential)
	}
	rc, err := b.ReadRange(s.ctx, 0, size)
	if err != nil {
		_ = b.Close()
		return fmt.Errorf("read %s: %w", path, err)
	}
	r, err := stream.NewReader(rc, elements, s.width)
	if err != nil {
		_ = rc.Close()
		_ = b.Close()
		return err
	}
	s.chunk, s.blob, s.rc, s.r = chunk, b, rc, r
	return nil
}

func (s *seqStream) close() error {
	if s.blob == nil {
		return nil
	}
	err := errors.Join(s.rc.Close(), s.blob.Close())
	s.blob, s.rc, s.r = nil, nil, nil
	s.chunk = -1
	return err
}

// read decodes n elements starting at global element offset, which must not
// precede anything read before.
func (s *seqStream) read(dst []byte, offset uint64, n int) error {
	for i := 0; i < n; {
		chunk, local := s.lookup.Locate(offset)
		if s.r == nil || chunk != s.chunk {
			if err := s.open(chunk); err != nil {
				return err
			}
		}
		if pos := s.r.Position(); local > pos {
			if err := s.r.Skip(local - pos); err != nil {
				return err
			}
		} else if local < pos {
			return errs.State("stream already passed element %d of chunk %d", local, chunk)
		}
		k := int(min(uint64(n-i), s.lookup.Table(chunk).Elements-local))
		if _, err := s.r.ReadInto(dst, i, k); err != nil {
			path := layout.Join(s.prefix, s.file(chunk))
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

// StreamReader decodes a store sequentially without random access, opening
// one chunk at a time through ranged reads. It suits remote stores scanned
// once.
//
// The data and the quality of a positioned sequence can each be read once;
// a repeated read fails with ErrState.
type StreamReader struct {
	view
	data seqStream
	qual seqStream

	readData bool
	readQual bool
	err      error
}

// OpenStream opens the store at the root of store for streaming.
func OpenStream(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*StreamReader, error) {
	o := applyOptions(optFns)
	f, err := openFiles(ctx, store, "", &o, false)
	if err != nil {
		return nil, err
	}
	v, err := newView(f, &o)
	if err != nil {
		_ = f.release()
		return nil, err
	}
	r := &StreamReader{
		view: v,
		data: seqStream{
			ctx: ctx, store: store, prefix: f.prefix, file: layout.DataFile,
			width: f.hdr.DataWidth, lookup: f.lookup, chunk: -1,
		},
	}
	if f.hdr.HasQuality() {
		r.qual = seqStream{
			ctx: ctx, store: store, prefix: f.prefix, file: layout.QualityFile,
			width: f.hdr.QualityWidth, lookup: f.lookup, chunk: -1,
		}
	}
	return r, nil
}

// Advance moves to the next sequence.
func (r *StreamReader) Advance() bool {
	if r.err != nil {
		return false
	}
	r.readData, r.readQual = false, false
	return r.view.Advance()
}

// Reset rewinds to the unpositioned state. The next read reopens chunks
// from the start.
func (r *StreamReader) Reset() {
	r.view.Reset()
	r.readData, r.readQual = false, false
	if err := errors.Join(r.data.close(), r.qual.close()); err != nil && r.err == nil {
		r.err = err
	}
}

func (r *StreamReader) readOnce(s *seqStream, done *bool, what string, dst []byte) (int, error) {
	id, err := r.current()
	if err != nil {
		return 0, err
	}
	if *done {
		return 0, errs.State("%s of sequence %d already read: streaming readers do not re-read", what, id)
	}
	n := r.length(id)
	if len(dst) < n {
		return 0, errs.Invalid("destination holds %d elements, %d needed", len(dst), n)
	}
	*done = true
	err = s.read(dst, r.files.lookup.Start(r.global(id)), n)
	r.metrics.RecordRead(n, err)
	if err != nil {
		r.err = err
		return 0, err
	}
	return n, nil
}

// ReadCurrent decodes the current sequence into dst. It may be called once
// per position.
func (r *StreamReader) ReadCurrent(dst []byte) (int, error) {
	return r.readOnce(&r.data, &r.readData, "data", dst)
}

// ReadCurrentQuality decodes the quality values of the current sequence. It
// may be called once per position.
func (r *StreamReader) ReadCurrentQuality(dst []byte) (int, error) {
	if !r.HasQuality() {
		return 0, errs.State("store has no quality data")
	}
	return r.readOnce(&r.qual, &r.readQual, "quality", dst)
}

// Err returns the I/O error that ended iteration.
func (r *StreamReader) Err() error { return r.err }

// Close releases open chunks.
func (r *StreamReader) Close() error {
	err := errors.Join(r.data.close(), r.qual.close())
	return errors.Join(err, r.close())
}
