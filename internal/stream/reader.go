package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/seqstore/internal/bitpack"
)

// ErrNotSeekable is returned by Seek on a sequential Reader.
var ErrNotSeekable = errors.New("stream: reader is not seekable")

const defaultWindow = 64 * 1024

// Reader decodes a packed stream of count elements.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	ra    io.ReaderAt
	r     io.Reader
	width uint8
	count uint64
	total uint64 // packed bytes

	pos uint64

	win      []byte
	winStart uint64 // byte offset of win[0]
}

// NewSeekableReader returns a Reader over ra supporting Seek.
func NewSeekableReader(ra io.ReaderAt, count uint64, width uint8) (*Reader, error) {
	if !bitpack.ValidWidth(width) {
		return nil, fmt.Errorf("%w: %d", bitpack.ErrInvalidWidth, width)
	}
	return &Reader{
		ra:    ra,
		width: width,
		count: count,
		total: bitpack.PackedLen(count, width),
		win:   make([]byte, 0, windowFor(count, width)),
	}, nil
}

// NewReader returns a forward-only Reader over r.
func NewReader(r io.Reader, count uint64, width uint8) (*Reader, error) {
	if !bitpack.ValidWidth(width) {
		return nil, fmt.Errorf("%w: %d", bitpack.ErrInvalidWidth, width)
	}
	return &Reader{
		r:     r,
		width: width,
		count: count,
		total: bitpack.PackedLen(count, width),
		win:   make([]byte, 0, windowFor(count, width)),
	}, nil
}

func windowFor(count uint64, width uint8) int {
	n := bitpack.PackedLen(count, width)
	if n < 2 {
		n = 2
	}
	if n > defaultWindow {
		n = defaultWindow
	}
	return int(n)
}

// Reset points a seekable Reader at another source of count elements,
// keeping its window buffer.
func (r *Reader) Reset(ra io.ReaderAt, count uint64) {
	r.ra = ra
	r.r = nil
	r.count = count
	r.total = bitpack.PackedLen(count, r.width)
	r.pos = 0
	r.winStart = 0
	if want := windowFor(count, r.width); cap(r.win) < want {
		r.win = make([]byte, 0, want)
	}
	r.win = r.win[:0]
}

// Count returns the number of elements in the stream.
func (r *Reader) Count() uint64 { return r.count }

// Position returns the index of the next element to be read.
func (r *Reader) Position() uint64 { return r.pos }

// Seekable reports whether Seek is supported.
func (r *Reader) Seekable() bool { return r.ra != nil }

// Seek repositions the reader to element index. Seeking to Count is allowed
// and leaves the reader at the end.
func (r *Reader) Seek(index uint64) error {
	if r.ra == nil {
		return ErrNotSeekable
	}
	if index > r.count {
		return fmt.Errorf("stream: seek to %d beyond %d elements", index, r.count)
	}
	r.pos = index
	return nil
}

// Skip advances the reader by n elements. A sequential reader discards the
// skipped bytes lazily on the next read.
func (r *Reader) Skip(n uint64) error {
	if r.pos+n > r.count {
		return io.ErrUnexpectedEOF
	}
	r.pos += n
	return nil
}

// Read returns the next element, or io.EOF at the end of the stream.
func (r *Reader) Read() (byte, error) {
	if r.pos >= r.count {
		return 0, io.EOF
	}
	if err := r.fill(r.pos); err != nil {
		return 0, err
	}
	v := bitpack.GetAt(r.win, r.pos*uint64(r.width)-r.winStart*8, r.width)
	r.pos++
	return v, nil
}

// ReadInto decodes length elements into dst[off:off+length]. It returns
// io.ErrUnexpectedEOF if the stream ends first.
func (r *Reader) ReadInto(dst []byte, off, length int) (int, error) {
	if off < 0 || length < 0 || off+length > len(dst) {
		return 0, fmt.Errorf("stream: range [%d,%d) outside destination of length %d", off, off+length, len(dst))
	}
	if r.pos+uint64(length) > r.count {
		return 0, io.ErrUnexpectedEOF
	}
	width := uint64(r.width)
	for i := 0; i < length; {
		if err := r.fill(r.pos); err != nil {
			return i, err
		}
		// Decode everything the window holds before refilling.
		end := (r.winStart + uint64(len(r.win))) * 8
		base := r.winStart * 8
		for i < length && (r.pos+1)*width <= end {
			dst[off+i] = bitpack.GetAt(r.win, r.pos*width-base, r.width)
			r.pos++
			i++
		}
	}
	return length, nil
}

// fill makes sure the bytes holding element index are in the window.
func (r *Reader) fill(index uint64) error {
	width := uint64(r.width)
	first := index * width >> 3
	last := ((index+1)*width + 7) >> 3 // exclusive
	if first >= r.winStart && last <= r.winStart+uint64(len(r.win)) {
		return nil
	}
	if last > r.total {
		return io.ErrUnexpectedEOF
	}
	n := uint64(cap(r.win))
	if rem := r.total - first; rem < n {
		n = rem
	}
	if r.ra != nil {
		r.win = r.win[:n]
		got, err := r.ra.ReadAt(r.win, int64(first))
		if uint64(got) < n {
			r.win = r.win[:0]
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		r.winStart = first
		return nil
	}

	if first < r.winStart {
		return ErrNotSeekable
	}
	// Keep the bytes of the window that are still needed.
	keep := 0
	if end := r.winStart + uint64(len(r.win)); first < end {
		keep = copy(r.win[:cap(r.win)], r.win[first-r.winStart:])
	} else if first > end {
		if _, err := io.CopyN(io.Discard, r.r, int64(first-end)); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}
	r.win = r.win[:n]
	if _, err := io.ReadFull(r.r, r.win[keep:]); err != nil {
		r.win = r.win[:keep]
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	r.winStart = first
	return nil
}
