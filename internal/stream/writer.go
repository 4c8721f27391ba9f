package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/seqstore/internal/bitpack"
)

const defaultBufferSize = 64 * 1024

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("stream: closed")

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBufferSize sets the number of complete bytes buffered before they are
// written through.
func WithBufferSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// WithOnEmit registers a hook observing every byte run handed to the
// underlying writer, in order. The slice must not be retained.
func WithOnEmit(fn func(p []byte)) WriterOption {
	return func(w *Writer) {
		w.onEmit = fn
	}
}

// Writer packs elements of a fixed width onto an io.Writer.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	w       io.Writer
	width   uint8
	bufSize int
	onEmit  func([]byte)

	buf   []byte
	acc   uint32
	nbits uint

	count   uint64
	written uint64
	closed  bool
	err     error
}

// NewWriter returns a Writer of elements of the given width.
func NewWriter(w io.Writer, width uint8, opts ...WriterOption) (*Writer, error) {
	if !bitpack.ValidWidth(width) {
		return nil, fmt.Errorf("%w: %d", bitpack.ErrInvalidWidth, width)
	}
	sw := &Writer{
		w:       w,
		width:   width,
		bufSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(sw)
	}
	sw.buf = make([]byte, 0, sw.bufSize)
	return sw, nil
}

// Width returns the element width in bits.
func (w *Writer) Width() uint8 { return w.width }

// Count returns the number of elements written so far.
func (w *Writer) Count() uint64 { return w.count }

// Written returns the number of bytes handed to the underlying writer.
func (w *Writer) Written() uint64 { return w.written }

// Write appends values. Every value must fit in the width.
func (w *Writer) Write(values []byte) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := bitpack.Check(values, w.width); err != nil {
		return err
	}
	width := uint(w.width)
	for _, v := range values {
		w.acc |= uint32(v) << w.nbits
		w.nbits += width
		for w.nbits >= 8 {
			w.buf = append(w.buf, byte(w.acc))
			w.acc >>= 8
			w.nbits -= 8
		}
		if len(w.buf) >= w.bufSize {
			if err := w.emit(); err != nil {
				return err
			}
		}
	}
	w.count += uint64(len(values))
	return nil
}

// WritePacked appends count elements already packed at the same width in
// src. Elements are moved as whole bytes: when the stream is byte aligned
// the bytes are handed through unchanged, otherwise each byte is merged
// into the pending bits.
func (w *Writer) WritePacked(src []byte, count uint64) error {
	if err := w.usable(); err != nil {
		return err
	}
	if bitpack.PackedLen(count, w.width) > uint64(len(src)) {
		return fmt.Errorf("stream: packed source of %d bytes too short for %d elements", len(src), count)
	}
	bits := count * uint64(w.width)
	full := bits >> 3
	if w.nbits == 0 {
		if err := w.emit(); err != nil {
			return err
		}
		if full > 0 {
			if err := w.emitRaw(src[:full]); err != nil {
				return err
			}
		}
	} else {
		for _, x := range src[:full] {
			w.acc |= uint32(x) << w.nbits
			w.buf = append(w.buf, byte(w.acc))
			w.acc >>= 8
			if len(w.buf) >= w.bufSize {
				if err := w.emit(); err != nil {
					return err
				}
			}
		}
	}
	if tail := uint(bits & 7); tail != 0 {
		w.acc |= (uint32(src[full]) & (1<<tail - 1)) << w.nbits
		w.nbits += tail
		if w.nbits >= 8 {
			w.buf = append(w.buf, byte(w.acc))
			w.acc >>= 8
			w.nbits -= 8
		}
	}
	w.count += count
	return nil
}

// Flush writes all complete bytes. An incomplete trailing byte is kept and
// continued by the next Write.
func (w *Writer) Flush() error {
	if err := w.usable(); err != nil {
		return err
	}
	return w.emit()
}

// Close writes the remaining bytes, including a zero-padded trailing byte.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	if w.err == nil && w.nbits > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc = 0
		w.nbits = 0
	}
	if w.err == nil {
		w.err = w.emit()
	}
	w.closed = true
	return w.err
}

func (w *Writer) usable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return nil
}

func (w *Writer) emit() error {
	if len(w.buf) == 0 {
		return nil
	}
	err := w.emitRaw(w.buf)
	w.buf = w.buf[:0]
	return err
}

func (w *Writer) emitRaw(p []byte) error {
	n, err := w.w.Write(p)
	if n > 0 && w.onEmit != nil {
		w.onEmit(p[:n])
	}
	w.written += uint64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = err
	}
	return err
}
