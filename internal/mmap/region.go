package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// Advice tells the kernel in which order a region will be paged in.
type Advice uint8

const (
	Normal Advice = iota
	Sequential
	Random
)

var (
	// ErrUnmapped is returned by reads on a closed Region.
	ErrUnmapped = errors.New("mmap: region unmapped")
	// ErrTooLarge is returned for files that do not fit the address space.
	ErrTooLarge = errors.New("mmap: file too large")
)

// Region is the read-only mapping of one whole file.
type Region struct {
	buf    []byte
	gone   atomic.Bool
	unmapf func([]byte) error
}

// Map maps the file at path. An empty file yields an empty Region that owns
// no mapping.
func Map(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	n := st.Size()
	if n == 0 {
		return &Region{}, nil
	}
	if int64(int(n)) != n {
		return nil, ErrTooLarge
	}

	buf, unmapf, err := mapFile(f, int(n))
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: err}
	}
	return &Region{buf: buf, unmapf: unmapf}, nil
}

// Len is the mapped length in bytes. It stays valid after Close.
func (r *Region) Len() int { return len(r.buf) }

// Bytes returns the mapped file, or nil once the region is closed.
func (r *Region) Bytes() []byte {
	if r.gone.Load() {
		return nil
	}
	return r.buf
}

// Advise hints the access order. Errors from the kernel are ignored when the
// hint cannot apply to the region.
func (r *Region) Advise(a Advice) error {
	if r.gone.Load() {
		return ErrUnmapped
	}
	if len(r.buf) == 0 {
		return nil
	}
	return advise(r.buf, a)
}

// ReadAt copies from the mapping at off.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	if r.gone.Load() {
		return 0, ErrUnmapped
	}
	if off < 0 {
		return 0, &os.PathError{Op: "readat", Path: "mmap", Err: os.ErrInvalid}
	}
	if off >= int64(len(r.buf)) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close releases the mapping. Later calls are no-ops.
func (r *Region) Close() error {
	if r.gone.Swap(true) || r.unmapf == nil {
		return nil
	}
	return r.unmapf(r.buf)
}
