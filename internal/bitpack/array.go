package bitpack

import "fmt"

// Array is a growable packed buffer.
//
// It is not safe for concurrent mutation.
type Array struct {
	width uint8
	n     uint64
	buf   []byte
}

// NewArray returns an empty array with room for capacity elements.
func NewArray(width uint8, capacity uint64) (*Array, error) {
	if !ValidWidth(width) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	return &Array{
		width: width,
		buf:   make([]byte, 0, PackedLen(capacity, width)),
	}, nil
}

// Width returns the element width in bits.
func (a *Array) Width() uint8 { return a.width }

// Len returns the number of elements.
func (a *Array) Len() uint64 { return a.n }

// Bytes returns the packed contents. The slice aliases the array.
func (a *Array) Bytes() []byte { return a.buf }

// Reset empties the array, keeping its allocation.
func (a *Array) Reset() {
	a.buf = a.buf[:0]
	a.n = 0
}

func (a *Array) grow(n uint64) {
	need := PackedLen(n, a.width)
	if uint64(cap(a.buf)) < need {
		nb := make([]byte, len(a.buf), need+need/2)
		copy(nb, a.buf)
		a.buf = nb
	}
	old := len(a.buf)
	a.buf = a.buf[:need]
	clear(a.buf[old:])
	if n > a.n {
		a.n = n
	}
}

// Set stores count values at element offset, growing the array if needed.
func (a *Array) Set(offset uint64, values []byte, count int) error {
	if count < 0 || count > len(values) {
		return fmt.Errorf("bitpack: count %d outside values of length %d", count, len(values))
	}
	values = values[:count]
	if err := Check(values, a.width); err != nil {
		return err
	}
	if end := offset + uint64(count); end > a.n {
		a.grow(end)
	}
	Pack(a.buf, offset, a.width, values)
	return nil
}

// Append adds values to the end of the array.
func (a *Array) Append(values []byte) error {
	return a.Set(a.n, values, len(values))
}

// Get returns element index.
func (a *Array) Get(index uint64) byte {
	if index >= a.n {
		panic(fmt.Sprintf("bitpack: index %d out of range [0,%d)", index, a.n))
	}
	return Get(a.buf, index, a.width)
}

// GetRange copies count elements starting at offset into dst.
func (a *Array) GetRange(dst []byte, offset uint64, count int) error {
	if count < 0 || count > len(dst) {
		return fmt.Errorf("bitpack: destination of length %d too small for %d elements", len(dst), count)
	}
	if offset+uint64(count) > a.n {
		return fmt.Errorf("bitpack: range [%d,%d) out of bounds [0,%d)", offset, offset+uint64(count), a.n)
	}
	Unpack(dst[:count], a.buf, offset, a.width)
	return nil
}

// AppendPacked appends count elements that are already packed at the same
// width in src, without decoding them when the array is byte aligned.
func (a *Array) AppendPacked(src []byte, count uint64) error {
	if PackedLen(count, a.width) > uint64(len(src)) {
		return fmt.Errorf("bitpack: packed source of %d bytes too short for %d elements", len(src), count)
	}
	if count == 0 {
		return nil
	}
	if (a.n*uint64(a.width))&7 == 0 {
		nb := PackedLen(count, a.width)
		a.buf = append(a.buf, src[:nb]...)
		if tail := uint((count * uint64(a.width)) & 7); tail != 0 {
			a.buf[len(a.buf)-1] &= byte(1<<tail - 1)
		}
		a.n += count
		return nil
	}
	start := a.n
	a.grow(a.n + count)
	for i := uint64(0); i < count; i++ {
		Set(a.buf, start+i, a.width, Get(src, i, a.width))
	}
	return nil
}
