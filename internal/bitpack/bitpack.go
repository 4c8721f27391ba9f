package bitpack

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxWidth is the widest supported element.
const MaxWidth = 8

var (
	// ErrValueOutOfRange is returned when a value does not fit in the width.
	ErrValueOutOfRange = errors.New("bitpack: value exceeds bit width")
	// ErrInvalidWidth is returned for widths outside [1, MaxWidth].
	ErrInvalidWidth = errors.New("bitpack: invalid bit width")
)

// Width returns ceil(log2(alphabetSize)), at least 1.
func Width(alphabetSize int) uint8 {
	if alphabetSize <= 2 {
		return 1
	}
	return uint8(bits.Len(uint(alphabetSize - 1)))
}

// ValidWidth reports whether w can be packed.
func ValidWidth(w uint8) bool {
	return w >= 1 && w <= MaxWidth
}

// PackedLen returns the number of bytes needed for count elements.
func PackedLen(count uint64, width uint8) uint64 {
	return (count*uint64(width) + 7) >> 3
}

// Capacity returns how many elements fit in n bytes.
func Capacity(n uint64, width uint8) uint64 {
	return n * 8 / uint64(width)
}

func mask(width uint8) uint16 {
	return 1<<width - 1
}

// Get returns element index of buf.
func Get(buf []byte, index uint64, width uint8) byte {
	return GetAt(buf, index*uint64(width), width)
}

// GetAt returns the width-bit value starting at bit offset bit of buf.
func GetAt(buf []byte, bit uint64, width uint8) byte {
	i := bit >> 3
	shift := uint(bit & 7)
	v := uint16(buf[i]) >> shift
	if shift+uint(width) > 8 {
		v |= uint16(buf[i+1]) << (8 - shift)
	}
	return byte(v & mask(width))
}

// Set stores v as element index of buf. Bits of v above width are ignored.
func Set(buf []byte, index uint64, width uint8, v byte) {
	bit := index * uint64(width)
	i := bit >> 3
	shift := uint(bit & 7)
	m := mask(width)
	x := uint16(v) & m
	buf[i] = buf[i]&^byte(m<<shift) | byte(x<<shift)
	if shift+uint(width) > 8 {
		rs := 8 - shift
		buf[i+1] = buf[i+1]&^byte(m>>rs) | byte(x>>rs)
	}
}

// Check returns ErrValueOutOfRange if any value does not fit in width.
func Check(values []byte, width uint8) error {
	if width >= 8 {
		return nil
	}
	limit := byte(mask(width))
	for i, v := range values {
		if v > limit {
			return fmt.Errorf("%w: value %d at position %d, width %d", ErrValueOutOfRange, v, i, width)
		}
	}
	return nil
}

// Pack writes values into buf starting at element offset.
func Pack(buf []byte, offset uint64, width uint8, values []byte) {
	if width == 8 {
		copy(buf[offset:], values)
		return
	}
	for i, v := range values {
		Set(buf, offset+uint64(i), width, v)
	}
}

// Unpack fills dst with the elements of src starting at element offset.
func Unpack(dst []byte, src []byte, offset uint64, width uint8) {
	if width == 8 {
		copy(dst, src[offset:])
		return
	}
	for i := range dst {
		dst[i] = Get(src, offset+uint64(i), width)
	}
}

// CopyBits appends the nbits bits of src starting at bit offset bit to dst,
// moved down so the first copied bit is bit 0 of the first appended byte.
// Bits of the last appended byte above nbits are unspecified.
func CopyBits(dst, src []byte, bit, nbits uint64) []byte {
	first := bit >> 3
	n := (nbits + 7) >> 3
	shift := uint(bit & 7)
	if shift == 0 {
		return append(dst, src[first:first+n]...)
	}
	for i := first; i < first+n; i++ {
		v := src[i] >> shift
		if i+1 < uint64(len(src)) {
			v |= src[i+1] << (8 - shift)
		}
		dst = append(dst, v)
	}
	return dst
}
