package layout

import (
	"encoding/binary"

	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/hash"
)

const (
	tableMagic      = 0x52545053 // "SPTR"
	tableHeaderSize = 4 + 1 + 3 + 8 + 4
	tableTrailer    = 4

	flagContinued = 1 << 0
	flagOpen      = 1 << 1
)

// PointerTable is the pointer table of one chunk.
type PointerTable struct {
	// Continued is set when the first entry belongs to a sequence that
	// started in an earlier chunk.
	Continued bool
	// Open is set when the last elements of the chunk belong to a sequence
	// that continues in the next chunk.
	Open bool
	// Elements is the number of elements stored in the chunk.
	Elements uint64
	// Entries are cumulative end offsets, local to the chunk.
	Entries []uint64
}

// PassThrough reports whether the chunk holds nothing but the middle of a
// single sequence.
func (t *PointerTable) PassThrough() bool {
	return t.Continued && t.Open && len(t.Entries) == 1 && t.Entries[0] == t.Elements
}

// Starts returns how many sequences begin in the chunk.
func (t *PointerTable) Starts() int64 {
	n := int64(len(t.Entries))
	if t.Continued {
		n--
	}
	if t.Open {
		n++
	}
	if t.PassThrough() {
		n--
	}
	return n
}

// boundary returns the local start offset of the i-th boundary, where
// boundary 0 is the chunk start and boundary i>0 is Entries[i-1].
func (t *PointerTable) boundary(i int) uint64 {
	if i == 0 {
		return 0
	}
	return t.Entries[i-1]
}

// MarshalBinary encodes the table with a trailing CRC32C.
func (t *PointerTable) MarshalBinary() ([]byte, error) {
	buf := make([]byte, tableHeaderSize, tableHeaderSize+8*len(t.Entries)+tableTrailer)
	binary.LittleEndian.PutUint32(buf[0:], tableMagic)
	var flags byte
	if t.Continued {
		flags |= flagContinued
	}
	if t.Open {
		flags |= flagOpen
	}
	buf[4] = flags
	binary.LittleEndian.PutUint64(buf[8:], t.Elements)
	binary.LittleEndian.PutUint32(buf[16:], uint32(len(t.Entries)))
	for _, e := range t.Entries {
		buf = binary.LittleEndian.AppendUint64(buf, e)
	}
	buf = binary.LittleEndian.AppendUint32(buf, hash.CRC32C(buf))
	return buf, nil
}

// DecodeTable decodes and validates a pointer table read from path.
func DecodeTable(path string, data []byte) (*PointerTable, error) {
	if len(data) < tableHeaderSize+tableTrailer {
		return nil, errs.Corruptf(path, "pointer table truncated to %d bytes", len(data))
	}
	body := data[:len(data)-tableTrailer]
	if want := binary.LittleEndian.Uint32(data[len(body):]); hash.CRC32C(body) != want {
		return nil, errs.Corruptf(path, "pointer table checksum mismatch")
	}
	if binary.LittleEndian.Uint32(body[0:]) != tableMagic {
		return nil, errs.Corruptf(path, "invalid pointer table magic")
	}
	flags := body[4]
	if flags&^(flagContinued|flagOpen) != 0 || body[5] != 0 || body[6] != 0 || body[7] != 0 {
		return nil, errs.Corruptf(path, "invalid pointer table flags")
	}
	t := &PointerTable{
		Continued: flags&flagContinued != 0,
		Open:      flags&flagOpen != 0,
		Elements:  binary.LittleEndian.Uint64(body[8:]),
	}
	n := binary.LittleEndian.Uint32(body[16:])
	if uint64(len(body)-tableHeaderSize) != uint64(n)*8 {
		return nil, errs.Corruptf(path, "pointer table declares %d entries in %d bytes", n, len(body)-tableHeaderSize)
	}
	t.Entries = make([]uint64, n)
	for i := range t.Entries {
		t.Entries[i] = binary.LittleEndian.Uint64(body[tableHeaderSize+8*i:])
	}
	if err := t.validate(path); err != nil {
		return nil, err
	}
	return t, nil
}

// validate checks the invariants that hold for a single table in isolation.
func (t *PointerTable) validate(path string) error {
	var prev uint64
	for i, e := range t.Entries {
		if e < prev {
			return errs.Corruptf(path, "pointer entry %d decreases (%d < %d)", i, e, prev)
		}
		if e > t.Elements {
			return errs.Corruptf(path, "pointer entry %d (%d) beyond chunk length %d", i, e, t.Elements)
		}
		prev = e
	}
	if t.Continued && len(t.Entries) == 0 {
		return errs.Corruptf(path, "continued chunk without continuation entry")
	}
	last := t.boundary(len(t.Entries))
	switch {
	case t.PassThrough():
	case t.Open && last >= t.Elements:
		return errs.Corruptf(path, "open chunk has no elements after its last entry")
	case !t.Open && last != t.Elements:
		return errs.Corruptf(path, "chunk has %d elements after its last entry", t.Elements-last)
	}
	return nil
}
