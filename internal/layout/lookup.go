package layout

import (
	"encoding/binary"
	"sort"

	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/hash"
)

// Lookup maps global sequence ids to chunks and element offsets.
//
// It is immutable and safe for concurrent use.
type Lookup struct {
	tables   []*PointerTable
	startSeq []int64  // len(tables)+1, startSeq[len] is the sequence count
	base     []uint64 // len(tables)+1, base[len] is the total length
}

// NewLookup validates the tables of a store as a whole and builds the lookup.
// path names the store in corruption errors.
func NewLookup(path string, tables []*PointerTable) (*Lookup, error) {
	return newLookup(path, tables, true)
}

// NewNameLookup builds the lookup of name chunks. Names never span chunks,
// so no chunk may be continued or open, and chunk sizes vary.
func NewNameLookup(path string, tables []*PointerTable) (*Lookup, error) {
	for c, t := range tables {
		if t.Continued || t.Open {
			return nil, errs.Corruptf(path, "name chunk %d is marked as spanning", c)
		}
	}
	return newLookup(path, tables, false)
}

func newLookup(path string, tables []*PointerTable, fixed bool) (*Lookup, error) {
	if len(tables) == 0 {
		return nil, errs.Corruptf(path, "store has no chunks")
	}
	l := &Lookup{
		tables:   tables,
		startSeq: make([]int64, len(tables)+1),
		base:     make([]uint64, len(tables)+1),
	}
	last := len(tables) - 1
	for c, t := range tables {
		switch {
		case c == 0 && t.Continued:
			return nil, errs.Corruptf(path, "first chunk is marked as a continuation")
		case c == last && t.Open:
			return nil, errs.Corruptf(path, "last chunk %d is marked open", c)
		case c < last && t.Open != tables[c+1].Continued:
			return nil, errs.Corruptf(path, "chunk %d open=%t disagrees with chunk %d continued=%t", c, t.Open, c+1, tables[c+1].Continued)
		case fixed && c < last && t.Elements == 0:
			return nil, errs.Corruptf(path, "chunk %d is empty but not last", c)
		case fixed && c > 0 && c < last && t.Elements != tables[0].Elements:
			return nil, errs.Corruptf(path, "chunk %d holds %d elements, expected %d", c, t.Elements, tables[0].Elements)
		case fixed && c > 0 && c == last && t.Elements > tables[0].Elements:
			return nil, errs.Corruptf(path, "last chunk holds %d elements, more than chunk capacity %d", t.Elements, tables[0].Elements)
		}
		if err := t.validate(path); err != nil {
			return nil, err
		}
		l.startSeq[c+1] = l.startSeq[c] + t.Starts()
		l.base[c+1] = l.base[c] + t.Elements
	}
	return l, nil
}

// Chunks returns the number of chunks.
func (l *Lookup) Chunks() int { return len(l.tables) }

// Table returns the pointer table of chunk c.
func (l *Lookup) Table(c int) *PointerTable { return l.tables[c] }

// Count returns the number of sequences.
func (l *Lookup) Count() int64 { return l.startSeq[len(l.tables)] }

// TotalLength returns the total number of elements.
func (l *Lookup) TotalLength() uint64 { return l.base[len(l.tables)] }

// StartSeq returns the global id of the first sequence beginning in chunk c.
// For a chunk in which no sequence begins it is the id of the next sequence
// to begin.
func (l *Lookup) StartSeq(c int) int64 { return l.startSeq[c] }

// StartSeqs returns a copy of the per-chunk first sequence ids.
func (l *Lookup) StartSeqs() []int64 {
	out := make([]int64, len(l.tables))
	copy(out, l.startSeq)
	return out
}

// ChunkBase returns the global element offset of the first element of chunk c.
func (l *Lookup) ChunkBase(c int) uint64 { return l.base[c] }

// Chunk returns the chunk in which sequence id begins. id must be in
// [0, Count()).
func (l *Lookup) Chunk(id int64) int {
	return sort.Search(len(l.tables), func(c int) bool {
		return l.startSeq[c+1] > id
	})
}

// Start returns the global element offset at which sequence id begins. For
// id == Count() it returns the total length.
func (l *Lookup) Start(id int64) uint64 {
	if id >= l.Count() {
		return l.TotalLength()
	}
	c := l.Chunk(id)
	t := l.tables[c]
	k := int(id - l.startSeq[c])
	if t.Continued {
		k++
	}
	return l.base[c] + t.boundary(k)
}

// Length returns the number of elements of sequence id.
func (l *Lookup) Length(id int64) uint64 {
	return l.Start(id+1) - l.Start(id)
}

// LengthBetween returns the summed length of sequences [start, end).
func (l *Lookup) LengthBetween(start, end int64) uint64 {
	return l.Start(end) - l.Start(start)
}

// Lengths returns the length of every sequence in [start, end).
func (l *Lookup) Lengths(start, end int64) []uint64 {
	if end <= start {
		return nil
	}
	out := make([]uint64, end-start)
	prev := l.Start(start)
	for i := range out {
		next := l.Start(start + int64(i) + 1)
		out[i] = next - prev
		prev = next
	}
	return out
}

// Locate maps a global element offset to its chunk and local offset. The
// total length maps to the end of the last chunk.
func (l *Lookup) Locate(offset uint64) (int, uint64) {
	c := sort.Search(len(l.tables), func(c int) bool {
		return l.base[c+1] > offset
	})
	if c == len(l.tables) {
		c--
	}
	return c, offset - l.base[c]
}

// MarshalLookup encodes the per-chunk start ids as a summary file.
func (l *Lookup) MarshalLookup() []byte {
	buf := make([]byte, 0, 8+8*(len(l.tables)+1)+4)
	buf = binary.LittleEndian.AppendUint32(buf, lookupMagic)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(l.startSeq)))
	for _, s := range l.startSeq {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s))
	}
	return binary.LittleEndian.AppendUint32(buf, hash.CRC32C(buf))
}

const lookupMagic = 0x4b4c5053 // "SPLK"

// CheckSummary verifies a summary lookup file against the lookup.
func (l *Lookup) CheckSummary(path string, data []byte) error {
	if len(data) < 12 {
		return errs.Corruptf(path, "lookup truncated to %d bytes", len(data))
	}
	body := data[:len(data)-4]
	if hash.CRC32C(body) != binary.LittleEndian.Uint32(data[len(body):]) {
		return errs.Corruptf(path, "lookup checksum mismatch")
	}
	if binary.LittleEndian.Uint32(body) != lookupMagic {
		return errs.Corruptf(path, "invalid lookup magic")
	}
	n := binary.LittleEndian.Uint32(body[4:])
	if int(n) != len(l.startSeq) || len(body) != 8+8*int(n) {
		return errs.Corruptf(path, "lookup holds %d chunks, pointer tables hold %d", int(n)-1, len(l.tables))
	}
	for i, s := range l.startSeq {
		if got := int64(binary.LittleEndian.Uint64(body[8+8*i:])); got != s {
			return errs.Corruptf(path, "lookup start of chunk %d is %d, pointer tables say %d", i, got, s)
		}
	}
	return nil
}
