package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/hash"
)

const (
	binaryMagic = 0x53514553 // "SEQS"
	prefixSize  = 16

	// CurrentVersion is the newest format version this build reads and the
	// one it writes.
	CurrentVersion = 1
)

const (
	FlagQuality = 1 << 0
	FlagNames   = 1 << 1
)

// Checksum is a running checksum together with the byte count it covers.
type Checksum struct {
	Sum   uint32
	Bytes uint64
}

// FromAccumulator converts a finished accumulator.
func FromAccumulator(a hash.Accumulator) Checksum {
	return Checksum{Sum: a.Sum(), Bytes: a.Bytes()}
}

// Header describes a whole store.
type Header struct {
	Version         uint32
	SequenceType    uint8
	DataWidth       uint8
	QualityWidth    uint8
	Flags           uint8
	NameCompression uint8
	Arm             uint8

	Chunks        uint32
	NameChunks    uint32
	MaxChunkBytes uint64

	Count       uint64
	TotalLength uint64
	MinLength   uint64
	MaxLength   uint64

	Data    Checksum
	Quality Checksum
	Names   Checksum

	StoreID   [16]byte
	CreatedAt time.Time

	ResidueCounts []uint64
	QualityCounts []uint64

	Notes string
}

// HasQuality reports whether the store carries quality data.
func (h *Header) HasQuality() bool { return h.Flags&FlagQuality != 0 }

// HasNames reports whether the store carries names.
func (h *Header) HasNames() bool { return h.Flags&FlagNames != 0 }

// MarshalBinary encodes the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	pb := newPayloadBuffer(make([]byte, 0, 256+8*(len(h.ResidueCounts)+len(h.QualityCounts))+len(h.Notes)))
	pb.writeUint8(h.SequenceType)
	pb.writeUint8(h.DataWidth)
	pb.writeUint8(h.QualityWidth)
	pb.writeUint8(h.Flags)
	pb.writeUint8(h.NameCompression)
	pb.writeUint8(h.Arm)
	pb.writeUint32(h.Chunks)
	pb.writeUint32(h.NameChunks)
	pb.writeUint64(h.MaxChunkBytes)
	pb.writeUint64(h.Count)
	pb.writeUint64(h.TotalLength)
	pb.writeUint64(h.MinLength)
	pb.writeUint64(h.MaxLength)
	for _, c := range []Checksum{h.Data, h.Quality, h.Names} {
		pb.writeUint32(c.Sum)
		pb.writeUint64(c.Bytes)
	}
	pb.writeBytes(h.StoreID[:])
	pb.writeUint64(uint64(h.CreatedAt.UnixNano()))
	pb.writeCounts(h.ResidueCounts)
	pb.writeCounts(h.QualityCounts)
	pb.writeString(h.Notes)
	if pb.err != nil {
		return nil, pb.err
	}

	version := h.Version
	if version == 0 {
		version = CurrentVersion
	}
	out := make([]byte, prefixSize, prefixSize+len(pb.buf))
	binary.LittleEndian.PutUint32(out[0:4], binaryMagic)
	binary.LittleEndian.PutUint32(out[4:8], version)
	binary.LittleEndian.PutUint32(out[8:12], hash.CRC32C(pb.buf))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(pb.buf)))
	return append(out, pb.buf...), nil
}

// Decode parses a header read from path.
//
// A header whose version is newer than CurrentVersion yields ErrNewerVersion
// before anything else is interpreted. Every other defect is reported as a
// *errs.CorruptError naming path.
func Decode(path string, data []byte) (*Header, error) {
	if len(data) < prefixSize {
		return nil, errs.Corruptf(path, "header truncated to %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != binaryMagic {
		return nil, errs.Corruptf(path, "invalid header magic %x", magic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version > CurrentVersion {
		return nil, fmt.Errorf("%w: %s declares version %d, this build reads up to %d", errs.ErrNewerVersion, path, version, CurrentVersion)
	}
	if version == 0 {
		return nil, errs.Corruptf(path, "invalid header version 0")
	}
	sum := binary.LittleEndian.Uint32(data[8:12])
	length := binary.LittleEndian.Uint32(data[12:16])
	payload := data[prefixSize:]
	if uint64(len(payload)) != uint64(length) {
		return nil, errs.Corruptf(path, "header payload is %d bytes, expected %d", len(payload), length)
	}
	if hash.CRC32C(payload) != sum {
		return nil, errs.Corruptf(path, "header checksum mismatch")
	}

	pb := newPayloadBuffer(payload)
	h := &Header{Version: version}
	h.SequenceType = pb.readUint8()
	h.DataWidth = pb.readUint8()
	h.QualityWidth = pb.readUint8()
	h.Flags = pb.readUint8()
	h.NameCompression = pb.readUint8()
	h.Arm = pb.readUint8()
	h.Chunks = pb.readUint32()
	h.NameChunks = pb.readUint32()
	h.MaxChunkBytes = pb.readUint64()
	h.Count = pb.readUint64()
	h.TotalLength = pb.readUint64()
	h.MinLength = pb.readUint64()
	h.MaxLength = pb.readUint64()
	for _, c := range []*Checksum{&h.Data, &h.Quality, &h.Names} {
		c.Sum = pb.readUint32()
		c.Bytes = pb.readUint64()
	}
	copy(h.StoreID[:], pb.readBytes(16))
	h.CreatedAt = time.Unix(0, int64(pb.readUint64()))
	h.ResidueCounts = pb.readCounts()
	h.QualityCounts = pb.readCounts()
	h.Notes = pb.readString()
	if pb.err != nil {
		if errors.Is(pb.err, io.ErrUnexpectedEOF) {
			return nil, errs.Corrupt(path, "header is missing required fields", pb.err)
		}
		return nil, errs.Corrupt(path, "invalid header", pb.err)
	}
	if pb.pos != len(payload) {
		return nil, errs.Corruptf(path, "header has %d trailing bytes", len(payload)-pb.pos)
	}
	if err := h.validate(path); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validate(path string) error {
	switch {
	case h.DataWidth < 1 || h.DataWidth > 8:
		return errs.Corruptf(path, "invalid data width %d", h.DataWidth)
	case h.HasQuality() && (h.QualityWidth < 1 || h.QualityWidth > 8):
		return errs.Corruptf(path, "invalid quality width %d", h.QualityWidth)
	case h.Chunks == 0:
		return errs.Corruptf(path, "header declares no chunks")
	case h.HasNames() && h.NameChunks == 0:
		return errs.Corruptf(path, "header declares names without name chunks")
	case h.Count > 0 && h.MinLength > h.MaxLength:
		return errs.Corruptf(path, "min length %d exceeds max length %d", h.MinLength, h.MaxLength)
	case h.MaxLength > h.TotalLength:
		return errs.Corruptf(path, "max length %d exceeds total length %d", h.MaxLength, h.TotalLength)
	}
	return nil
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint8(v uint8) {
	if p.err != nil {
		return
	}
	p.buf = append(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

func (p *payloadBuffer) writeBytes(b []byte) {
	if p.err != nil {
		return
	}
	p.buf = append(p.buf, b...)
}

func (p *payloadBuffer) writeCounts(c []uint64) {
	if p.err != nil {
		return
	}
	if len(c) > 65535 {
		p.err = fmt.Errorf("histogram too long: %d", len(c))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(c)))
	for _, v := range c {
		p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
	}
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if uint64(len(s)) > 1<<24 {
		p.err = fmt.Errorf("notes too long: %d", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) need(n int) bool {
	if p.err != nil {
		return false
	}
	if p.pos+n > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (p *payloadBuffer) readUint8() uint8 {
	if !p.need(1) {
		return 0
	}
	v := p.buf[p.pos]
	p.pos++
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if !p.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readUint64() uint64 {
	if !p.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readBytes(n int) []byte {
	if !p.need(n) {
		return nil
	}
	v := p.buf[p.pos : p.pos+n]
	p.pos += n
	return v
}

func (p *payloadBuffer) readCounts() []uint64 {
	if !p.need(2) {
		return nil
	}
	n := int(binary.LittleEndian.Uint16(p.buf[p.pos:]))
	p.pos += 2
	if !p.need(8 * n) {
		return nil
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(p.buf[p.pos:])
		p.pos += 8
	}
	return out
}

func (p *payloadBuffer) readString() string {
	if !p.need(4) {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(p.buf[p.pos:]))
	p.pos += 4
	if !p.need(n) {
		return ""
	}
	s := string(p.buf[p.pos : p.pos+n])
	p.pos += n
	return s
}
