package seqstore

import (
	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/internal/bitpack"
)

// SequenceReader is the sequential core every reader implements.
//
// A reader starts unpositioned. Advance returning true positions it on the
// next sequence; Advance returning false leaves it exhausted. Current
// accessors fail with ErrState unless the reader is positioned. Residues
// are returned as alphabet codes.
//
// A reader is not safe for concurrent use. Independent readers over the same
// store are.
type SequenceReader interface {
	Type() alphabet.Type
	// Count returns the number of sequences visible through the reader.
	Count() int64
	Advance() bool
	// Reset returns the reader to the unpositioned state.
	Reset()
	// ID returns the id of the current sequence.
	ID() (int64, error)
	CurrentLength() (int, error)
	// ReadCurrent decodes the current sequence into dst and returns its
	// length. dst shorter than the sequence is ErrInvalidArgument.
	ReadCurrent(dst []byte) (int, error)
	// Err returns the I/O error that ended iteration, if any.
	Err() error
	Close() error
}

// RandomAccessReader reads any sequence by id. Random reads never move the
// cursor.
type RandomAccessReader interface {
	SequenceReader
	// Seek positions the reader on id.
	Seek(id int64) error
	Length(id int64) (int, error)
	Read(id int64, dst []byte) (int, error)
	// ReadRange decodes residues [start, start+length) of sequence id into
	// dst.
	ReadRange(id int64, dst []byte, start, length int) (int, error)
}

// StatsReader answers length queries from values computed at write time.
type StatsReader interface {
	TotalLength() uint64
	MinLength() uint64
	MaxLength() uint64
	// LengthBetween returns the summed length of sequences [start, end).
	LengthBetween(start, end int64) (uint64, error)
	// Lengths returns the length of every sequence in [start, end).
	Lengths(start, end int64) ([]uint64, error)
}

// QualityReader reads per-residue quality values of the current sequence.
type QualityReader interface {
	HasQuality() bool
	ReadCurrentQuality(dst []byte) (int, error)
}

// RandomQualityReader reads quality values of any sequence.
type RandomQualityReader interface {
	QualityReader
	ReadQuality(id int64, dst []byte) (int, error)
}

// NameReader reads sequence names.
type NameReader interface {
	HasNames() bool
	Name(id int64) (string, error)
	CurrentName() (string, error)
}

// HistogramReader returns aggregate histograms of the whole store.
type HistogramReader interface {
	ResidueCounts() []uint64
	QualityHistogram() []uint64
}

// PairedReader exposes pairing metadata.
type PairedReader interface {
	StoreID() StoreID
	Arm() Arm
}

// Source is a fully random-access reader that can be duplicated for
// parallel use. *FileReader and *MemReader implement it.
type Source interface {
	RandomAccessReader
	RandomQualityReader
	NameReader
	StatsReader
	HistogramReader
	PairedReader
	fork() Source
	appendPacked(id int64, seq, qual *bitpack.Array) error
}

var (
	_ Source = (*FileReader)(nil)
	_ Source = (*MemReader)(nil)

	_ SequenceReader  = (*StreamReader)(nil)
	_ QualityReader   = (*StreamReader)(nil)
	_ NameReader      = (*StreamReader)(nil)
	_ StatsReader     = (*StreamReader)(nil)
	_ HistogramReader = (*StreamReader)(nil)
	_ PairedReader    = (*StreamReader)(nil)
)
