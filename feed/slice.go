package feed

import (
	"strconv"

	"github.com/hupe1980/seqstore/alphabet"
)

// SliceFeed serves records from memory.
type SliceFeed struct {
	typ     alphabet.Type
	records []Record
	quality bool
	pos     int
	closed  bool
}

// NewSliceFeed returns a feed over records. It carries qualities when the
// first record has any.
func NewSliceFeed(typ alphabet.Type, records []Record) *SliceFeed {
	return &SliceFeed{
		typ:     typ,
		records: records,
		quality: len(records) > 0 && records[0].Quality != nil,
		pos:     -1,
	}
}

// FromLetters builds a DNA or protein feed from letter strings, naming the
// records seq0, seq1, ...
func FromLetters(typ alphabet.Type, seqs ...string) *SliceFeed {
	records := make([]Record, len(seqs))
	for i, s := range seqs {
		records[i] = Record{Name: "seq" + strconv.Itoa(i), Sequence: typ.EncodeAll(nil, []byte(s))}
	}
	return NewSliceFeed(typ, records)
}

func (f *SliceFeed) Advance() bool {
	if f.closed || f.pos+1 >= len(f.records) {
		f.pos = len(f.records)
		return false
	}
	f.pos++
	return true
}

func (f *SliceFeed) current() *Record {
	if f.pos < 0 || f.pos >= len(f.records) {
		return &Record{}
	}
	return &f.records[f.pos]
}

func (f *SliceFeed) Name() string         { return f.current().Name }
func (f *SliceFeed) SequenceData() []byte { return f.current().Sequence }
func (f *SliceFeed) CurrentLength() int   { return len(f.current().Sequence) }
func (f *SliceFeed) Type() alphabet.Type  { return f.typ }
func (f *SliceFeed) HasQualityData() bool { return f.quality }
func (f *SliceFeed) Err() error           { return nil }

func (f *SliceFeed) QualityData() []byte {
	if !f.quality {
		return nil
	}
	return f.current().Quality
}

func (f *SliceFeed) Close() error {
	f.closed = true
	return nil
}
