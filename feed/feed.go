// Package feed supplies sequences to a store writer.
//
// A Feed is a forward-only cursor over records. The writer pulls every record
// once and never rewinds. Residues are delivered as alphabet codes, qualities
// as phred values.
package feed

import (
	"fmt"

	"github.com/hupe1980/seqstore/alphabet"
)

// Feed is a source of sequence records.
type Feed interface {
	// Advance moves to the next record. It returns false at the end or on
	// error; Err distinguishes the two.
	Advance() bool
	// Name returns the current record's name.
	Name() string
	// SequenceData returns the residue codes of the current record. The
	// slice is valid until the next Advance.
	SequenceData() []byte
	// QualityData returns the phred values of the current record, or nil
	// when the feed carries no qualities.
	QualityData() []byte
	// CurrentLength returns the number of residues of the current record.
	CurrentLength() int
	// Type returns the residue alphabet.
	Type() alphabet.Type
	// HasQualityData reports whether records carry qualities.
	HasQualityData() bool
	// Err returns the first error encountered.
	Err() error
	Close() error
}

// Record is a single decoded sequence.
type Record struct {
	Name     string
	Sequence []byte // residue codes
	Quality  []byte // phred values, nil when absent
}

// Validate checks that codes fit typ and that qualities match the sequence.
func (r Record) Validate(typ alphabet.Type) error {
	size := byte(typ.Size())
	for i, c := range r.Sequence {
		if c >= size {
			return fmt.Errorf("record %q: residue code %d at %d outside %s alphabet", r.Name, c, i, typ)
		}
	}
	if r.Quality != nil && len(r.Quality) != len(r.Sequence) {
		return fmt.Errorf("record %q: %d qualities for %d residues", r.Name, len(r.Quality), len(r.Sequence))
	}
	for i, q := range r.Quality {
		if q > alphabet.MaxQuality {
			return fmt.Errorf("record %q: quality %d at %d above %d", r.Name, q, i, alphabet.MaxQuality)
		}
	}
	return nil
}

// Collect drains f into records.
func Collect(f Feed) ([]Record, error) {
	var out []Record
	for f.Advance() {
		rec := Record{
			Name:     f.Name(),
			Sequence: append([]byte(nil), f.SequenceData()...),
		}
		if f.HasQualityData() {
			rec.Quality = append([]byte{}, f.QualityData()...)
		}
		out = append(out, rec)
	}
	return out, f.Err()
}
