// Package alphabet maps residue letters to the small integer codes stored in a
// sequence store, and phred quality characters to quality values.
//
// Codes are dense and start at 0 with the unknown residue, so an alphabet of
// R letters packs into ceil(log2 R) bits:
//
//	DNA      N A C G T                                   3 bits
//	Protein  X * A R N D C Q E G H I L K M F P S T W Y V  5 bits
//	Quality  phred 0..63                                 6 bits
package alphabet

import (
	"fmt"
	"strings"

	"github.com/hupe1980/seqstore/internal/bitpack"
)

// Type is the residue alphabet of a store.
type Type uint8

const (
	// Unknown is the zero Type and is never stored.
	Unknown Type = iota
	// DNA is the nucleotide alphabet.
	DNA
	// Protein is the amino acid alphabet.
	Protein
)

const (
	dnaLetters     = "NACGT"
	proteinLetters = "X*ARNDCQEGHILKMFPSTWYV"
)

var (
	dnaCodes     [256]byte
	proteinCodes [256]byte
)

func init() {
	// Unmapped letters fall back to code 0 (N / X).
	for i := 0; i < len(dnaLetters); i++ {
		c := dnaLetters[i]
		dnaCodes[c] = byte(i)
		dnaCodes[c|0x20] = byte(i)
	}
	dnaCodes['U'], dnaCodes['u'] = dnaCodes['T'], dnaCodes['T']

	for i := 0; i < len(proteinLetters); i++ {
		c := proteinLetters[i]
		proteinCodes[c] = byte(i)
		if c >= 'A' && c <= 'Z' {
			proteinCodes[c|0x20] = byte(i)
		}
	}
}

// ParseType maps "dna"/"nucleotide" and "protein"/"aa" to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "dna", "nucleotide", "nt":
		return DNA, nil
	case "protein", "aa":
		return Protein, nil
	default:
		return Unknown, fmt.Errorf("unknown sequence type %q", s)
	}
}

func (t Type) String() string {
	switch t {
	case DNA:
		return "dna"
	case Protein:
		return "protein"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Valid reports whether t is DNA or Protein.
func (t Type) Valid() bool { return t == DNA || t == Protein }

// Letters returns the alphabet in code order.
func (t Type) Letters() string {
	switch t {
	case DNA:
		return dnaLetters
	case Protein:
		return proteinLetters
	default:
		return ""
	}
}

// Size returns the number of residue codes.
func (t Type) Size() int { return len(t.Letters()) }

// Width returns the packed bit width of a residue code.
func (t Type) Width() uint8 {
	if !t.Valid() {
		return 0
	}
	return bitpack.Width(t.Size())
}

// Encode returns the code of letter. Letters outside the alphabet map to the
// unknown residue (N or X).
func (t Type) Encode(letter byte) byte {
	if t == Protein {
		return proteinCodes[letter]
	}
	return dnaCodes[letter]
}

// Decode returns the upper-case letter of code.
func (t Type) Decode(code byte) byte {
	letters := t.Letters()
	if int(code) >= len(letters) {
		return letters[0]
	}
	return letters[code]
}

// EncodeAll appends the codes of letters to dst.
func (t Type) EncodeAll(dst, letters []byte) []byte {
	for _, c := range letters {
		dst = append(dst, t.Encode(c))
	}
	return dst
}

// DecodeAll appends the letters of codes to dst.
func (t Type) DecodeAll(dst, codes []byte) []byte {
	for _, c := range codes {
		dst = append(dst, t.Decode(c))
	}
	return dst
}

const (
	// QualitySize is the number of distinct quality values.
	QualitySize = 64
	// MaxQuality is the largest storable phred value.
	MaxQuality = QualitySize - 1
	// PhredOffset is the Sanger/Illumina 1.8+ ASCII offset.
	PhredOffset = 33
)

// QualityWidth is the packed bit width of a quality value.
var QualityWidth = bitpack.Width(QualitySize)

// EncodeQuality appends the phred values of ASCII quality characters to dst.
// Values above MaxQuality are clamped.
func EncodeQuality(dst, ascii []byte) []byte {
	for _, c := range ascii {
		q := 0
		if c > PhredOffset {
			q = int(c) - PhredOffset
		}
		dst = append(dst, byte(min(q, MaxQuality)))
	}
	return dst
}

// DecodeQuality appends the ASCII characters of phred values to dst.
func DecodeQuality(dst, phred []byte) []byte {
	for _, q := range phred {
		dst = append(dst, min(q, MaxQuality)+PhredOffset)
	}
	return dst
}
