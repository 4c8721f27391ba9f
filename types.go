package seqstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/seqstore/internal/compress"
)

// StoreID links companion stores. The zero value is unconstrained and pairs
// with any identifier.
type StoreID [16]byte

// NewStoreID returns a random identifier.
func NewStoreID() StoreID {
	return StoreID(uuid.New())
}

// ParseStoreID parses the canonical textual form.
func ParseStoreID(s string) (StoreID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return StoreID{}, fmt.Errorf("%w: store id %q: %v", ErrInvalidArgument, s, err)
	}
	return StoreID(u), nil
}

// IsZero reports whether id is unconstrained.
func (id StoreID) IsZero() bool { return id == StoreID{} }

// Compatible reports whether two arms may be paired.
func (id StoreID) Compatible(other StoreID) bool {
	return id.IsZero() || other.IsZero() || id == other
}

func (id StoreID) String() string { return uuid.UUID(id).String() }

// MarshalText renders the id in its canonical form.
func (id StoreID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// Arm designates which half of a paired store a store holds.
type Arm uint8

const (
	ArmNone Arm = iota
	ArmLeft
	ArmRight
)

func (a Arm) String() string {
	switch a {
	case ArmNone:
		return "none"
	case ArmLeft:
		return "left"
	case ArmRight:
		return "right"
	default:
		return fmt.Sprintf("arm(%d)", uint8(a))
	}
}

// Compression selects the block compression of name chunks.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZstd = compress.Zstd
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(name string) (Compression, error) {
	t, err := compress.Parse(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return t, nil
}

// Summary describes a finished store.
type Summary struct {
	StoreID     StoreID
	Arm         Arm
	Count       uint64
	TotalLength uint64
	MinLength   uint64
	MaxLength   uint64
	Chunks      int
	NameChunks  int
	Duration    time.Duration
}
