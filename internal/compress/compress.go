// Package compress implements block compression of name chunks.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm. The value is stored in the index
// header.
type Type uint8

const (
	// None stores name chunks as raw bytes.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast).
	LZ4 Type = 1
	// Zstd uses Zstandard (better ratio).
	Zstd Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compress(%d)", uint8(t))
	}
}

// Valid reports whether t is a known algorithm.
func (t Type) Valid() bool { return t <= Zstd }

// Parse maps an algorithm name to its Type.
func Parse(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown name compression %q", name)
	}
}

var (
	// ErrCorruptBlock is returned for blocks that cannot be decoded.
	ErrCorruptBlock = errors.New("compress: corrupt block")

	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block format for compressed types:
// [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means Data is stored raw.
const blockHeaderSize = 8

// Compress encodes data as a single block. For None it returns data as is.
// Blocks that do not shrink below 90% are stored raw behind the header.
func Compress(data []byte, t Type) ([]byte, error) {
	if t == None {
		return data, nil
	}

	var packed []byte
	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case Zstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	return append(out, packed...), nil
}

// Decompress decodes a block written by Compress. size is the expected
// decoded length, taken from the chunk's pointer table.
func Decompress(block []byte, t Type, size uint64) ([]byte, error) {
	if t == None {
		if uint64(len(block)) != size {
			return nil, fmt.Errorf("%w: %d raw bytes, expected %d", ErrCorruptBlock, len(block), size)
		}
		return block, nil
	}
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrCorruptBlock)
	}
	raw := binary.LittleEndian.Uint32(block[0:])
	packed := binary.LittleEndian.Uint32(block[4:])
	body := block[blockHeaderSize:]
	if uint64(raw) != size {
		return nil, fmt.Errorf("%w: block holds %d bytes, expected %d", ErrCorruptBlock, raw, size)
	}

	if packed == 0 {
		if uint32(len(body)) != raw {
			return nil, fmt.Errorf("%w: raw block length mismatch", ErrCorruptBlock)
		}
		return body, nil
	}
	if uint32(len(body)) != packed {
		return nil, fmt.Errorf("%w: compressed block length mismatch", ErrCorruptBlock)
	}

	out := make([]byte, raw)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if uint32(n) != raw {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if uint32(len(decoded)) != raw {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}
}
