package hash

import "hash/crc32"

// crc32cTable is pre-computed for CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
// Uses hardware acceleration when available (SSE4.2, ARM CRC).
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Accumulator is a running, order-sensitive checksum over a byte stream.
//
// It is a value: Add returns the updated accumulator and leaves the receiver
// untouched, so checksum state is threaded explicitly through the write path.
type Accumulator struct {
	sum   uint32
	bytes uint64
}

// Add folds p into the accumulator.
func (a Accumulator) Add(p []byte) Accumulator {
	return Accumulator{
		sum:   crc32.Update(a.sum, crc32cTable, p),
		bytes: a.bytes + uint64(len(p)),
	}
}

// Sum returns the checksum of everything added so far.
func (a Accumulator) Sum() uint32 { return a.sum }

// Bytes returns the number of bytes added so far.
func (a Accumulator) Bytes() uint64 { return a.bytes }

// Equal reports whether both checksum and byte count match.
func (a Accumulator) Equal(sum uint32, bytes uint64) bool {
	return a.sum == sum && a.bytes == bytes
}
