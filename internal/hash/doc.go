// Package hash provides the checksums used for store integrity.
//
// # CRC32-Castagnoli (CRC32C)
//
// All checksums use CRC32-Castagnoli (CRC32C):
//
//   - Hardware acceleration on x86 (SSE4.2) and ARM (CRC extension)
//   - Detects all single-bit, double-bit and odd-bit errors, and burst
//     errors up to 32 bits
//
// Checksums detect corruption and truncation. They are not a defense against
// deliberate tampering.
//
// # Usage
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For running checksums during a write pass:
//
//	var acc hash.Accumulator
//	acc = acc.Add(chunk1)
//	acc = acc.Add(chunk2)
//	sum, n := acc.Sum(), acc.Bytes()
package hash
