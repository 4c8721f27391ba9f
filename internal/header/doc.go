// Package header implements the index header of a store.
//
// # Binary Format
//
//	Header (16 bytes):
//	  Magic    (4 bytes) - 0x53514553 ("SEQS")
//	  Version  (4 bytes) - Format version
//	  Checksum (4 bytes) - CRC32C of payload
//	  Length   (4 bytes) - Payload length in bytes
//
//	Payload:
//	  SequenceType, DataWidth, QualityWidth, Flags, NameCompression, Arm (1 byte each)
//	  Chunks, NameChunks                        (4 bytes each)
//	  MaxChunkBytes, Count, TotalLength         (8 bytes each)
//	  MinLength, MaxLength                      (8 bytes each)
//	  Data, Quality, Name checksums             (4 bytes sum + 8 bytes count each)
//	  StoreID                                   (16 bytes)
//	  CreatedAt                                 (8 bytes, Unix nanoseconds)
//	  ResidueCounts, QualityCounts              (2-byte length + 8 bytes each)
//	  Notes                                     (4-byte length + bytes)
//
// The header is written after every other file of the store, so a missing or
// unreadable header is itself evidence of an interrupted write.
package header
