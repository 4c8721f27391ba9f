// Package stream provides file-backed streams of bit-packed elements.
//
// A Writer accepts values in any granularity and may be flushed at any point.
// A flush emits all complete bytes but carries the incomplete trailing byte
// over, so the bytes written are independent of how writes and flushes were
// interleaved.
//
// A Reader decodes a stream of known element count. Seekable readers sit on
// an io.ReaderAt and can reposition to any element with pure bit arithmetic;
// sequential readers sit on an io.Reader and only move forward.
package stream
