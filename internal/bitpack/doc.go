// Package bitpack packs small-alphabet values into a dense byte buffer.
//
// Element i occupies bits [i*w, (i+1)*w) of the buffer, where bit 0 is the
// least significant bit of byte 0. A width w is between 1 and 8 bits, so an
// element touches at most two bytes. Indices are 64-bit: genomic stores
// routinely hold more than 2^31 elements.
//
// The element accessors Get and Set are pure functions over
// (buffer, index, width) and carry all byte-boundary logic. Array and the
// stream package build on them.
package bitpack
