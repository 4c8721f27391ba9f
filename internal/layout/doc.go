// Package layout defines the file layout of a store and the pointer tables
// that give random access into its chunked payload.
//
// A store's residues are split into chunks of bounded size. Every chunk has a
// pointer table listing the cumulative element offsets at which sequences end
// inside that chunk. A sequence crossing a chunk boundary contributes one
// continuation entry to every spanned chunk after the first: the entry is the
// sequence's end when it ends in that chunk, or the chunk length when the
// sequence passes through the chunk entirely.
//
// A sequence that ends exactly at the end of a chunk belongs to that chunk;
// the next chunk then starts without a continuation entry. Chunks roll over
// lazily, when an element has to be written and the current chunk is full, so
// a zero-length sequence is always recorded in the chunk that was current
// when it arrived.
//
// Lookup walks the tables once and derives, as plain index arrays, the global
// id of the first sequence starting in each chunk and the element base of each
// chunk. Everything else (chunk of an id, global offsets, lengths) is binary
// search and arithmetic over those arrays.
package layout
