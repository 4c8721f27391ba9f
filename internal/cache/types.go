package cache

// Kind separates key spaces.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBlock        // fixed-size block of a remote blob
	KindNames        // decompressed name chunk
)

// Key identifies an immutable block. Store blobs never change once the index
// header is written, so a key stays valid for the life of a reader.
type Key struct {
	Kind Kind
	// Path is the blob name within its store.
	Path string
	// Offset is the block's byte offset, or 0 for whole-blob entries.
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	Get(key Key) ([]byte, bool)
	// Set caches b. The caller must not modify b afterwards.
	Set(key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Purge drops every entry.
	Purge()
	Stats() (hits, misses int64)
}
