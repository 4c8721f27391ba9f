// Package blobstore provides the storage abstraction under a sequence store.
//
// A store is a set of immutable named blobs (chunks, pointer tables, the
// index header). BlobStore implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads through mmap
//   - MemoryStore: in-process map, for tests and transient stores
//   - CachingStore: block cache in front of a slow (remote) store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Atomic Put
//
// Put must make the whole blob visible at once. Writers use Put for the index
// header, which is written last: a store whose header is visible is complete.
package blobstore
