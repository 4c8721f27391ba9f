// Package cache holds decoded or fetched chunk blocks in memory.
//
// Two key spaces share one LRU: blocks of remote blobs fetched by
// blobstore.CachingStore, and decompressed name chunks. Capacity is bounded
// per cache and, when a resource.Controller is supplied, globally.
package cache
