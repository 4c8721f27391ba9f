// Package fs is the write path of the local blob store.
//
// [OS] writes to disk. [FaultyFS] wraps any FileSystem and fails writes,
// syncs, closes or renames of chosen files, so tests can leave a store half
// written:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("data-000001", fs.Fault{FailAfterBytes: 16})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
package fs
