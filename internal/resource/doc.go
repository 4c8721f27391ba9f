// Package resource bounds the memory, concurrency and IO of store
// operations.
//
// Name caches reserve the bytes of every decompressed name chunk and evict
// when the budget is full. Chunk-parallel work runs in a Group capped at
// MaxWorkers. Verification and copies read chunk blobs through
// ThrottleReader.
//
//	rc := resource.NewController(resource.Config{
//	    MaxWorkers:         4,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//	g, ctx := rc.Group(ctx)
//	for c := range chunks {
//	    g.Go(func() error { return scan(ctx, c) })
//	}
//	err := g.Wait()
//
// A nil Controller imposes no limits.
package resource
