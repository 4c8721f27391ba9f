package seqstore

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/seqstore/internal/queue"
)

type indexed[T any] struct {
	seq   uint64
	value T
}

// ProcessOrdered runs process over the batches returned by next on up to
// workers goroutines and hands the results to emit in batch order. next
// returns false when there are no more batches. At most 2*workers batches
// are in flight or waiting for emission.
//
// next and emit are called from a single goroutine each. The first error
// stops the pipeline and is returned.
func ProcessOrdered[B, R any](
	ctx context.Context,
	workers int,
	next func() (B, bool, error),
	process func(context.Context, B) (R, error),
	emit func(R) error,
) error {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	window := semaphore.NewWeighted(int64(2 * workers))
	batches := make(chan indexed[B])
	results := make(chan indexed[R], workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		for seq := uint64(0); ; seq++ {
			if err := window.Acquire(gctx, 1); err != nil {
				return err
			}
			b, ok, err := next()
			if err != nil || !ok {
				return err
			}
			select {
			case batches <- indexed[B]{seq: seq, value: b}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	for range workers {
		g.Go(func() error {
			for b := range batches {
				r, err := process(gctx, b.value)
				if err != nil {
					return err
				}
				select {
				case results <- indexed[R]{seq: b.seq, value: r}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(results)
	}()

	pending := queue.NewReorder[R](0, 2*workers)
	var emitErr error
	for r := range results {
		if emitErr != nil {
			continue
		}
		pending.Push(r.seq, r.value)
		for v, ok := pending.Pop(); ok; v, ok = pending.Pop() {
			if emitErr = emit(v); emitErr != nil {
				cancel()
				break
			}
			window.Release(1)
		}
	}
	err := <-done
	if emitErr != nil {
		return emitErr
	}
	return err
}
