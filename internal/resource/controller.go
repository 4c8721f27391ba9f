package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrOverBudget is returned when a memory reservation does not fit.
var ErrOverBudget = errors.New("resource: memory budget exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes bounds memory held by caches of decoded chunks.
	// If 0, usage is only tracked.
	MemoryLimitBytes int64

	// MaxWorkers bounds chunk jobs running at once (table decoding,
	// verification, extraction, copies). If 0, defaults to 1.
	MaxWorkers int64

	// IOLimitBytesPerSec throttles bulk chunk transfers. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller shares one set of limits between the operations of a reader
// or writer. A nil Controller imposes none.
type Controller struct {
	cfg      Config
	budget   *semaphore.Weighted
	reserved atomic.Int64
	io       *rate.Limiter
}

// NewController returns a Controller enforcing cfg.
func NewController(cfg Config) *Controller {
	cfg.MaxWorkers = max(cfg.MaxWorkers, 1)
	c := &Controller{cfg: cfg}
	if cfg.MemoryLimitBytes > 0 {
		c.budget = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// Reserve claims n bytes of the memory budget without waiting.
func (c *Controller) Reserve(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.budget != nil && !c.budget.TryAcquire(n) {
		return ErrOverBudget
	}
	c.reserved.Add(n)
	return nil
}

// Release returns n bytes to the memory budget.
func (c *Controller) Release(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.budget != nil {
		c.budget.Release(n)
	}
	c.reserved.Add(-n)
}

// Reserved reports the bytes currently reserved.
func (c *Controller) Reserved() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// Workers is the number of chunk jobs allowed to run at once.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxWorkers)
}

// Group returns an errgroup that runs at most Workers goroutines, together
// with its derived context.
func (c *Controller) Group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers())
	return g, gctx
}

// WaitIO blocks until the IO limit admits n more bytes.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	for burst := c.io.Burst(); n > 0; n -= burst {
		if err := c.io.WaitN(ctx, min(n, burst)); err != nil {
			return err
		}
	}
	return nil
}
