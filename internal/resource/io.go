package resource

import (
	"context"
	"io"
)

type throttled struct {
	ctx context.Context
	r   io.Reader
	c   *Controller
}

// ThrottleReader charges every byte read from r against the IO limit of c.
// With a nil Controller or no limit it returns r unchanged.
func ThrottleReader(ctx context.Context, r io.Reader, c *Controller) io.Reader {
	if c == nil || c.io == nil {
		return r
	}
	return &throttled{ctx: ctx, r: r, c: c}
}

func (t *throttled) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if werr := t.c.WaitIO(t.ctx, n); werr != nil {
		return n, werr
	}
	return n, err
}
