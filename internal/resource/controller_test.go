package resource

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Reserve(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.Reserve(50))
	require.NoError(t, c.Reserve(40))
	assert.Equal(t, int64(90), c.Reserved())

	assert.ErrorIs(t, c.Reserve(20), ErrOverBudget)
	assert.Equal(t, int64(90), c.Reserved())

	c.Release(50)
	require.NoError(t, c.Reserve(20))
	assert.Equal(t, int64(60), c.Reserved())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.Reserve(1000))
	c.Release(500)
	assert.Equal(t, int64(500), c.Reserved())
	assert.Equal(t, 1, c.Workers())
}

func TestController_Group(t *testing.T) {
	c := NewController(Config{MaxWorkers: 3})
	g, _ := c.Group(t.Context())

	var running, peak atomic.Int64
	for range 12 {
		g.Go(func() error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.Reserve(10))
	c.Release(10)
	assert.Zero(t, c.Reserved())
	assert.Equal(t, 1, c.Workers())
	assert.NoError(t, c.WaitIO(t.Context(), 1<<20))

	r := bytes.NewReader(nil)
	assert.Same(t, r, ThrottleReader(t.Context(), r, c))
}

func TestThrottleReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	payload := bytes.Repeat([]byte{0xAC}, 1<<20+1<<18)

	got, err := io.ReadAll(ThrottleReader(t.Context(), bytes.NewReader(payload), c))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = io.ReadAll(ThrottleReader(ctx, bytes.NewReader(payload), c))
	assert.ErrorIs(t, err, context.Canceled)
}
