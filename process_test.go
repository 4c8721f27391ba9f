package seqstore

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(n int) func() (int, bool, error) {
	i := 0
	return func() (int, bool, error) {
		if i == n {
			return 0, false, nil
		}
		i++
		return i - 1, true, nil
	}
}

func TestProcessOrdered_PreservesOrder(t *testing.T) {
	for _, workers := range []int{0, 1, 4, 16} {
		var got []int
		err := ProcessOrdered(context.Background(), workers, counter(200),
			func(_ context.Context, b int) (int, error) {
				time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
				return b * b, nil
			},
			func(r int) error {
				got = append(got, r)
				return nil
			})
		require.NoError(t, err)
		require.Len(t, got, 200)
		for i, r := range got {
			assert.Equal(t, i*i, r, "workers %d", workers)
		}
	}
}

func TestProcessOrdered_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("next", func(t *testing.T) {
		err := ProcessOrdered(context.Background(), 4,
			func() (int, bool, error) { return 0, false, boom },
			func(_ context.Context, b int) (int, error) { return b, nil },
			func(int) error { return nil })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("process", func(t *testing.T) {
		err := ProcessOrdered(context.Background(), 4, counter(100),
			func(_ context.Context, b int) (int, error) {
				if b == 50 {
					return 0, boom
				}
				return b, nil
			},
			func(int) error { return nil })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("emit", func(t *testing.T) {
		emitted := 0
		err := ProcessOrdered(context.Background(), 4, counter(1000),
			func(_ context.Context, b int) (int, error) { return b, nil },
			func(r int) error {
				emitted++
				if r == 10 {
					return boom
				}
				return nil
			})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 11, emitted)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := ProcessOrdered(ctx, 2, counter(1000),
			func(ctx context.Context, b int) (int, error) { return b, ctx.Err() },
			func(int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
