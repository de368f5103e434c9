package presence

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRoster struct {
	calls atomic.Int64
	err   error
}

func (r *countingRoster) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	r.calls.Add(1)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

func TestSweeper_Run(t *testing.T) {
	t.Run("sweeps on the ticker and stops on cancel", func(t *testing.T) {
		roster := &countingRoster{}
		sweeper := NewSweeper(roster, time.Minute, 5*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			sweeper.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return roster.calls.Load() >= 2 },
			time.Second, time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop on cancel")
		}
	})

	t.Run("sweep errors do not stop the loop", func(t *testing.T) {
		roster := &countingRoster{err: errors.New("connection refused")}
		sweeper := NewSweeper(roster, time.Minute, 5*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go sweeper.Run(ctx)

		assert.Eventually(t, func() bool { return roster.calls.Load() >= 3 },
			time.Second, time.Millisecond)
	})
}
