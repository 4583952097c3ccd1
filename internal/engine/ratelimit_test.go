package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBWLimiter(t *testing.T) {
	t.Parallel()

	t.Run("burst capped to rate when rate < 1MB", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(1024)
		assert.Equal(t, 1024, lim.Burst())
	})

	t.Run("burst is 1MB when rate >= 1MB", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(10 * 1024 * 1024)
		assert.Equal(t, 1<<20, lim.Burst())
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, NewBWLimiter(0))
	})
}

func TestWaitBandwidth(t *testing.T) {
	t.Parallel()

	t.Run("nil limiter never blocks", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, waitBandwidth(context.Background(), nil, 1<<30))
	})

	t.Run("splits requests larger than burst", func(t *testing.T) {
		t.Parallel()
		// 10 KB at 5 KB/s with a 5 KB burst: first 5 KB free, second waits ~1s.
		lim := NewBWLimiter(5 * 1024)

		start := time.Now()
		err := waitBandwidth(context.Background(), lim, 10*1024)
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Greater(t, elapsed, 700*time.Millisecond)
		assert.Less(t, elapsed, 3*time.Second)
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(1024)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := waitBandwidth(ctx, lim, 4096)
		assert.Error(t, err)
	})
}
