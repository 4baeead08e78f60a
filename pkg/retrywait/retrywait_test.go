package retrywait

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	var calls int32
	ok := Wait(time.Second, 10*time.Millisecond).Until(context.Background(), func() bool {
		atomic.AddInt32(&calls, 1)
		return true
	})

	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUntil_ZeroTimeoutEvaluatesExactlyOnce(t *testing.T) {
	var calls int32
	ok := Wait(0, 10*time.Millisecond).Until(context.Background(), func() bool {
		atomic.AddInt32(&calls, 1)
		return false
	})

	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUntil_TimesOutWithoutError(t *testing.T) {
	start := time.Now()
	ok := Wait(100*time.Millisecond, 20*time.Millisecond).Until(context.Background(), func() bool {
		return false
	})
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestUntil_SucceedsAfterRetries(t *testing.T) {
	var calls int32
	ok := Wait(time.Second, 5*time.Millisecond).Until(context.Background(), func() bool {
		return atomic.AddInt32(&calls, 1) >= 3
	})

	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestUntil_IntervalLowerBoundsEvaluations(t *testing.T) {
	var calls int32
	Wait(100*time.Millisecond, 40*time.Millisecond).Until(context.Background(), func() bool {
		atomic.AddInt32(&calls, 1)
		return false
	})

	// 100ms window with a 40ms interval allows at most 4 evaluations.
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(4))
}

func TestUntil_CancellationStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	ok := Wait(5*time.Second, 10*time.Millisecond).Until(ctx, func() bool {
		atomic.AddInt32(&calls, 1)
		return false
	})
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Less(t, elapsed, time.Second, "cancellation should stop the wait well before the timeout")
	assert.Greater(t, atomic.LoadInt32(&calls), int32(0))
}

func TestUntil_AlreadyCancelledDoesNotEvaluate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	ok := Wait(time.Second, 10*time.Millisecond).Until(ctx, func() bool {
		atomic.AddInt32(&calls, 1)
		return true
	})

	assert.False(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
