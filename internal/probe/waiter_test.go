package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxAttempts(t *testing.T) {
	cases := []struct {
		timeout, interval time.Duration
		want              int
	}{
		{10 * time.Second, 500 * time.Millisecond, 20},
		{1000 * time.Millisecond, 300 * time.Millisecond, 4},
		{0, 100 * time.Millisecond, 0},
		{-time.Second, 100 * time.Millisecond, 0},
		{time.Millisecond, time.Second, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MaxAttempts(c.timeout, c.interval), "%s/%s", c.timeout, c.interval)
	}
}

func TestWaiter_InvalidInterval(t *testing.T) {
	w := NewWaiter(NewMemoryStore())
	_, err := w.Wait(context.Background(), "c", WaitOptions{Timeout: time.Second})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestWaiter_ZeroTimeoutChecksOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	w := NewWaiter(store)

	res, err := w.Wait(ctx, "c", WaitOptions{Timeout: 0, Interval: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, WaitResult{Received: false, Attempts: 1, Timeout: true}, res)

	require.NoError(t, store.RegisterPending(ctx, "c", "m", "{}"))
	_, _ = store.MarkReceived(ctx, "c", time.Now())
	res, err = w.Wait(ctx, "c", WaitOptions{Timeout: 0, Interval: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, WaitResult{Received: true, Attempts: 1}, res)
}

func TestWaiter_TimesOutAfterMaxAttempts(t *testing.T) {
	w := NewWaiter(NewMemoryStore())
	res, err := w.Wait(context.Background(), "never", WaitOptions{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.False(t, res.Received)
	assert.True(t, res.Timeout)
	assert.Equal(t, 5, res.Attempts)
}

func TestWaiter_ReceivedDuringWait(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.RegisterPending(ctx, "c", "m", "{}"))
	time.AfterFunc(25*time.Millisecond, func() { _, _ = store.MarkReceived(ctx, "c", time.Now()) })

	res, err := NewWaiter(store).Wait(ctx, "c", WaitOptions{Timeout: time.Second, Interval: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.False(t, res.Timeout)
	assert.GreaterOrEqual(t, res.Attempts, 2)
	assert.LessOrEqual(t, res.Attempts, MaxAttempts(time.Second, 10*time.Millisecond))
}

func TestWaiter_ReceivedWinsOnLastAttempt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.RegisterPending(ctx, "c", "m", "{}"))
	_, _ = store.MarkReceived(ctx, "c", time.Now())

	res, err := NewWaiter(store).Wait(ctx, "c", WaitOptions{Timeout: 10 * time.Millisecond, Interval: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, WaitResult{Received: true, Attempts: 1}, res)
}

func TestWaiter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWaiter(NewMemoryStore()).Wait(ctx, "c", WaitOptions{Timeout: time.Second, Interval: 10 * time.Millisecond})
	assert.ErrorIs(t, err, context.Canceled)
}
