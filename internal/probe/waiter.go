package probe

import (
	"context"
	"time"
)

// WaitOptions bounds a round-trip wait.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// WaitResult reports whether the message arrived and how many polls it took.
type WaitResult struct {
	Received bool `json:"received"`
	Attempts int  `json:"attempts"`
	Timeout  bool `json:"timeout"`
}

// MaxAttempts is ceil(timeout/interval), or 0 for a non-positive timeout.
func MaxAttempts(timeout, interval time.Duration) int {
	if interval <= 0 || timeout <= 0 {
		return 0
	}
	return int((timeout + interval - 1) / interval)
}

// Waiter polls the store until a correlation id is marked received.
type Waiter struct {
	store MessageStore
}

func NewWaiter(s MessageStore) *Waiter { return &Waiter{store: s} }

// Wait polls once per interval and gives up after MaxAttempts polls. A
// non-positive timeout still gets one immediate poll. A received check wins
// over the attempt limit on the same poll. Store errors and ctx
// cancellation end the wait with the attempts made so far.
func (w *Waiter) Wait(ctx context.Context, correlationID string, opts WaitOptions) (WaitResult, error) {
	if opts.Interval <= 0 {
		return WaitResult{}, ErrInvalidInterval
	}
	maxAttempts := MaxAttempts(opts.Timeout, opts.Interval)

	var res WaitResult
	if maxAttempts == 0 {
		res.Attempts = 1
		ok, err := w.store.IsReceived(ctx, correlationID)
		if err != nil {
			return res, err
		}
		res.Received = ok
		res.Timeout = !ok
		return res, nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}

		res.Attempts++
		ok, err := w.store.IsReceived(ctx, correlationID)
		if err != nil {
			return res, err
		}
		if ok {
			res.Received = true
			return res, nil
		}
		if res.Attempts >= maxAttempts {
			res.Timeout = true
			return res, nil
		}
	}
}
