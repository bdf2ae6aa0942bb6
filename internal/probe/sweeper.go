package probe

import (
	"context"
	"time"
)

// Sweeper prunes the store on a fixed interval.
type Sweeper struct {
	store     MessageStore
	retention time.Duration
	interval  time.Duration
	log       Logger
	now       func() time.Time
}

func NewSweeper(s MessageStore, retention, interval time.Duration, l Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if l == nil {
		l = nopLogger{}
	}
	return &Sweeper{store: s, retention: retention, interval: interval, log: l, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and logs its outcome.
func (s *Sweeper) SweepOnce(ctx context.Context) SweepResult {
	res, err := s.store.Sweep(ctx, s.retention, s.now())
	if err != nil {
		s.log.Errorf("queue: sweep failed: %v", err)
		return res
	}
	if res.Pending > 0 || res.Received > 0 {
		s.log.Infof("queue: swept %d pending and %d received messages", res.Pending, res.Received)
	}
	return res
}
