package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoopbackSender hands every message straight back to Deliver on its own
// goroutine after Delay. It stands in for a broker in local runs
// (QUEUE_TRANSPORT=loopback).
type LoopbackSender struct {
	Delay   time.Duration
	Deliver func(ctx context.Context, body []byte, headers map[string]string) error
}

func (s *LoopbackSender) Send(_ context.Context, content string) (string, error) {
	id := uuid.NewString()
	if s.Deliver == nil {
		return id, nil
	}
	body := []byte(content)
	time.AfterFunc(s.Delay, func() {
		_ = s.Deliver(context.Background(), body, map[string]string{"message-id": id, "transport": "loopback"})
	})
	return id, nil
}
