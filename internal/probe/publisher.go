package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transport sends serialized content to the queue and returns the
// transport-assigned message id.
type Transport interface {
	Send(ctx context.Context, content string) (string, error)
}

// PublishResult is the outcome of Publish. CorrelationID is set even when
// the send failed so the attempt can still be labelled.
type PublishResult struct {
	Success       bool   `json:"success"`
	MessageID     string `json:"messageId,omitempty"`
	CorrelationID string `json:"correlationId"`
	Error         string `json:"error,omitempty"`
}

// Publisher sends correlated test messages and registers them as pending.
type Publisher struct {
	transport Transport
	store     MessageStore
	log       Logger
	metrics   Metrics
	now       func() time.Time
}

func NewPublisher(t Transport, s MessageStore, l Logger, m Metrics) *Publisher {
	if l == nil {
		l = nopLogger{}
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &Publisher{transport: t, store: s, log: l, metrics: m, now: time.Now}
}

// NewCorrelationID returns "test-<unix ms>-<random>".
func NewCorrelationID(now time.Time) string {
	return fmt.Sprintf("test-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Publish merges correlationId and timestamp into payload, sends it and
// records a pending entry. An empty correlationID is generated. A failed
// send never registers a pending entry.
func (p *Publisher) Publish(ctx context.Context, payload map[string]any, correlationID string) PublishResult {
	now := p.now()
	if correlationID == "" {
		correlationID = NewCorrelationID(now)
	}

	msg := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		msg[k] = v
	}
	msg["correlationId"] = correlationID
	msg["timestamp"] = now.UTC().Format(time.RFC3339Nano)

	body, err := json.Marshal(msg)
	if err != nil {
		return p.fail(correlationID, fmt.Errorf("encode message: %w", err))
	}
	if p.transport == nil {
		return p.fail(correlationID, ErrTransportUnavailable)
	}

	content := string(body)
	messageID, err := p.transport.Send(ctx, content)
	if err != nil {
		return p.fail(correlationID, err)
	}
	if err := p.store.RegisterPending(ctx, correlationID, messageID, content); err != nil {
		return p.fail(correlationID, fmt.Errorf("register pending: %w", err))
	}
	// The echo can beat the registration on a fast transport.
	if early, ok, err := p.store.Received(ctx, correlationID); err == nil && ok {
		_, _ = p.store.MarkReceived(ctx, correlationID, early.ReceivedAt)
	}

	p.metrics.Published()
	p.log.Infof("queue: message %s published with correlationId %s", messageID, correlationID)
	return PublishResult{Success: true, MessageID: messageID, CorrelationID: correlationID}
}

func (p *Publisher) fail(correlationID string, err error) PublishResult {
	p.metrics.PublishFailed()
	p.log.Errorf("queue: failed to publish message %s: %v", correlationID, err)
	return PublishResult{Success: false, CorrelationID: correlationID, Error: err.Error()}
}
