// Package queue contains the background consumers that receive probe
// messages back from the broker and hand them to the inbound handler.
package queue

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/queue-health-probe/internal/probe"
)

// Handler processes one delivery. A non-nil error rejects the message.
type Handler func(ctx context.Context, body []byte, headers map[string]string) error

// InboundHandler adapts the probe inbound handler to a consumer Handler.
func InboundHandler(h *probe.InboundHandler) Handler {
	return func(ctx context.Context, body []byte, headers map[string]string) error {
		res := h.Handle(ctx, body, headers)
		if !res.Success {
			return errors.New(res.Error)
		}
		return nil
	}
}

// amqpHeaders flattens the delivery properties and header table.
func amqpHeaders(d amqp.Delivery) map[string]string {
	out := make(map[string]string, len(d.Headers)+3)
	for k, v := range d.Headers {
		out[k] = fmt.Sprint(v)
	}
	if d.MessageId != "" {
		out["message-id"] = d.MessageId
	}
	if d.ContentType != "" {
		out["content-type"] = d.ContentType
	}
	if !d.Timestamp.IsZero() {
		out["timestamp"] = d.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return out
}

func kafkaHeaders(m kafka.Message) map[string]string {
	out := make(map[string]string, len(m.Headers)+3)
	for _, h := range m.Headers {
		out[h.Key] = string(h.Value)
	}
	out["topic"] = m.Topic
	out["partition"] = fmt.Sprint(m.Partition)
	out["offset"] = fmt.Sprint(m.Offset)
	return out
}
