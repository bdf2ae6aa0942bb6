package queue

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads probe messages from a topic within a consumer group.
type KafkaConsumer struct {
	r messageReader
	h Handler
}

func NewKafkaConsumer(brokers []string, topic, groupID string, h Handler) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &KafkaConsumer{r: r, h: h}
}

// Run fetches until ctx is cancelled. Every fetched message is committed,
// including ones the handler rejects, so a poison message cannot stall the group.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer func() { _ = c.r.Close() }()
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("kafka-consumer: fetch failed: %v", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		if err := c.h(ctx, m.Value, kafkaHeaders(m)); err != nil {
			log.Errorf("kafka-consumer: handle message at offset %d failed: %v", m.Offset, err)
		}
		if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Warnf("kafka-consumer: commit offset %d failed: %v", m.Offset, err)
		}
	}
}
