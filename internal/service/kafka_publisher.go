package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// MessageIDHeader carries the sender-assigned id on Kafka records.
const MessageIDHeader = "message-id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes probe messages to a Kafka topic.
type KafkaSender struct {
	w     messageWriter
	topic string
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaSender{w: w, topic: topic}
}

// Send writes content keyed by a fresh message id and returns that id.
func (s *KafkaSender) Send(ctx context.Context, content string) (string, error) {
	id := uuid.NewString()
	msg := kafka.Message{
		Key:   []byte(id),
		Value: []byte(content),
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: MessageIDHeader, Value: []byte(id)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("kafka: write to %s: %w", s.topic, err)
	}
	return id, nil
}

func (s *KafkaSender) Close() error { return s.w.Close() }
