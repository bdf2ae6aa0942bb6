// Package service provides the outbound queue transports the probe
// publishes through. Each sender returns the transport message id it
// stamped on the message.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the part of *amqp.Channel the sender needs.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSender publishes probe messages to a durable RabbitMQ queue over a
// lazily dialed connection that is rebuilt after any publish error.
type AMQPSender struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   amqpChannel
	open func() (amqpChannel, error)
}

func NewAMQPSender(url, queue string) *AMQPSender {
	s := &AMQPSender{url: url, queue: queue}
	s.open = s.dial
	return s
}

func (s *AMQPSender) dial() (amqpChannel, error) {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	s.conn = conn
	return ch, nil
}

func (s *AMQPSender) channel() (amqpChannel, error) {
	if s.ch != nil {
		return s.ch, nil
	}
	ch, err := s.open()
	if err != nil {
		return nil, err
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		s.closeConn()
		return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	s.ch = ch
	return ch, nil
}

// Send publishes content as a persistent JSON message and returns its id.
func (s *AMQPSender) Send(ctx context.Context, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channel()
	if err != nil {
		log.Errorf("%v", err)
		return "", err
	}

	id := uuid.NewString()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         []byte(content),
	}
	if err := ch.PublishWithContext(ctx, "", s.queue, false, false, pub); err != nil {
		s.reset()
		log.Errorf("rabbitmq: publish failed: %v", err)
		return "", fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return id, nil
}

// Close releases the channel and connection.
func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *AMQPSender) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	s.closeConn()
}

func (s *AMQPSender) closeConn() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
