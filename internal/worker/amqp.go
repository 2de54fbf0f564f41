package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPBroker publishes outbox events to a durable RabbitMQ queue.
type AMQPBroker struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPBroker dials the broker and declares the queue.
func NewAMQPBroker(url, queue string) (*AMQPBroker, error) {
	b, err := NewLazyAMQPBroker(url, queue)
	if err != nil {
		return nil, err
	}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewLazyAMQPBroker returns a broker that dials on the first Publish.
func NewLazyAMQPBroker(url, queue string) (*AMQPBroker, error) {
	if queue == "" {
		return nil, errors.New("amqp queue name is required")
	}
	return &AMQPBroker{url: url, queue: queue}, nil
}

func (b *AMQPBroker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	b.conn = conn
	b.ch = ch
	return nil
}

// Publish sends body as a persistent JSON message, reconnecting once if the channel was lost.
func (b *AMQPBroker) Publish(ctx context.Context, eventType string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() || b.ch == nil || b.ch.IsClosed() {
		b.closeLocked()
		if err := b.connect(); err != nil {
			return err
		}
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         eventType,
		Headers:      amqp.Table{"event_type": eventType},
		Body:         body,
	}
	if err := b.ch.PublishWithContext(ctx, "", b.queue, false, false, msg); err != nil {
		return fmt.Errorf("amqp publish %s: %w", eventType, err)
	}
	return nil
}

func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *AMQPBroker) closeLocked() error {
	var errs []error
	if b.ch != nil {
		if err := b.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		b.ch = nil
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		b.conn = nil
	}
	return errors.Join(errs...)
}
