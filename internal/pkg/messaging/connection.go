// Package messaging connects the order service to RabbitMQ: it announces
// committed orders on orders.queue and listens to warehouse status updates
// on status.queue.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrdersQueue = "orders.queue"
	StatusQueue = "status.queue"
)

// Connection owns one AMQP connection and channel and declares the queues
// it is given.
type Connection struct {
	url        string
	queues     []string
	maxRetries int

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to url, retrying with a linear backoff, and declares queues
// as durable.
func Dial(ctx context.Context, url string, maxRetries int, queues ...string) (*Connection, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c := &Connection{url: url, queues: queues, maxRetries: maxRetries}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err = c.open(); err == nil {
			return nil
		}
		if attempt == c.maxRetries {
			break
		}
		wait := time.Duration(attempt) * 2 * time.Second
		slog.WarnContext(ctx, "rabbitmq connection failed, retrying",
			"attempt", attempt, "retry_in", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("messaging: connect after %d attempts: %w", c.maxRetries, err)
}

func (c *Connection) open() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	for _, q := range c.queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()
	return nil
}

// Channel returns the live channel, reconnecting first when the connection
// was lost.
func (c *Connection) Channel(ctx context.Context) (*amqp.Channel, error) {
	c.mu.Lock()
	closed := c.conn == nil || c.conn.IsClosed()
	ch := c.channel
	c.mu.Unlock()
	if !closed {
		return ch, nil
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel, nil
}

func (c *Connection) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	ch, err := c.Channel(ctx)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

// Consume registers a manual-ack consumer on queue.
func (c *Connection) Consume(ctx context.Context, queue, consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	ch, err := c.Channel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("messaging: set qos: %w", err)
	}
	deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: consume %s: %w", queue, err)
	}
	return deliveries, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
