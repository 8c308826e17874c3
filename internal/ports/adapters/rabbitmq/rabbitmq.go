// Package rabbitmq moves alignment jobs and results over AMQP queues.
package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/forPelevin/subalign/internal/ports"
)

// Client owns one connection and one channel. It consumes from a single
// durable queue and may publish to any queue.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	prefetch int

	mu       sync.Mutex
	declared map[string]bool
}

// Dial connects and declares the consume queue. prefetch <= 0 means 1.
func Dial(url, queue string, prefetch int) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	c := &Client{conn: conn, ch: ch, queue: queue, prefetch: prefetch, declared: map[string]bool{}}
	if err := c.declare(queue); err != nil {
		c.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return c, nil
}

func (c *Client) declare(queue string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declared[queue] {
		return nil
	}
	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	c.declared[queue] = true
	return nil
}

// Consume delivers messages with manual acknowledgement. The returned
// channel closes when ctx ends or the broker closes the delivery stream.
func (c *Client) Consume(ctx context.Context) (<-chan ports.Message, error) {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	out := make(chan ports.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				msg := ports.Message{
					Body: d.Body,
					Ack:  func() error { return d.Ack(false) },
					Nack: func(requeue bool) error { return d.Nack(false, requeue) },
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) Publish(ctx context.Context, queue string, body []byte) error {
	if err := c.declare(queue); err != nil {
		return err
	}
	err := c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
