package queue

import (
	"context"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultDialTimeout = 10 * time.Second

// AMQPDialer connects to RabbitMQ (or any AMQP 0-9-1 broker) with amqp091-go.
type AMQPDialer struct {
	Timeout   time.Duration
	Heartbeat time.Duration
}

// Dial implements Dialer.
func (d AMQPDialer) Dial(ctx context.Context, url string) (Connection, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	cfg := amqp.Config{
		Heartbeat: d.Heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			dialer := net.Dialer{Timeout: timeout}
			return dialer.DialContext(ctx, network, addr)
		},
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 10 * time.Second
	}

	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) NotifyClose() <-chan error {
	src := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	out := make(chan error, 1)
	go func() {
		defer close(out)
		if reason, ok := <-src; ok && reason != nil {
			out <- reason
		}
	}()
	return out
}

func (c *amqpConnection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c *amqpChannel) QueueDeclare(name string) error {
	_, err := c.ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

func (c *amqpChannel) Publish(ctx context.Context, queue string, msg Publishing) (bool, error) {
	mode := amqp.Transient
	if msg.Persistent {
		mode = amqp.Persistent
	}

	confirm, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		Headers:      amqp.Table(msg.Headers),
		ContentType:  msg.ContentType,
		DeliveryMode: mode,
		MessageId:    msg.MessageID,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,
	})
	if err != nil {
		return false, err
	}
	if confirm == nil {
		return true, nil
	}
	return confirm.WaitContext(ctx)
}

func (c *amqpChannel) Qos(prefetch int) error {
	return c.ch.Qos(prefetch, 0, false)
}

func (c *amqpChannel) Consume(ctx context.Context, queue, consumer string) (<-chan Delivery, error) {
	src, err := c.ch.ConsumeWithContext(ctx, queue, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-src:
				if !ok {
					return
				}
				delivery := NewDelivery(d.Body, d.MessageId, d.Redelivered,
					func() error { return d.Ack(false) },
					func(requeue bool) error { return d.Nack(false, requeue) },
				)
				delivery.ContentType = d.ContentType
				delivery.Timestamp = d.Timestamp
				delivery.Headers = d.Headers
				select {
				case out <- delivery:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *amqpChannel) Close() error {
	if c.ch.IsClosed() {
		return nil
	}
	return c.ch.Close()
}
