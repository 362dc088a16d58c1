package queue

import (
	"context"
	"time"
)

// Dialer opens broker connections. The production implementation is AMQPDialer;
// tests substitute queuetest.Broker.
type Dialer interface {
	Dial(ctx context.Context, url string) (Connection, error)
}

// Connection is a live broker connection.
type Connection interface {
	// Channel opens a channel with publisher confirms enabled.
	Channel() (Channel, error)
	// NotifyClose returns a channel that receives the close reason once and is then closed.
	// A graceful Close delivers no error before closing.
	NotifyClose() <-chan error
	Close() error
}

// Channel is the subset of broker channel operations the manager relies on.
type Channel interface {
	// QueueDeclare asserts a durable, non-exclusive, non-auto-deleted queue.
	QueueDeclare(name string) error
	// Publish sends to the default exchange routed by queue name and waits for the
	// broker confirm. It reports whether the broker acked the message.
	Publish(ctx context.Context, queue string, msg Publishing) (bool, error)
	// Qos limits unacknowledged deliveries per consumer.
	Qos(prefetch int) error
	// Consume starts a manual-ack consumer. The returned stream closes when the
	// channel or connection goes away, or ctx ends.
	Consume(ctx context.Context, queue, consumer string) (<-chan Delivery, error)
	Close() error
}

// Publishing is an outbound message.
type Publishing struct {
	Body        []byte
	ContentType string
	MessageID   string
	Timestamp   time.Time
	Persistent  bool
	Headers     map[string]interface{}
}

// Delivery is an inbound message that must be acknowledged or rejected exactly once.
type Delivery struct {
	Body        []byte
	ContentType string
	MessageID   string
	Timestamp   time.Time
	Redelivered bool
	Headers     map[string]interface{}

	ack  func() error
	nack func(requeue bool) error
}

// NewDelivery binds acknowledgement callbacks to a message. Used by Channel implementations.
func NewDelivery(body []byte, messageID string, redelivered bool, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Body: body, MessageID: messageID, Redelivered: redelivered, ack: ack, nack: nack}
}

// Ack removes the message from the queue permanently.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack rejects the message, returning it to the queue when requeue is true.
func (d Delivery) Nack(requeue bool) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}
