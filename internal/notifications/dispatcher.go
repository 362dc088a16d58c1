package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
)

// DefaultEmitTimeout bounds how long one Emit may wait on the broker.
const DefaultEmitTimeout = 5 * time.Second

// Publisher sends one JSON message to a named queue and reports broker acceptance.
// *queue.Manager satisfies it.
type Publisher interface {
	Publish(ctx context.Context, queue string, message interface{}) (bool, error)
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithEmitTimeout bounds the broker wait for a whole event.
func WithEmitTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// Dispatcher is the EventSink used by the API: it publishes one message per
// recipient to the notification queue.
type Dispatcher struct {
	publisher Publisher
	queue     string
	timeout   time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewDispatcher constructs a Dispatcher publishing to queue (DefaultQueue when empty).
func NewDispatcher(publisher Publisher, queue string, opts ...DispatcherOption) *Dispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	d := &Dispatcher{
		publisher: publisher,
		queue:     queue,
		timeout:   DefaultEmitTimeout,
		now:       time.Now,
		log:       logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Emit publishes the event to every recipient. The write that produced the event has
// already committed, so the publish outlives request cancellation but is bounded by
// the emit timeout. Failures are logged and counted only.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.publisher == nil || len(event.Recipients) == 0 {
		return
	}
	if !event.Type.Valid() {
		metrics.NotificationsPublished.WithLabelValues(string(event.Type), "error").Inc()
		d.log.Warn("notification event with unknown type dropped", zap.String("type", string(event.Type)))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	timestamp := d.now().UTC()
	for _, userID := range event.Recipients {
		msg := Message{
			Type:      event.Type,
			UserID:    userID,
			TripID:    event.TripID,
			Message:   event.Message,
			Timestamp: timestamp,
		}

		ack, err := d.publisher.Publish(ctx, d.queue, msg)
		switch {
		case err != nil:
			metrics.NotificationsPublished.WithLabelValues(string(event.Type), "error").Inc()
			d.log.Error("notification publish failed",
				zap.String("type", string(event.Type)),
				zap.Uint("user_id", userID),
				zap.Error(err),
			)
		case !ack:
			metrics.NotificationsPublished.WithLabelValues(string(event.Type), "nack").Inc()
			d.log.Warn("notification publish not confirmed by broker",
				zap.String("type", string(event.Type)),
				zap.Uint("user_id", userID),
			)
		default:
			metrics.NotificationsPublished.WithLabelValues(string(event.Type), "ack").Inc()
		}
	}
}
