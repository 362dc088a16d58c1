package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/queue"
	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
)

const consumerTag = "tripmate-notification-consumer"

// Dead-letter reasons, recorded in the x-death-reason header and metrics.
const (
	ReasonMalformed          = "malformed"
	ReasonRedeliveryExceeded = "redelivery_exceeded"
)

// ErrStreamClosed is returned by Run when the broker stream ends without ctx ending.
var ErrStreamClosed = errors.New("notifications: delivery stream closed")

// Broker is the queue surface the consumer needs. *queue.Manager satisfies it.
type Broker interface {
	DeclareQueue(ctx context.Context, name string) error
	Consume(ctx context.Context, queue, consumer string, prefetch int) (<-chan queue.Delivery, error)
	PublishRaw(ctx context.Context, queue string, msg queue.Publishing) (bool, error)
}

// RealtimePublisher pushes a freshly stored notification to live subscribers.
type RealtimePublisher interface {
	PublishNotification(ctx context.Context, n models.Notification) error
}

// ConsumerConfig tunes delivery handling.
type ConsumerConfig struct {
	Queue           string
	DeadLetterQueue string
	// Prefetch bounds unacknowledged deliveries; 1 processes strictly in order.
	Prefetch int
	// MaxRedeliveries dead-letters a message after this many failed persists.
	// Zero requeues forever.
	MaxRedeliveries int
	// RequeueDelay pauses before a failed delivery is returned to the queue.
	RequeueDelay time.Duration
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithInvalidator drops the recipient's inbox cache keys after each insert.
func WithInvalidator(inv *cache.Invalidator) ConsumerOption {
	return func(c *Consumer) {
		c.invalidator = inv
	}
}

// WithRealtime forwards stored notifications to live subscribers.
func WithRealtime(p RealtimePublisher) ConsumerOption {
	return func(c *Consumer) {
		c.realtime = p
	}
}

// WithRequeueSleeper overrides how the consumer waits before requeueing.
func WithRequeueSleeper(s queue.Sleeper) ConsumerOption {
	return func(c *Consumer) {
		if s != nil {
			c.sleep = s
		}
	}
}

// Consumer drains the notification queue into the notification table. A delivery
// is acknowledged only after its row has been inserted.
type Consumer struct {
	broker      Broker
	db          *gorm.DB
	cfg         ConsumerConfig
	invalidator *cache.Invalidator
	realtime    RealtimePublisher
	sleep       queue.Sleeper
	attempts    *attemptTracker
	log         *zap.Logger
}

// NewConsumer constructs a Consumer reading cfg.Queue.
func NewConsumer(broker Broker, db *gorm.DB, cfg ConsumerConfig, opts ...ConsumerOption) *Consumer {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.DeadLetterQueue == "" {
		cfg.DeadLetterQueue = DeadLetterName(cfg.Queue)
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	c := &Consumer{
		broker:   broker,
		db:       db,
		cfg:      cfg,
		sleep:    queue.SleepContext,
		attempts: newAttemptTracker(),
		log:      logger.WithModule("notification-consumer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run declares the queues and processes deliveries until ctx ends.
func (c *Consumer) Run(ctx context.Context) error {
	for _, name := range []string{c.cfg.Queue, c.cfg.DeadLetterQueue} {
		if err := c.broker.DeclareQueue(ctx, name); err != nil {
			return fmt.Errorf("consumer: declare %s: %w", name, err)
		}
	}

	deliveries, err := c.broker.Consume(ctx, c.cfg.Queue, consumerTag, c.cfg.Prefetch)
	if err != nil {
		return fmt.Errorf("consumer: consume %s: %w", c.cfg.Queue, err)
	}

	c.log.Info("waiting for notification messages",
		zap.String("queue", c.cfg.Queue),
		zap.Int("prefetch", c.cfg.Prefetch),
	)
	for delivery := range deliveries {
		c.Handle(ctx, delivery)
	}

	if ctx.Err() != nil {
		return nil
	}
	return ErrStreamClosed
}

// Handle settles a single delivery.
func (c *Consumer) Handle(ctx context.Context, d queue.Delivery) {
	msg, err := Decode(d.Body)
	if err != nil {
		c.log.Warn("malformed notification message", zap.String("message_id", d.MessageID), zap.Error(err))
		c.deadLetter(ctx, d, ReasonMalformed, err)
		return
	}

	n := msg.Notification()
	if err := c.db.WithContext(ctx).Create(&n).Error; err != nil {
		c.persistFailed(ctx, d, msg, err)
		return
	}
	c.attempts.forget(d.MessageID)

	if err := d.Ack(); err != nil {
		// The row exists; the broker will redeliver and a duplicate row is accepted.
		c.log.Warn("ack failed after persist", zap.String("message_id", d.MessageID), zap.Error(err))
	}
	metrics.NotificationsConsumed.WithLabelValues("persisted").Inc()
	c.log.Debug("notification stored",
		zap.Uint("notification_id", n.ID),
		zap.Uint("user_id", n.UserID),
		zap.String("type", string(msg.Type)),
	)

	c.invalidator.Invalidate(ctx, cache.InboxKeys(n.UserID)...)
	if c.realtime != nil {
		if err := c.realtime.PublishNotification(ctx, n); err != nil {
			c.log.Warn("realtime publish failed", zap.Uint("user_id", n.UserID), zap.Error(err))
		}
	}
}

func (c *Consumer) persistFailed(ctx context.Context, d queue.Delivery, msg Message, cause error) {
	attempts := c.attempts.record(d.MessageID)
	if c.cfg.MaxRedeliveries > 0 && attempts > c.cfg.MaxRedeliveries {
		c.log.Error("notification exceeded redelivery limit",
			zap.String("message_id", d.MessageID),
			zap.Uint("user_id", msg.UserID),
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
		c.attempts.forget(d.MessageID)
		c.deadLetter(ctx, d, ReasonRedeliveryExceeded, cause)
		return
	}

	c.log.Warn("notification persist failed, requeueing",
		zap.String("message_id", d.MessageID),
		zap.Uint("user_id", msg.UserID),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
	_ = c.sleep(ctx, c.cfg.RequeueDelay)
	c.requeue(d)
}

// deadLetter copies d to the dead-letter queue and acknowledges it. When the copy
// cannot be confirmed the original is requeued instead so nothing is lost.
func (c *Consumer) deadLetter(ctx context.Context, d queue.Delivery, reason string, cause error) {
	headers := map[string]interface{}{
		"x-death-reason": reason,
		"x-source-queue": c.cfg.Queue,
	}
	if cause != nil {
		headers["x-error"] = cause.Error()
	}

	ack, err := c.broker.PublishRaw(ctx, c.cfg.DeadLetterQueue, queue.Publishing{
		Body:        d.Body,
		ContentType: d.ContentType,
		MessageID:   d.MessageID,
		Headers:     headers,
	})
	if err != nil || !ack {
		c.log.Error("dead-letter publish failed, requeueing",
			zap.String("message_id", d.MessageID),
			zap.String("queue", c.cfg.DeadLetterQueue),
			zap.Bool("confirmed", ack),
			zap.Error(err),
		)
		_ = c.sleep(ctx, c.cfg.RequeueDelay)
		c.requeue(d)
		return
	}

	if err := d.Ack(); err != nil {
		c.log.Warn("ack failed after dead-letter", zap.String("message_id", d.MessageID), zap.Error(err))
	}
	metrics.NotificationsDeadLettered.WithLabelValues(reason).Inc()
	metrics.NotificationsConsumed.WithLabelValues("dead_lettered").Inc()
}

func (c *Consumer) requeue(d queue.Delivery) {
	if err := d.Nack(true); err != nil {
		c.log.Warn("requeue failed", zap.String("message_id", d.MessageID), zap.Error(err))
	}
	metrics.NotificationsConsumed.WithLabelValues("requeued").Inc()
}

// attemptTracker counts failed persists per message id within this process.
type attemptTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func newAttemptTracker() *attemptTracker {
	return &attemptTracker{counts: make(map[string]int)}
}

func (t *attemptTracker) record(id string) int {
	if id == "" {
		return 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[id]++
	return t.counts[id]
}

func (t *attemptTracker) forget(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	delete(t.counts, id)
	t.mu.Unlock()
}
