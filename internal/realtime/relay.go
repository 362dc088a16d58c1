package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/pkg/logger"
)

// DefaultChannel is the pub/sub channel carrying inbox events between processes.
const DefaultChannel = "tripmate:notifications"

const maxResubscribeInterval = 30 * time.Second

type envelope struct {
	Event        string              `json:"event"`
	UserID       uint                `json:"userId"`
	Notification models.Notification `json:"notification"`
}

// RedisPublisher announces stored notifications on a Redis channel. The consumer
// process uses it; API servers pick the events up through a Relay.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher constructs a publisher on channel (DefaultChannel when empty).
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// PublishNotification implements notifications.RealtimePublisher.
func (p *RedisPublisher) PublishNotification(ctx context.Context, n models.Notification) error {
	if p == nil || p.client == nil {
		return errors.New("realtime: redis client not configured")
	}
	payload, err := json.Marshal(envelope{Event: EventNotificationCreated, UserID: n.UserID, Notification: n})
	if err != nil {
		return fmt.Errorf("realtime: encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// Relay forwards pub/sub events to the local hub.
type Relay struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
	backoff backoff.BackOff
	log     *zap.Logger
}

// RelayOption customises a Relay.
type RelayOption func(*Relay)

// WithRelayBackoff overrides the delay policy between subscribe attempts.
func WithRelayBackoff(b backoff.BackOff) RelayOption {
	return func(r *Relay) {
		if b != nil {
			r.backoff = b
		}
	}
}

// NewRelay constructs a relay for channel (DefaultChannel when empty).
func NewRelay(client redis.UniversalClient, channel string, hub *Hub, opts ...RelayOption) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = maxResubscribeInterval
	policy.MaxElapsedTime = 0

	r := &Relay{client: client, channel: channel, hub: hub, backoff: policy, log: logger.WithModule("realtime")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run subscribes and relays until ctx ends. A failed subscribe is retried with
// backoff; once subscribed, go-redis re-subscribes on its own after connection loss.
func (r *Relay) Run(ctx context.Context) error {
	err := backoff.RetryNotify(
		func() error { return r.subscribe(ctx) },
		backoff.WithContext(r.backoff, ctx),
		func(err error, wait time.Duration) {
			r.log.Warn("realtime subscribe failed, retrying",
				zap.String("channel", r.channel),
				zap.Duration("retry_in", wait),
				zap.Error(err),
			)
		},
	)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Relay) subscribe(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: subscribe %s: %w", r.channel, err)
	}
	r.log.Info("realtime relay subscribed", zap.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.dispatch(msg.Payload)
		}
	}
}

func (r *Relay) dispatch(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn("invalid realtime payload", zap.Error(err))
		return
	}
	if env.UserID == 0 {
		return
	}
	event := env.Event
	if event == "" {
		event = EventNotificationCreated
	}
	r.hub.SendToUser(env.UserID, Message{Event: event, Data: env.Notification})
}
