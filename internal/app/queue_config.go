package app

import (
	"strings"

	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/queue"
)

// ManagerConfig converts QueueConfig into connection manager settings. Zero values
// fall back to queue.DefaultConfig.
func (c QueueConfig) ManagerConfig() queue.Config {
	cfg := queue.DefaultConfig()
	cfg.URL = strings.TrimSpace(c.URL)
	if c.ConnectAttempts > 0 {
		cfg.ConnectAttempts = c.ConnectAttempts
	}
	if c.RetryDelay > 0 {
		cfg.RetryDelay = c.RetryDelay
	}
	if c.ReconnectDelay > 0 {
		cfg.ReconnectDelay = c.ReconnectDelay
	}
	if c.PublishTimeout > 0 {
		cfg.PublishTimeout = c.PublishTimeout
	}
	return cfg
}

// QueueName returns the configured queue name or the default.
func (c QueueConfig) QueueName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return notifications.DefaultQueue
}

// ConsumerSettings converts the consumer section into notifications.ConsumerConfig.
func (c Config) ConsumerSettings() notifications.ConsumerConfig {
	queueName := c.Queue.QueueName()
	deadLetter := strings.TrimSpace(c.Notifications.Consumer.DeadLetterQueue)
	if deadLetter == "" {
		deadLetter = notifications.DeadLetterName(queueName)
	}
	prefetch := c.Notifications.Consumer.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	maxRedeliveries := c.Notifications.Consumer.MaxRedeliveries
	if maxRedeliveries < 0 {
		maxRedeliveries = 0
	}
	return notifications.ConsumerConfig{
		Queue:           queueName,
		DeadLetterQueue: deadLetter,
		Prefetch:        prefetch,
		MaxRedeliveries: maxRedeliveries,
		RequeueDelay:    c.Notifications.Consumer.RequeueDelay,
	}
}
