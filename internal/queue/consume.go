package queue

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var errStreamEnded = errors.New("delivery stream ended")

// Consume subscribes to queue with manual acknowledgement and returns a stream that
// survives reconnects. prefetch bounds unacknowledged deliveries (1 = strictly
// sequential). The stream closes when ctx ends or the manager is closed.
func (m *Manager) Consume(ctx context.Context, queue, consumer string, prefetch int) (<-chan Delivery, error) {
	if err := m.DeclareQueue(ctx, queue); err != nil {
		return nil, err
	}

	out := make(chan Delivery)
	m.wg.Add(1)
	go m.consumeLoop(ctx, queue, consumer, prefetch, out)
	return out, nil
}

func (m *Manager) consumeLoop(parent context.Context, queue, consumer string, prefetch int, out chan<- Delivery) {
	defer m.wg.Done()
	defer close(out)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	log := m.log.With(zap.String("queue", queue))
	policy := m.reconnect()
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		deliveries, ch, err := m.subscribe(ctx, queue, consumer, prefetch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("queue subscribe failed", zap.Int("attempt", attempt), zap.Error(err))
			delay := policy.NextBackOff()
			if delay == backoff.Stop {
				log.Error("queue subscribe retries exhausted", zap.Int("attempts", attempt))
				return
			}
			if err := m.sleep(ctx, delay); err != nil {
				return
			}
			continue
		}

		attempt = 0
		policy.Reset()
		log.Info("queue consumer started", zap.Int("prefetch", prefetch))
		for delivery := range deliveries {
			select {
			case out <- delivery:
			case <-ctx.Done():
				_ = delivery.Nack(true)
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		log.Warn("queue delivery stream ended, resubscribing")
		m.dropChannel(ch, errStreamEnded)
	}
}

func (m *Manager) subscribe(ctx context.Context, queue, consumer string, prefetch int) (<-chan Delivery, Channel, error) {
	ch, err := m.channel(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := m.ensureDeclared(ch, queue); err != nil {
		return nil, nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch); err != nil {
			m.dropChannel(ch, err)
			return nil, nil, err
		}
	}
	deliveries, err := ch.Consume(ctx, queue, consumer)
	if err != nil {
		m.dropChannel(ch, err)
		return nil, nil, err
	}
	return deliveries, ch, nil
}
