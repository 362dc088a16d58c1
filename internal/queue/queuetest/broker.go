// Package queuetest provides an in-memory broker implementing queue.Dialer for tests.
// It models durable queues, persistent messages, manual acknowledgement with
// prefetch, redelivery of unacknowledged messages and broker outages.
package queuetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charlesng35/tripmate/internal/queue"
)

var (
	// ErrBrokerDown is returned by Dial while the broker is stopped and delivered as
	// the close reason of connections killed by Stop.
	ErrBrokerDown = errors.New("queuetest: broker unavailable")
	// ErrChannelClosed mirrors the error returned when using a closed channel.
	ErrChannelClosed = errors.New("queuetest: channel/connection is not open")
)

// Broker is a fake AMQP broker. The zero value is not usable; call NewBroker.
type Broker struct {
	mu   sync.Mutex
	cond *sync.Cond

	down       bool
	dialErr    error
	publishErr error
	nack       bool
	dials      int
	nextTag    uint64

	conns    map[*conn]struct{}
	queues   map[string]*queueState
	declares map[string]int
}

type message struct {
	pub         queue.Publishing
	redelivered bool
}

type unacked struct {
	msg   *message
	owner *channel
}

type queueState struct {
	durable bool
	ready   []*message
	unacked map[uint64]unacked
}

// NewBroker returns a running broker with no queues.
func NewBroker() *Broker {
	b := &Broker{
		conns:    make(map[*conn]struct{}),
		queues:   make(map[string]*queueState),
		declares: make(map[string]int),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Dial implements queue.Dialer.
func (b *Broker) Dial(_ context.Context, _ string) (queue.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dials++
	if b.down {
		return nil, ErrBrokerDown
	}
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	c := &conn{broker: b, closeCh: make(chan error, 1)}
	b.conns[c] = struct{}{}
	return c, nil
}

// Dials reports how many Dial calls were made.
func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Connections reports the number of open connections.
func (b *Broker) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// SetDialError makes subsequent dials fail with err (nil clears it).
func (b *Broker) SetDialError(err error) {
	b.mu.Lock()
	b.dialErr = err
	b.mu.Unlock()
}

// SetPublishError makes subsequent publishes fail with err (nil clears it).
func (b *Broker) SetPublishError(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

// SetNackPublishes makes the broker negatively confirm publishes.
func (b *Broker) SetNackPublishes(nack bool) {
	b.mu.Lock()
	b.nack = nack
	b.mu.Unlock()
}

// Stop simulates a broker shutdown: open connections are closed with ErrBrokerDown,
// dials fail, non-durable queues and transient messages are discarded, and
// unacknowledged messages return to their queues as redelivered.
func (b *Broker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.down = true
	for c := range b.conns {
		b.closeConnLocked(c, ErrBrokerDown)
	}
	for name, q := range b.queues {
		if !q.durable {
			delete(b.queues, name)
			continue
		}
		kept := q.ready[:0]
		for _, m := range q.ready {
			if m.pub.Persistent {
				kept = append(kept, m)
			}
		}
		q.ready = kept
	}
	b.cond.Broadcast()
}

// Start brings a stopped broker back.
func (b *Broker) Start() {
	b.mu.Lock()
	b.down = false
	b.mu.Unlock()
}

// DropConnections closes every open connection with reason, as a network failure would.
func (b *Broker) DropConnections(reason error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.conns {
		b.closeConnLocked(c, reason)
	}
	b.cond.Broadcast()
}

// Declared reports whether name exists and whether it is durable.
func (b *Broker) Declared(name string) (exists, durable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return false, false
	}
	return true, q.durable
}

// Declarations counts QueueDeclare calls for name across all connections.
func (b *Broker) Declarations(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.declares[name]
}

// Ready returns copies of the messages waiting in name.
func (b *Broker) Ready(name string) []queue.Publishing {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return nil
	}
	out := make([]queue.Publishing, 0, len(q.ready))
	for _, m := range q.ready {
		out = append(out, m.pub)
	}
	return out
}

// Depth counts ready plus unacknowledged messages in name.
func (b *Broker) Depth(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return 0
	}
	return len(q.ready) + len(q.unacked)
}

// Unacked counts messages delivered but not yet settled.
func (b *Broker) Unacked(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return 0
	}
	return len(q.unacked)
}

// Enqueue places a persistent message directly onto a durable queue, declaring it if needed.
func (b *Broker) Enqueue(name string, pub queue.Publishing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.declareLocked(name)
	pub.Persistent = true
	pub.Body = append([]byte(nil), pub.Body...)
	q.ready = append(q.ready, &message{pub: pub})
	b.cond.Broadcast()
}

func (b *Broker) declareLocked(name string) *queueState {
	q, ok := b.queues[name]
	if !ok {
		q = &queueState{durable: true, unacked: make(map[uint64]unacked)}
		b.queues[name] = q
	}
	return q
}

func (b *Broker) closeConnLocked(c *conn, reason error) {
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.channels {
		b.closeChannelLocked(ch)
	}
	if reason != nil {
		c.closeCh <- reason
	}
	close(c.closeCh)
	delete(b.conns, c)
}

func (b *Broker) closeChannelLocked(ch *channel) {
	if ch.closed {
		return
	}
	ch.closed = true
	close(ch.done)
	for _, q := range b.queues {
		for tag, u := range q.unacked {
			if u.owner != ch {
				continue
			}
			delete(q.unacked, tag)
			u.msg.redelivered = true
			q.ready = append([]*message{u.msg}, q.ready...)
		}
	}
	b.cond.Broadcast()
}

func (b *Broker) settle(name string, tag uint64, requeue, ack bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[name]
	if !ok {
		return fmt.Errorf("queuetest: queue %s not found", name)
	}
	u, ok := q.unacked[tag]
	if !ok {
		return fmt.Errorf("queuetest: unknown delivery tag %d", tag)
	}
	delete(q.unacked, tag)
	u.owner.inflight--
	if !ack && requeue {
		u.msg.redelivered = true
		q.ready = append([]*message{u.msg}, q.ready...)
	}
	b.cond.Broadcast()
	return nil
}

type conn struct {
	broker   *Broker
	closed   bool
	closeCh  chan error
	channels []*channel
}

func (c *conn) Channel() (queue.Channel, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}
	ch := &channel{conn: c, done: make(chan struct{})}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *conn) NotifyClose() <-chan error {
	return c.closeCh
}

func (c *conn) Close() error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	c.broker.closeConnLocked(c, nil)
	return nil
}

type channel struct {
	conn     *conn
	closed   bool
	done     chan struct{}
	prefetch int
	inflight int
}

func (ch *channel) QueueDeclare(name string) error {
	b := ch.conn.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch.closed {
		return ErrChannelClosed
	}
	b.declares[name]++
	b.declareLocked(name)
	return nil
}

func (ch *channel) Publish(_ context.Context, name string, msg queue.Publishing) (bool, error) {
	b := ch.conn.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch.closed {
		return false, ErrChannelClosed
	}
	if b.publishErr != nil {
		return false, b.publishErr
	}
	if b.nack {
		return false, nil
	}
	q, ok := b.queues[name]
	if !ok {
		// Unroutable messages are dropped by the default exchange but still confirmed.
		return true, nil
	}
	msg.Body = append([]byte(nil), msg.Body...)
	q.ready = append(q.ready, &message{pub: msg})
	b.cond.Broadcast()
	return true, nil
}

func (ch *channel) Qos(prefetch int) error {
	b := ch.conn.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch.closed {
		return ErrChannelClosed
	}
	ch.prefetch = prefetch
	return nil
}

func (ch *channel) Consume(ctx context.Context, name, _ string) (<-chan queue.Delivery, error) {
	b := ch.conn.broker
	b.mu.Lock()
	if ch.closed {
		b.mu.Unlock()
		return nil, ErrChannelClosed
	}
	q, ok := b.queues[name]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("queuetest: NOT_FOUND - no queue '%s'", name)
	}

	out := make(chan queue.Delivery)
	go func() {
		defer close(out)
		stop := context.AfterFunc(ctx, func() {
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		})
		defer stop()

		for {
			b.mu.Lock()
			for !ch.closed && ctx.Err() == nil && !(len(q.ready) > 0 && (ch.prefetch <= 0 || ch.inflight < ch.prefetch)) {
				b.cond.Wait()
			}
			if ch.closed || ctx.Err() != nil {
				b.mu.Unlock()
				return
			}
			m := q.ready[0]
			q.ready = q.ready[1:]
			b.nextTag++
			tag := b.nextTag
			q.unacked[tag] = unacked{msg: m, owner: ch}
			ch.inflight++
			b.mu.Unlock()

			delivery := queue.NewDelivery(m.pub.Body, m.pub.MessageID, m.redelivered,
				func() error { return b.settle(name, tag, false, true) },
				func(requeue bool) error { return b.settle(name, tag, requeue, false) },
			)
			delivery.ContentType = m.pub.ContentType
			delivery.Timestamp = m.pub.Timestamp

			select {
			case out <- delivery:
			case <-ch.done:
				return
			case <-ctx.Done():
				_ = b.settle(name, tag, true, false)
				return
			}
		}
	}()
	return out, nil
}

func (ch *channel) Close() error {
	b := ch.conn.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeChannelLocked(ch)
	return nil
}
