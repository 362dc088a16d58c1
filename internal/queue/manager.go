package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/metrics"
)

var (
	// ErrConnectFailed is returned when every bounded connection attempt failed.
	ErrConnectFailed = errors.New("queue: connect failed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("queue: manager closed")
)

const connectKey = "connect"

// Config controls connection and retry behaviour.
type Config struct {
	URL             string
	ConnectAttempts int
	RetryDelay      time.Duration
	ReconnectDelay  time.Duration
	PublishTimeout  time.Duration
}

// DefaultConfig returns 10 attempts 3s apart and a 3s reconnect delay.
func DefaultConfig() Config {
	return Config{
		ConnectAttempts: 10,
		RetryDelay:      3 * time.Second,
		ReconnectDelay:  3 * time.Second,
		PublishTimeout:  5 * time.Second,
	}
}

// Option customises a Manager.
type Option func(*Manager)

// WithDialer replaces the AMQP dialer, typically with queuetest.Broker.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithRetryBackoff overrides the delay policy between bounded connect attempts.
// Every connect cycle starts from a fresh policy; backoff.Stop ends the cycle early.
func WithRetryBackoff(b Policy) Option {
	return func(m *Manager) {
		if b != nil {
			m.retry = b
		}
	}
}

// WithReconnectBackoff overrides the delay policy between background reconnect attempts.
func WithReconnectBackoff(b Policy) Option {
	return func(m *Manager) {
		if b != nil {
			m.reconnect = b
		}
	}
}

// WithSleeper overrides how the manager waits between attempts.
func WithSleeper(s Sleeper) Option {
	return func(m *Manager) {
		if s != nil {
			m.sleep = s
		}
	}
}

// WithStateObserver registers a callback invoked on every state transition. It runs
// with the manager's lock held and must not call back into the Manager.
func WithStateObserver(fn func(State)) Option {
	return func(m *Manager) {
		m.observer = fn
	}
}

// Manager owns one broker connection and channel shared by every publisher in the
// process. Concurrent connects collapse into a single attempt; an unexpected close
// starts a background reconnect that retries until it succeeds or Close is called.
type Manager struct {
	cfg       Config
	dialer    Dialer
	retry     Policy
	reconnect Policy
	sleep     Sleeper
	observer  func(State)
	log       *zap.Logger

	group singleflight.Group
	state stateHolder

	mu       sync.RWMutex
	conn     Connection
	ch       Channel
	queues   map[string]struct{}
	declared map[string]struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewManager constructs a disconnected Manager. No network I/O happens until Connect,
// DeclareQueue, Publish or Consume is called.
func NewManager(cfg Config, opts ...Option) *Manager {
	defaults := DefaultConfig()
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = defaults.ConnectAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaults.ReconnectDelay
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		dialer:    AMQPDialer{},
		retry:     Constant(cfg.RetryDelay),
		reconnect: Constant(cfg.ReconnectDelay),
		sleep:     SleepContext,
		log:       logger.WithModule("queue"),
		queues:    make(map[string]struct{}),
		declared:  make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.QueueState.Set(float64(StateDisconnected))
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return m.state.load()
}

// Connect establishes the connection if needed. Concurrent callers share one attempt
// of up to Config.ConnectAttempts dials; each caller stops waiting when its own ctx
// ends while the shared attempt carries on.
func (m *Manager) Connect(ctx context.Context) error {
	if m.State() == StateClosed {
		return ErrClosed
	}
	if m.currentChannel() != nil {
		return nil
	}

	result := m.group.DoChan(connectKey, func() (interface{}, error) {
		return nil, m.connectWithRetry(m.ctx, m.cfg.ConnectAttempts, m.retry, "explicit")
	})

	select {
	case res := <-result:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeclareQueue asserts a durable queue and remembers it so it is declared again on
// every new connection.
func (m *Manager) DeclareQueue(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("queue: name is required")
	}

	m.mu.Lock()
	m.queues[name] = struct{}{}
	m.mu.Unlock()

	ch, err := m.channel(ctx)
	if err != nil {
		return err
	}
	return m.ensureDeclared(ch, name)
}

// Publish serialises message as JSON and sends it as a persistent message to queue,
// connecting first when there is no live channel. It returns whether the broker
// confirmed the message. Network failures mark the manager disconnected.
func (m *Manager) Publish(ctx context.Context, queue string, message interface{}) (bool, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return false, fmt.Errorf("queue: encode message: %w", err)
	}
	return m.PublishRaw(ctx, queue, Publishing{Body: body})
}

// PublishRaw sends an already encoded body. Missing properties are filled in:
// JSON content type, persistent delivery, a random message id and the current time.
func (m *Manager) PublishRaw(ctx context.Context, queue string, msg Publishing) (bool, error) {
	if _, ok := ctx.Deadline(); !ok && m.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.PublishTimeout)
		defer cancel()
	}

	ch, err := m.channel(ctx)
	if err != nil {
		return false, err
	}

	if err := m.ensureDeclared(ch, queue); err != nil {
		return false, err
	}

	if msg.ContentType == "" {
		msg.ContentType = "application/json"
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.Persistent = true

	ack, err := ch.Publish(ctx, queue, msg)
	if err != nil {
		if ctx.Err() == nil {
			m.dropChannel(ch, err)
		}
		return false, fmt.Errorf("queue: publish to %s: %w", queue, err)
	}
	return ack, nil
}

// Close shuts the manager down permanently, stopping any reconnect loop.
func (m *Manager) Close() error {
	var errs error
	m.closeOnce.Do(func() {
		m.setState(StateClosed)
		m.cancel()

		m.mu.Lock()
		ch, conn := m.ch, m.conn
		m.ch, m.conn = nil, nil
		m.mu.Unlock()

		if ch != nil {
			errs = multierr.Append(errs, ch.Close())
		}
		if conn != nil {
			errs = multierr.Append(errs, conn.Close())
		}
		m.wg.Wait()
		m.log.Info("queue connection closed")
	})
	return errs
}

func (m *Manager) currentChannel() Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ch
}

// channel returns the live channel, connecting when there is none.
func (m *Manager) channel(ctx context.Context) (Channel, error) {
	for {
		if ch := m.currentChannel(); ch != nil {
			return ch, nil
		}
		if err := m.Connect(ctx); err != nil {
			return nil, err
		}
	}
}

func (m *Manager) ensureDeclared(ch Channel, name string) error {
	m.mu.RLock()
	_, done := m.declared[name]
	current := m.ch == ch
	m.mu.RUnlock()
	if done && current {
		return nil
	}

	if err := ch.QueueDeclare(name); err != nil {
		return fmt.Errorf("queue: declare %s: %w", name, err)
	}

	m.mu.Lock()
	m.queues[name] = struct{}{}
	if m.ch == ch {
		m.declared[name] = struct{}{}
	}
	m.mu.Unlock()
	return nil
}

// connectWithRetry dials up to attempts times (unbounded when attempts <= 0).
func (m *Manager) connectWithRetry(ctx context.Context, attempts int, newPolicy Policy, trigger string) error {
	policy := newPolicy()
	var lastErr error
	attempt := 0
	for attempts <= 0 || attempt < attempts {
		attempt++
		if m.State() == StateClosed || ctx.Err() != nil {
			return ErrClosed
		}
		if m.currentChannel() != nil {
			return nil
		}

		m.setState(StateConnecting)
		err := m.dialOnce(ctx)
		if err == nil {
			metrics.QueueConnectAttempts.WithLabelValues(trigger, "success").Inc()
			m.log.Info("queue connected", zap.String("trigger", trigger), zap.Int("attempt", attempt))
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}

		lastErr = err
		metrics.QueueConnectAttempts.WithLabelValues(trigger, "failure").Inc()
		m.setState(StateDisconnected)
		m.log.Warn("queue connect attempt failed",
			zap.String("trigger", trigger),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if attempts > 0 && attempt == attempts {
			break
		}
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		if err := m.sleep(ctx, delay); err != nil {
			return ErrClosed
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConnectFailed, attempt, lastErr)
}

func (m *Manager) dialOnce(ctx context.Context) error {
	conn, err := m.dialer.Dial(ctx, m.cfg.URL)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	m.mu.RLock()
	names := make([]string, 0, len(m.queues))
	for name := range m.queues {
		names = append(names, name)
	}
	m.mu.RUnlock()

	for _, name := range names {
		if err := ch.QueueDeclare(name); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare %s: %w", name, err)
		}
	}

	closed := conn.NotifyClose()

	m.mu.Lock()
	if m.State() == StateClosed {
		m.mu.Unlock()
		_ = ch.Close()
		_ = conn.Close()
		return ErrClosed
	}
	m.conn, m.ch = conn, ch
	m.declared = make(map[string]struct{}, len(names))
	for _, name := range names {
		m.declared[name] = struct{}{}
	}
	m.setState(StateConnected)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.watch(conn, closed)
	return nil
}

// watch waits for conn to close and starts the background reconnect loop when the
// close was not initiated by the manager.
func (m *Manager) watch(conn Connection, closed <-chan error) {
	defer m.wg.Done()

	var reason error
	select {
	case err, ok := <-closed:
		if ok {
			reason = err
		}
	case <-m.ctx.Done():
		return
	}

	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn, m.ch = nil, nil
	m.declared = make(map[string]struct{})
	m.setState(StateDisconnected)
	m.mu.Unlock()

	m.log.Warn("queue connection lost, reconnecting in background", zap.Error(reason))
	m.reconnectLoop()
}

func (m *Manager) reconnectLoop() {
	for {
		if m.ctx.Err() != nil {
			return
		}
		_, err, _ := m.group.Do(connectKey, func() (interface{}, error) {
			return nil, m.connectWithRetry(m.ctx, 0, m.reconnect, "background")
		})
		if err == nil || errors.Is(err, ErrClosed) {
			return
		}
	}
}

// dropChannel discards ch after a channel-level failure so the next caller reconnects.
func (m *Manager) dropChannel(ch Channel, cause error) {
	m.mu.Lock()
	if m.ch != ch {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn, m.ch = nil, nil
	m.declared = make(map[string]struct{})
	m.setState(StateDisconnected)
	m.mu.Unlock()

	m.log.Warn("queue channel dropped", zap.Error(cause))
	_ = ch.Close()
	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) setState(next State) {
	prev, ok := m.state.transition(next)
	if !ok || prev == next {
		return
	}
	metrics.QueueState.Set(float64(next))
	if m.observer != nil {
		m.observer(next)
	}
}
