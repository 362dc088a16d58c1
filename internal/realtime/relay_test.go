package realtime

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/models"
)

func TestRelayDispatchForwardsToHub(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub)
	conn := dialUser(t, srv, 11)
	require.Eventually(t, func() bool { return hub.Subscribers(11) == 1 }, time.Second, 5*time.Millisecond)

	relay := NewRelay(nil, "", hub)
	relay.dispatch(`not json`)
	relay.dispatch(`{"event":"notification.created","userId":0}`)
	relay.dispatch(`{"userId":11,"notification":{"id":9,"userId":11,"message":"Pack the tent"}}`)

	got := readFrame(t, conn)
	require.Equal(t, EventNotificationCreated, got.Event)
	require.Equal(t, "Pack the tent", got.Data["message"])
}

func TestRedisPublisherRequiresClient(t *testing.T) {
	var p *RedisPublisher
	require.Error(t, p.PublishNotification(context.Background(), models.Notification{UserID: 1}))
	require.Equal(t, DefaultChannel, NewRedisPublisher(nil, "").channel)
}

// TestRedisRelayRoundTrip runs against a real Redis when TRIPMATE_TEST_REDIS_ADDR is set.
func TestRedisRelayRoundTrip(t *testing.T) {
	addr := os.Getenv("TRIPMATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRIPMATE_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub()
	srv := newHubServer(t, hub)
	conn := dialUser(t, srv, 21)

	channel := "tripmate:test:" + t.Name()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = NewRelay(client, channel, hub).Run(ctx) }()

	publisher := NewRedisPublisher(client, channel)
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, channel).Result()
		return err == nil && n[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.PublishNotification(ctx, models.Notification{ID: 1, UserID: 21, Message: "hello"}))
	got := readFrame(t, conn)
	require.Equal(t, "hello", got.Data["message"])
}

type countingBackOff struct {
	mu    sync.Mutex
	calls int
}

func (b *countingBackOff) NextBackOff() time.Duration {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return time.Millisecond
}

func (b *countingBackOff) Reset() {}

func (b *countingBackOff) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestRelayRetriesFailedSubscribe(t *testing.T) {
	// Nothing listens on port 1, so every subscribe attempt is refused.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	policy := &countingBackOff{}
	relay := NewRelay(client, "tripmate:test:retry", NewHub(), WithRelayBackoff(policy))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return policy.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("relay gave up after a failed subscribe: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestNewRelayDefaultsToUnboundedBackoff(t *testing.T) {
	relay := NewRelay(nil, "", NewHub())
	require.Equal(t, DefaultChannel, relay.channel)
	policy, ok := relay.backoff.(*backoff.ExponentialBackOff)
	require.True(t, ok)
	require.Zero(t, policy.MaxElapsedTime)
	require.Equal(t, maxResubscribeInterval, policy.MaxInterval)
}
