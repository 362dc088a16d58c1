package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/queue"
	"github.com/charlesng35/tripmate/internal/queue/queuetest"
)

func receive(t *testing.T, deliveries <-chan queue.Delivery) queue.Delivery {
	t.Helper()
	select {
	case d, ok := <-deliveries:
		require.True(t, ok, "delivery stream closed")
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return queue.Delivery{}
	}
}

func requireNoDelivery(t *testing.T, deliveries <-chan queue.Delivery) {
	t.Helper()
	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery %s", d.Body)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumeRespectsPrefetch(t *testing.T) {
	broker := queuetest.NewBroker()
	broker.Enqueue("notifications", queue.Publishing{Body: []byte(`"first"`), MessageID: "m1"})
	broker.Enqueue("notifications", queue.Publishing{Body: []byte(`"second"`), MessageID: "m2"})
	m := newTestManager(t, broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, err := m.Consume(ctx, "notifications", "test", 1)
	require.NoError(t, err)

	first := receive(t, deliveries)
	require.Equal(t, "m1", first.MessageID)
	requireNoDelivery(t, deliveries)

	require.NoError(t, first.Ack())
	second := receive(t, deliveries)
	require.Equal(t, "m2", second.MessageID)
	require.NoError(t, second.Ack())

	require.Equal(t, 0, broker.Depth("notifications"))
}

func TestConsumeNackRequeues(t *testing.T) {
	broker := queuetest.NewBroker()
	broker.Enqueue("notifications", queue.Publishing{Body: []byte(`{}`), MessageID: "m1"})
	m := newTestManager(t, broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, err := m.Consume(ctx, "notifications", "test", 1)
	require.NoError(t, err)

	first := receive(t, deliveries)
	require.False(t, first.Redelivered)
	require.NoError(t, first.Nack(true))

	again := receive(t, deliveries)
	require.Equal(t, "m1", again.MessageID)
	require.True(t, again.Redelivered)
	require.NoError(t, again.Ack())
}

func TestConsumeSurvivesConnectionLoss(t *testing.T) {
	broker := queuetest.NewBroker()
	broker.Enqueue("notifications", queue.Publishing{Body: []byte(`"first"`), MessageID: "m1"})
	broker.Enqueue("notifications", queue.Publishing{Body: []byte(`"second"`), MessageID: "m2"})
	m := newTestManager(t, broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, err := m.Consume(ctx, "notifications", "test", 1)
	require.NoError(t, err)

	unacked := receive(t, deliveries)
	require.Equal(t, "m1", unacked.MessageID)

	broker.DropConnections(errors.New("connection reset by peer"))

	redelivered := receive(t, deliveries)
	require.Equal(t, "m1", redelivered.MessageID)
	require.True(t, redelivered.Redelivered)
	require.Error(t, unacked.Ack(), "ack on a dead channel must fail")
	require.NoError(t, redelivered.Ack())

	next := receive(t, deliveries)
	require.Equal(t, "m2", next.MessageID)
	require.NoError(t, next.Ack())
	require.Greater(t, broker.Dials(), 1)
}

func TestConsumeStreamClosesWithContext(t *testing.T) {
	broker := queuetest.NewBroker()
	m := newTestManager(t, broker)

	ctx, cancel := context.WithCancel(context.Background())
	deliveries, err := m.Consume(ctx, "notifications", "test", 1)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-deliveries:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream did not close")
	}
}

func TestConsumeStreamClosesWithManager(t *testing.T) {
	broker := queuetest.NewBroker()
	m := newTestManager(t, broker)

	deliveries, err := m.Consume(context.Background(), "notifications", "test", 1)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	_, ok := <-deliveries
	require.False(t, ok)
}
