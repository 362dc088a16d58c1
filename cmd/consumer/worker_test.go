package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/internal/app"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/queue"
	"github.com/charlesng35/tripmate/internal/queue/queuetest"
)

func workerConfig(name string) *app.Config {
	return &app.Config{
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:" + name + "?mode=memory&cache=shared&_foreign_keys=1",
		},
		Queue: app.QueueConfig{
			URL:             "amqp://broker.test/",
			ConnectAttempts: 1,
			RetryDelay:      time.Millisecond,
			ReconnectDelay:  time.Millisecond,
		},
	}
}

func TestWorkerPersistsQueuedNotification(t *testing.T) {
	broker := queuetest.NewBroker()
	w, err := bootstrapWorker(context.Background(), workerConfig("worker_persist"), zap.NewNop(), queue.WithDialer(broker))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	user := models.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, w.DB.Create(&user).Error)

	broker.Enqueue("notifications", queue.Publishing{
		MessageID: "m-1",
		Body:      []byte(`{"type":"trip_created","userId":` + uintText(user.ID) + `,"tripId":null,"message":"You were added to Lisbon","timestamp":"2024-05-01T09:00:00Z"}`),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		var count int64
		w.DB.Model(&models.Notification{}).Where("user_id = ?", user.ID).Count(&count)
		return count == 1
	}, 5*time.Second, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	w.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	require.Zero(t, broker.Depth("notifications"))
}

func TestWorkerFailsWithoutBroker(t *testing.T) {
	broker := queuetest.NewBroker()
	broker.SetDialError(errors.New("connection refused"))

	w, err := bootstrapWorker(context.Background(), workerConfig("worker_no_broker"), zap.NewNop(), queue.WithDialer(broker))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	err = w.Run(context.Background())
	require.ErrorContains(t, err, "connect to message broker")

	rec := httptest.NewRecorder()
	w.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func uintText(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
