package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

func seedNotification(t *testing.T, f *fixture, userID uint, message string, at time.Time) models.Notification {
	t.Helper()
	n := models.Notification{UserID: userID, Message: message, CreatedAt: at}
	require.NoError(t, f.db.Create(&n).Error)
	return n
}

func TestNotificationServiceListNewestFirst(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seedNotification(t, f, alice.ID, "older", base)
	seedNotification(t, f, alice.ID, "newer", base.Add(time.Hour))
	seedNotification(t, f, bob.ID, "not yours", base)

	svc, err := NewNotificationService(f.db, f.caches, f.sink)
	require.NoError(t, err)

	items, err := svc.ListForUser(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "newer", items[0].Message)
	require.Equal(t, "older", items[1].Message)
	require.True(t, f.store.Has(cache.NotificationsKey(alice.ID)))

	count, err := svc.UnreadCount(context.Background(), alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count.Count)
	require.True(t, f.store.Has(cache.UnreadCountKey(alice.ID)))
}

func TestNotificationServiceMarkRead(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	n := seedNotification(t, f, alice.ID, "hello", time.Now().UTC())

	svc, err := NewNotificationService(f.db, f.caches, f.sink)
	require.NoError(t, err)

	count, err := svc.UnreadCount(context.Background(), alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count.Count)

	_, err = svc.MarkRead(context.Background(), n.ID, bob.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	read, err := svc.MarkRead(context.Background(), n.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	f.requireGone(t, cache.InboxKeys(alice.ID)...)

	count, err = svc.UnreadCount(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Zero(t, count.Count)

	_, err = svc.MarkRead(context.Background(), 9999, alice.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationServicePing(t *testing.T) {
	f := newFixture(t)
	svc, err := NewNotificationService(f.db, f.caches, f.sink)
	require.NoError(t, err)

	require.NoError(t, svc.Ping(context.Background(), 7, ""))
	events := f.sink.OfType(notifications.TypeTest)
	require.Len(t, events, 1)
	require.Equal(t, []uint{7}, events[0].Recipients)
	require.Equal(t, "test", events[0].Message)
	require.Nil(t, events[0].TripID)

	require.ErrorIs(t, svc.Ping(context.Background(), 0, "x"), apperrors.ErrBadRequest)
}
