package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/handlers/testutil"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
)

func TestNotificationInbox(t *testing.T) {
	env := testutil.NewEnv(t)
	alice, aliceToken := env.CreateUser("alice")
	_, bobToken := env.CreateUser("bob")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	older := models.Notification{UserID: alice.ID, Message: "older", CreatedAt: base}
	newer := models.Notification{UserID: alice.ID, Message: "newer", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, env.DB.Create(&older).Error)
	require.NoError(t, env.DB.Create(&newer).Error)

	list := env.Request(http.MethodGet, "/api/notifications/user/"+uintString(alice.ID), nil, aliceToken)
	require.Equal(t, http.StatusOK, list.Code)
	var inbox []models.Notification
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &inbox)
	require.Len(t, inbox, 2)
	require.Equal(t, "newer", inbox[0].Message)

	count := env.Request(http.MethodGet, "/api/notifications/user/"+uintString(alice.ID)+"/unread-count", nil, aliceToken)
	require.Equal(t, http.StatusOK, count.Code)
	require.JSONEq(t, `{"count":2}`, string(testutil.DecodeResponse(t, count).Data))
	require.True(t, env.Cache.Has(cache.UnreadCountKey(alice.ID)))

	snoop := env.Request(http.MethodGet, "/api/notifications/user/"+uintString(alice.ID), nil, bobToken)
	require.Equal(t, http.StatusForbidden, snoop.Code)

	steal := env.Request(http.MethodPatch, "/api/notifications/"+uintString(older.ID)+"/read", nil, bobToken)
	require.Equal(t, http.StatusForbidden, steal.Code)

	read := env.Request(http.MethodPatch, "/api/notifications/"+uintString(older.ID)+"/read", nil, aliceToken)
	require.Equal(t, http.StatusOK, read.Code, read.Body.String())
	require.False(t, env.Cache.Has(cache.UnreadCountKey(alice.ID)))
	require.False(t, env.Cache.Has(cache.NotificationsKey(alice.ID)))

	count = env.Request(http.MethodGet, "/api/notifications/user/"+uintString(alice.ID)+"/unread-count", nil, aliceToken)
	require.JSONEq(t, `{"count":1}`, string(testutil.DecodeResponse(t, count).Data))
}

func TestDebugPingNotify(t *testing.T) {
	env := testutil.NewEnv(t)
	alice, token := env.CreateUser("alice")

	resp := env.Request(http.MethodPost, "/api/debug/ping-notify", map[string]any{"userId": alice.ID}, token)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	events := env.Sink.OfType(notifications.TypeTest)
	require.Len(t, events, 1)
	require.Equal(t, []uint{alice.ID}, events[0].Recipients)
	require.Equal(t, "test", events[0].Message)

	missing := env.Request(http.MethodPost, "/api/debug/ping-notify", map[string]any{}, token)
	require.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestNotificationStreamWithoutHub(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateUser("alice")

	resp := env.Request(http.MethodGet, "/api/notifications/stream", nil, token)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
