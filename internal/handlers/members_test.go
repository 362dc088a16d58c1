package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/handlers/testutil"
	"github.com/charlesng35/tripmate/internal/models"
)

func TestMemberManagement(t *testing.T) {
	env := testutil.NewEnv(t)
	alice, token := env.CreateUser("alice")
	bob, _ := env.CreateUser("bob")
	tripID := env.CreateTrip(token, "Kyoto")

	item := env.Request(http.MethodPost, "/api/trips/"+uintString(tripID)+"/items", map[string]any{"name": "Passport", "assignedTo": alice.ID}, token)
	require.Equal(t, http.StatusCreated, item.Code, item.Body.String())

	list := env.Request(http.MethodGet, "/api/members?tripId="+uintString(tripID), nil, token)
	require.Equal(t, http.StatusOK, list.Code)
	require.True(t, env.Cache.Has(cache.MembersKey(tripID)))

	add := env.Request(http.MethodPost, "/api/members", map[string]any{"tripId": tripID, "userId": bob.ID}, token)
	require.Equal(t, http.StatusCreated, add.Code, add.Body.String())
	var member models.Member
	testutil.DecodeInto(t, testutil.DecodeResponse(t, add).Data, &member)
	require.Equal(t, "Member", member.Role)
	require.NotNil(t, member.User)
	require.False(t, env.Cache.Has(cache.MembersKey(tripID)))

	var copied int64
	require.NoError(t, env.DB.Model(&models.Item{}).Where("trip_id = ? AND assigned_to = ?", tripID, bob.ID).Count(&copied).Error)
	require.EqualValues(t, 1, copied)

	dup := env.Request(http.MethodPost, "/api/members", map[string]any{"tripId": tripID, "userId": bob.ID}, token)
	require.Equal(t, http.StatusConflict, dup.Code)

	badRole := env.Request(http.MethodPut, "/api/members/"+uintString(member.ID), map[string]any{"role": "Admiral"}, token)
	require.Equal(t, http.StatusBadRequest, badRole.Code)
	require.Contains(t, testutil.DecodeResponse(t, badRole).Error.Message, "Captain or Member")

	promote := env.Request(http.MethodPut, "/api/members/"+uintString(member.ID), map[string]any{"role": "Captain"}, token)
	require.Equal(t, http.StatusOK, promote.Code, promote.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, promote).Data, &member)
	require.Equal(t, "Captain", member.Role)

	remove := env.Request(http.MethodDelete, "/api/members/"+uintString(member.ID), nil, token)
	require.Equal(t, http.StatusOK, remove.Code)

	list = env.Request(http.MethodGet, "/api/members?tripId="+uintString(tripID), nil, token)
	var members []models.Member
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &members)
	require.Len(t, members, 1)
	require.Equal(t, alice.ID, members[0].UserID)
}
