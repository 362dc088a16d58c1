package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/app"
	"github.com/charlesng35/tripmate/internal/handlers/testutil"
	"github.com/charlesng35/tripmate/internal/models"
)

type loginResult struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expiresIn"`
	User      models.User `json:"user"`
}

func TestAuthRegisterLoginMe(t *testing.T) {
	env := testutil.NewEnv(t)

	register := env.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "Alice@Example.com",
		"password": "s3cret!!",
		"name":     "Alice",
	}, "")
	require.Equal(t, http.StatusCreated, register.Code, register.Body.String())
	require.NotContains(t, register.Body.String(), "s3cret")

	dup := env.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "another1",
	}, "")
	require.Equal(t, http.StatusConflict, dup.Code)

	login := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret!!",
	}, "")
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	var result loginResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, login).Data, &result)
	require.NotEmpty(t, result.Token)
	require.Equal(t, 3600, result.ExpiresIn)
	require.Equal(t, "alice@example.com", result.User.Email)

	me := env.Request(http.MethodGet, "/api/auth/me", nil, result.Token)
	require.Equal(t, http.StatusOK, me.Code)
	var user models.User
	testutil.DecodeInto(t, testutil.DecodeResponse(t, me).Data, &user)
	require.Equal(t, result.User.ID, user.ID)

	wrong := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "nope-nope",
	}, "")
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, "INVALID_CREDENTIALS", testutil.DecodeResponse(t, wrong).Error.Code)
}

func TestAuthValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/auth/register", map[string]string{"email": "not-an-email", "password": "x"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	decoded := testutil.DecodeResponse(t, resp)
	require.Equal(t, "BAD_REQUEST", decoded.Error.Code)
	require.Contains(t, decoded.Error.Message, "email must be a valid email address")

	unauth := env.Request(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, unauth.Code)
	require.Equal(t, "Bearer", unauth.Header().Get("WWW-Authenticate"))
}

func TestDevLoginAs(t *testing.T) {
	env := testutil.NewEnv(t)
	bob, _ := env.CreateUser("bob")

	resp := env.Request(http.MethodPost, "/api/dev/login-as/"+uintString(bob.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var result loginResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &result)
	require.Equal(t, bob.ID, result.User.ID)

	missing := env.Request(http.MethodPost, "/api/dev/login-as/9999", nil, "")
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestDevLoginDisabled(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithConfig(func(cfg *app.Config) { cfg.Auth.DevLogin = false }))
	bob, _ := env.CreateUser("bob")

	resp := env.Request(http.MethodPost, "/api/dev/login-as/"+uintString(bob.ID), nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUserLookup(t *testing.T) {
	env := testutil.NewEnv(t)
	alice, token := env.CreateUser("alice")

	resp := env.Request(http.MethodGet, "/api/users/lookup?email="+alice.Email, nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	var found models.User
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &found)
	require.Equal(t, alice.ID, found.ID)

	missing := env.Request(http.MethodGet, "/api/users/lookup?email=ghost@example.com", nil, token)
	require.Equal(t, http.StatusNotFound, missing.Code)
}
