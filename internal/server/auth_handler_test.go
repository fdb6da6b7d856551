package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showyourapp/backend/internal/types"
)

func TestAuthFlow_RegisterThenLogin(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	register := map[string]string{
		"username": "maker",
		"email":    "maker@example.com",
		"password": "supersecret",
	}
	w := doJSON(t, srv.Handler(), http.MethodPost, "/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.User)
	assert.Equal(t, "maker", created.User.Username)
	assert.NotEmpty(t, created.Token)

	login := map[string]string{"email": "maker@example.com", "password": "supersecret"}
	w = doJSON(t, srv.Handler(), http.MethodPost, "/auth/login", "", login)
	require.Equal(t, http.StatusOK, w.Code)

	var logged types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logged))
	assert.Equal(t, created.User.ID, logged.User.ID)
	assert.NotEmpty(t, logged.Token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	register := map[string]string{
		"username": "maker",
		"email":    "maker@example.com",
		"password": "supersecret",
	}
	w := doJSON(t, srv.Handler(), http.MethodPost, "/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code)

	register["username"] = "othermaker"
	w = doJSON(t, srv.Handler(), http.MethodPost, "/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing username", body: map[string]string{"email": "a@b.com", "password": "supersecret"}},
		{name: "bad email", body: map[string]string{"username": "maker", "email": "nope", "password": "supersecret"}},
		{name: "short password", body: map[string]string{"username": "maker", "email": "a@b.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv.Handler(), http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	login := map[string]string{"email": "nobody@example.com", "password": "supersecret"}
	w := doJSON(t, srv.Handler(), http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePassword_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := map[string]string{"current_password": "supersecret", "new_password": "evenmoresecret"}
	w := doJSON(t, srv.Handler(), http.MethodPut, "/auth/password", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePassword_EndToEnd(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	register := map[string]string{
		"username": "maker",
		"email":    "maker@example.com",
		"password": "supersecret",
	}
	w := doJSON(t, srv.Handler(), http.MethodPost, "/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code)

	var created types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	body := map[string]string{"current_password": "supersecret", "new_password": "evenmoresecret"}
	w = doJSON(t, srv.Handler(), http.MethodPut, "/auth/password", created.Token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	login := map[string]string{"email": "maker@example.com", "password": "evenmoresecret"}
	w = doJSON(t, srv.Handler(), http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusOK, w.Code)
}
