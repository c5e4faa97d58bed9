package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Valid(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	require.NotEmpty(t, token)

	// Token works against a protected route.
	w := env.request(t, http.MethodGet, "/api/players/alice/balance", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_WrongSecret(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"service": "bot", "secret": "wrong-secret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_WrongService(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"service": "intruder", "secret": testSecret})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoute_NoToken(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/api/players/alice/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
