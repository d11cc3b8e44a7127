package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-billing-pos/internal/auth"
	"go-billing-pos/internal/testutil"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	_, err := auth.CreateUser(env.db, "owner", "s3cret-pass", auth.RoleCashier)
	require.NoError(t, err)

	w := env.do(t, "", http.MethodPost, "/login", map[string]any{"username": "owner", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]string
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, auth.RoleAdmin, resp["role"], "first account is admin")
	assert.NotEmpty(t, resp["token"])

	// the token opens the API
	w = env.do(t, resp["token"], http.MethodGet, "/api/bills", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "", http.MethodPost, "/login", map[string]any{"username": "owner", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "", http.MethodPost, "/login", map[string]any{"username": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister(t *testing.T) {
	t.Run("closed by default", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, "", http.MethodPost, "/register", map[string]any{"username": "a", "password": "123456"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("open when allowed", func(t *testing.T) {
		env := newTestEnv(t, func(d *Deps) { d.AllowRegistration = true })

		w := env.do(t, "", http.MethodPost, "/register", map[string]any{"username": "owner", "password": "123456"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, "", http.MethodPost, "/register", map[string]any{"username": "owner", "password": "123456"})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = env.do(t, "", http.MethodPost, "/register", map[string]any{"username": "clerk", "password": "123"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]string
		testutil.DecodeJSON(t, w, &resp)
		assert.Equal(t, "password must be at least 6 characters", resp["error"])
	})
}

func TestAskAI(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, env.admin, http.MethodPost, "/api/ask", map[string]any{"message": "stock of wire?"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("answers admins only", func(t *testing.T) {
		fake := &fakeAssistant{reply: "12 metres of Wire left"}
		env := newTestEnv(t, func(d *Deps) { d.Assistant = fake })

		w := env.do(t, env.cashier, http.MethodPost, "/api/ask", map[string]any{"message": "stock of wire?"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.do(t, env.admin, http.MethodPost, "/api/ask", map[string]any{"message": "stock of wire?"})
		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		testutil.DecodeJSON(t, w, &resp)
		assert.Equal(t, "12 metres of Wire left", resp["reply"])
		assert.Equal(t, []string{"stock of wire?"}, fake.asked)
	})

	t.Run("upstream failure", func(t *testing.T) {
		env := newTestEnv(t, func(d *Deps) { d.Assistant = &fakeAssistant{err: errors.New("quota")} })
		w := env.do(t, env.admin, http.MethodPost, "/api/ask", map[string]any{"message": "hi"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "online")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
