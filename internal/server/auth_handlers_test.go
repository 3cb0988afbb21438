package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conecta/internal/backend"
	"conecta/internal/kvstore"
	"conecta/internal/models"
)

func newAuthTestServer(t *testing.T, backendURL string) (*Server, *fiber.App) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testConfig()
	cfg.BackendURL = backendURL
	s := NewServerWithDeps(cfg, kvstore.NewRedisStore(client))

	app := fiber.New()
	app.Post("/api/auth/send-code", s.SendCode)
	app.Post("/api/auth/verify-code", s.VerifyCode)
	return s, app
}

func TestSendCodeHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/send-code", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, app := newAuthTestServer(t, srv.URL)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/send-code", map[string]string{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/send-code", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendCodeBackendDown(t *testing.T) {
	_, app := newAuthTestServer(t, "http://127.0.0.1:1")

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/send-code", map[string]string{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "UPSTREAM_ERROR", errResp.Code)
}

func TestVerifyCodeHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(backend.VerifyCodeResult{Valid: req["code"] == "123456"})
	}))
	defer srv.Close()

	s, app := newAuthTestServer(t, srv.URL)
	user := models.UserRef{ID: "u1", Username: "alice"}

	t.Run("valid code issues session token", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/auth/verify-code", map[string]any{
			"email": "alice@example.com",
			"code":  "123456",
			"user":  user,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Token string         `json:"token"`
			User  models.UserRef `json:"user"`
		}
		require.NoError(t, json.Unmarshal(body, &result))
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, user, result.User)

		// The snapshot was cached locally.
		snapshot, found := s.social.UserSnapshot(context.Background(), "u1")
		require.True(t, found)
		assert.Equal(t, user, snapshot)
	})

	t.Run("wrong code", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/verify-code", map[string]any{
			"email": "alice@example.com",
			"code":  "000000",
			"user":  user,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/verify-code", map[string]any{
			"email": "alice@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
