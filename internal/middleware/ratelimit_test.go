package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitClient(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("bypassed in test and development", func(t *testing.T) {
		for _, env := range []string{"test", "development"} {
			t.Setenv("APP_ENV", env)
			allowed, err := CheckRateLimit(ctx, nil, "send_chat", "user:u1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("nil client errors in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		allowed, err := CheckRateLimit(ctx, nil, "send_chat", "user:u1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("counts against the limit", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		client := newLimitClient(t)

		for i := 0; i < 3; i++ {
			allowed, err := CheckRateLimit(ctx, client, "send_chat", "user:u1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, err := CheckRateLimit(ctx, client, "send_chat", "user:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Other identities keep their own budget.
		allowed, err = CheckRateLimit(ctx, client, "send_chat", "user:u2", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	newApp := func(handler fiber.Handler) *fiber.App {
		app := fiber.New()
		app.Post("/messages", handler, func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}

	t.Run("enforces the limit per identity", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		client := newLimitClient(t)
		app := newApp(RateLimit(client, 2, time.Minute, "send_chat"))

		for i := 0; i < 2; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/messages", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/messages", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("fails open without a client", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := newApp(RateLimit(nil, 1, time.Minute, "send_chat"))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/messages", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("fails closed when configured", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := newApp(RateLimitWithPolicy(nil, 1, time.Minute, FailClosed, "send_chat"))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/messages", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		resp.Body.Close()
	})
}
