package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"conecta/internal/config"
	"conecta/internal/kvstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		BackendURL:    "http://127.0.0.1:1",
		SessionSecret: "test-secret",
		Env:           "test",
	}
}

// newTestServer builds a Server over miniredis storage.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewServerWithDeps(testConfig(), kvstore.NewRedisStore(client))
}

// newTestApp registers all routes behind a stub auth layer that signs the
// request in as userID.
func newTestApp(s *Server, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})

	conversations := app.Group("/api/conversations")
	conversations.Get("/", s.GetConversations)
	conversations.Get("/:peerId/messages", s.GetMessages)
	conversations.Post("/:peerId/messages", s.SendMessage)
	conversations.Post("/:peerId/read", s.MarkConversationRead)
	conversations.Delete("/:peerId", s.DeleteConversation)

	notifications := app.Group("/api/notifications")
	notifications.Get("/", s.GetNotifications)
	notifications.Get("/unread-count", s.GetUnreadCount)
	notifications.Post("/read-all", s.MarkAllNotificationsRead)
	notifications.Post("/:id/read", s.MarkNotificationRead)
	notifications.Delete("/", s.ClearNotifications)

	posts := app.Group("/api/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.CreatePost)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", s.CreateComment)
	posts.Delete("/:id", s.DeletePost)

	users := app.Group("/api/users")
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Post("/:id/mute", s.ToggleMute)
	users.Get("/:id", s.GetUserSnapshot)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}
