// Package server contains HTTP and WebSocket handlers for the agent's API endpoints.
package server

import (
	"context"
	"log"
	"time"

	"conecta/internal/backend"
	"conecta/internal/config"
	"conecta/internal/events"
	"conecta/internal/kvstore"
	"conecta/internal/middleware"
	"conecta/internal/models"
	"conecta/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	kv             kvstore.Store
	redisStore     *kvstore.RedisStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	bus           *events.Bus
	conversations *store.ConversationStore
	notifications *store.NotificationStore
	posts         *store.PostStore
	social        *store.SocialStore
	backend       *backend.Client
	eventHub      *eventHub
	busSubs       []*events.Subscription
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rs, err := kvstore.Connect(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	s := newServer(cfg, rs)
	s.redisStore = rs
	return s, nil
}

// NewServerWithDeps creates a Server using an already-initialized key-value
// store. Use this in tests or when a bootstrap layer establishes storage.
func NewServerWithDeps(cfg *config.Config, kv kvstore.Store) *Server {
	return newServer(cfg, kv)
}

func newServer(cfg *config.Config, kv kvstore.Store) *Server {
	prom := middleware.InitMetrics("conecta-agent")

	bus := events.NewBus()
	notifications := store.NewNotificationStore(kv, bus, nil)
	social := store.NewSocialStore(kv, notifications)

	s := &Server{
		config:         cfg,
		kv:             kv,
		promMiddleware: prom,
		bus:            bus,
		conversations:  store.NewConversationStore(kv, bus),
		notifications:  notifications,
		posts:          store.NewPostStore(kv, bus, notifications, social),
		social:         social,
		backend:        backend.NewClient(cfg.BackendURL),
		eventHub:       newEventHub(),
	}
	return s
}

// Bus exposes the server's event bus so embedding processes can attach
// their own subscribers.
func (s *Server) Bus() *events.Bus { return s.bus }

// redisClient returns the underlying Redis client for rate limiting, or nil
// when the server was built over a non-Redis store. Per-route limits fail
// open in that case.
func (s *Server) redisClient() *redis.Client {
	if s.redisStore == nil {
		return nil
	}
	return s.redisStore.Client()
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Tracing (no-op unless enabled in config)
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (300 requests per minute per IP; the UI is chatty)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Conecta Agent Metrics Dashboard",
	}))

	// Auth routes (proxied to the companion backend)
	auth := api.Group("/auth")
	auth.Post("/send-code", middleware.RateLimit(
		s.redisClient(), 3, 10*time.Minute, "send_code"), s.SendCode)
	auth.Post("/verify-code", middleware.RateLimit(
		s.redisClient(), 10, 5*time.Minute, "verify_code"), s.VerifyCode)

	// Protected routes
	protected := api.Group("", middleware.SessionRequired(s.config.SessionSecret))

	// Conversation routes
	conversations := protected.Group("/conversations")
	conversations.Get("/", s.GetConversations)
	conversations.Get("/:peerId/messages", s.GetMessages)
	conversations.Post("/:peerId/messages", middleware.RateLimit(
		s.redisClient(), 30, time.Minute, "send_chat"), s.SendMessage)
	conversations.Post("/:peerId/read", s.MarkConversationRead)
	conversations.Delete("/:peerId", s.DeleteConversation)

	// Notification routes
	notifications := protected.Group("/notifications")
	notifications.Get("/", s.GetNotifications)
	notifications.Get("/unread-count", s.GetUnreadCount)
	notifications.Post("/read-all", s.MarkAllNotificationsRead)
	notifications.Post("/:id/read", s.MarkNotificationRead)
	notifications.Delete("/", s.ClearNotifications)

	// Post routes
	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RateLimit(
		s.redisClient(), 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/remote", s.GetRemotePosts)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redisClient(), 15, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id", s.DeletePost)

	// User / social routes
	users := protected.Group("/users")
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/follow", middleware.RateLimit(
		s.redisClient(), 20, 5*time.Minute, "follow"), s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Post("/:id/mute", s.ToggleMute)
	users.Get("/:id", s.GetUserSnapshot)

	// Event stream
	ws := api.Group("/ws", middleware.SessionRequired(s.config.SessionSecret))
	ws.Get("/events", s.EventStreamHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	storageStatus := "healthy"
	if s.redisStore != nil {
		if err := s.redisStore.Ping(ctx); err != nil {
			storageStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storageStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Conecta",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"storage": storageStatus,
		},
		"time": time.Now(),
	})
}

// wireEventStream forwards every bus event to connected WebSocket clients.
func (s *Server) wireEventStream() {
	for _, name := range []string{events.PostUpdated, events.ConversationUpdated, events.NotificationAdded} {
		name := name
		sub := s.bus.Subscribe(name, func(_ context.Context, payload any) {
			s.eventHub.BroadcastEvent(name, payload)
		})
		s.busSubs = append(s.busSubs, sub)
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Conecta Agent",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.wireEventStream()

	log.Printf("Agent starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	for _, sub := range s.busSubs {
		sub.Unsubscribe()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close WebSocket connections gracefully
	s.eventHub.Shutdown()

	if s.redisStore != nil {
		if err := s.redisStore.Close(); err != nil {
			log.Printf("error closing storage: %v", err)
		}
	}

	log.Println("Agent shutdown complete")
	return nil
}
