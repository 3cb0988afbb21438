package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"conecta/internal/middleware"
)

const (
	// Max event-stream connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 1000
	// Per-client outbound buffer; slow readers drop events rather than
	// block the bus.
	clientSendBuffer = 32
)

// wsEvent is the envelope sent down the event stream.
type wsEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
	At      int64  `json:"at"` // epoch millis
}

type wsClient struct {
	userID string
	send   chan []byte
}

// eventHub fans bus events out to connected WebSocket clients.
type eventHub struct {
	mu         sync.RWMutex
	conns      map[*wsClient]struct{}
	perUser    map[string]int
	totalConns int
	closed     bool
}

func newEventHub() *eventHub {
	return &eventHub{
		conns:   make(map[*wsClient]struct{}),
		perUser: make(map[string]int),
	}
}

func (h *eventHub) register(userID string) *wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns || h.perUser[userID] >= maxConnsPerUser {
		return nil
	}

	client := &wsClient{userID: userID, send: make(chan []byte, clientSendBuffer)}
	h.conns[client] = struct{}{}
	h.perUser[userID]++
	h.totalConns++
	return client
}

func (h *eventHub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	delete(h.conns, client)
	h.totalConns--
	h.perUser[client.userID]--
	if h.perUser[client.userID] == 0 {
		delete(h.perUser, client.userID)
	}
	close(client.send)
}

// BroadcastEvent sends the event envelope to every connected client.
func (h *eventHub) BroadcastEvent(event string, payload any) {
	data, err := json.Marshal(wsEvent{
		Event:   event,
		Payload: payload,
		At:      time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("event stream: marshal %s failed: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.conns {
		select {
		case client.send <- data:
		default:
			// Client is not keeping up; it still has the REST routes to
			// resynchronize from.
		}
	}
}

// Shutdown closes all client channels; their writer loops exit and close
// the sockets.
func (h *eventHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.conns {
		close(client.send)
	}
	h.conns = make(map[*wsClient]struct{})
	h.perUser = make(map[string]int)
	h.totalConns = 0
}

// EventStreamHandler upgrades the connection and streams bus events to the
// UI until the client disconnects.
func (s *Server) EventStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		userIDVal := conn.Locals("userID")
		userID, ok := userIDVal.(string)
		if !ok || userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client := s.eventHub.register(userID)
		if client == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"connection limit reached"}`))
			_ = conn.Close()
			return
		}
		log.Printf("event stream: user %s connected", userID)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for data := range client.send {
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		}()

		// The stream is one-way; reading only detects disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		s.eventHub.unregister(client)
		<-done
		_ = conn.Close()
		log.Printf("event stream: user %s disconnected", userID)
	})
}
